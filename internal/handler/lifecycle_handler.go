package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/events-api/internal/service"
	appErrors "github.com/campushub/events-api/pkg/errors"
	"github.com/campushub/events-api/pkg/response"
)

// LifecycleHandler exposes the stage-gated lifecycle endpoints: attendance,
// feedback and certificates.
type LifecycleHandler struct {
	lifecycle *service.LifecycleService
	metrics   *service.MetricsService
}

// NewLifecycleHandler constructs LifecycleHandler. metrics may be nil.
func NewLifecycleHandler(lifecycle *service.LifecycleService, metrics *service.MetricsService) *LifecycleHandler {
	return &LifecycleHandler{lifecycle: lifecycle, metrics: metrics}
}

// MarkAttendance godoc
// @Summary Mark attendance for a registration
// @Description Idempotent; a second mark returns the recorded outcome unchanged.
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/attendance [post]
func (h *LifecycleHandler) MarkAttendance(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.RegistrationID = c.Param("id")

	result, err := h.lifecycle.MarkAttendance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.AlreadyMarked {
		h.metrics.RecordAttendance(result.Present)
	}
	response.OK(c, "attendance recorded", result)
}

// BulkMarkAttendance godoc
// @Summary Mark attendance for many registrations
// @Description Processes every item; per-item failures are reported, never abort the batch.
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.BulkMarkAttendanceRequest true "Bulk attendance payload"
// @Success 200 {object} response.Envelope
// @Router /registrations/attendance/bulk [post]
func (h *LifecycleHandler) BulkMarkAttendance(c *gin.Context) {
	var req service.BulkMarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.lifecycle.BulkMarkAttendance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "bulk attendance processed", result)
}

// SubmitFeedback godoc
// @Summary Submit feedback for a registration
// @Description Requires attendance to be marked present first.
// @Tags Lifecycle
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Param payload body service.SubmitFeedbackRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/feedback [post]
func (h *LifecycleHandler) SubmitFeedback(c *gin.Context) {
	var req service.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.RegistrationID = c.Param("id")

	result, err := h.lifecycle.SubmitFeedback(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.AlreadySubmitted {
		h.metrics.RecordFeedback()
	}
	response.OK(c, "feedback recorded", result)
}

// IssueCertificate godoc
// @Summary Issue a certificate for a registration
// @Description Requires submitted feedback; retries return the same certificate id.
// @Tags Lifecycle
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/certificate [post]
func (h *LifecycleHandler) IssueCertificate(c *gin.Context) {
	result, err := h.lifecycle.IssueCertificate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.AlreadyIssued {
		h.metrics.RecordCertificate()
	}
	response.OK(c, "certificate issued", result)
}
