package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushub/events-api/internal/service"
	appErrors "github.com/campushub/events-api/pkg/errors"
	"github.com/campushub/events-api/pkg/response"
)

// RegistrationHandler exposes registration orchestration endpoints.
type RegistrationHandler struct {
	registrations *service.RegistrationService
	metrics       *service.MetricsService
}

// NewRegistrationHandler constructs RegistrationHandler. metrics may be nil.
func NewRegistrationHandler(registrations *service.RegistrationService, metrics *service.MetricsService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, metrics: metrics}
}

// Register godoc
// @Summary Register a student for an event
// @Description Registration ids are deterministic; retrying the same pair returns the existing record.
// @Tags Registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.registrations.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	view := result.Participation.View()
	if result.AlreadyRegistered {
		response.OK(c, "already registered", view)
		return
	}
	h.metrics.RecordRegistration(string(result.Participation.RegistrationType))
	response.Created(c, "registered", view)
}

// Cancel godoc
// @Summary Cancel a registration
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/cancel [post]
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	record, err := h.registrations.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordCancellation()
	response.OK(c, "registration cancelled", record.View())
}

// Status godoc
// @Summary Get participation status
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Status(c *gin.Context) {
	view, err := h.registrations.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "status fetched", view)
}

// ListByEvent godoc
// @Summary List participations for an event
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/registrations [get]
func (h *RegistrationHandler) ListByEvent(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	views, pagination, err := h.registrations.ListByEvent(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "registrations listed", views, pagination)
}
