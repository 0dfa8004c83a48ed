package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/events-api/internal/models"
	"github.com/campushub/events-api/internal/service"
	appErrors "github.com/campushub/events-api/pkg/errors"
	"github.com/campushub/events-api/pkg/response"
)

// TeamHandler exposes team registration and reconciliation endpoints.
type TeamHandler struct {
	teams   *service.TeamService
	metrics *service.MetricsService
}

// NewTeamHandler constructs TeamHandler. metrics may be nil.
func NewTeamHandler(teams *service.TeamService, metrics *service.MetricsService) *TeamHandler {
	return &TeamHandler{teams: teams, metrics: metrics}
}

// Register godoc
// @Summary Register a team for an event
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.RegisterTeamRequest true "Team payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teams [post]
func (h *TeamHandler) Register(c *gin.Context) {
	var req service.RegisterTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	team, err := h.teams.RegisterTeam(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordRegistration(string(models.RegistrationTypeTeamLeader))
	response.Created(c, "team registered", team)
}

// AddMember godoc
// @Summary Add a member to a team
// @Description Performs three linked writes; partial failures surface as consistency drift.
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Team registration ID"
// @Param payload body service.AddMemberRequest true "Member payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teams/{id}/members [post]
func (h *TeamHandler) AddMember(c *gin.Context) {
	var req service.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.TeamRegistrationID = c.Param("id")

	team, err := h.teams.AddMember(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordRegistration(string(models.RegistrationTypeTeamMember))
	response.OK(c, "member added", team)
}

// RemoveMember godoc
// @Summary Remove a member from a team
// @Tags Teams
// @Produce json
// @Security BearerAuth
// @Param id path string true "Team registration ID"
// @Param enrollmentId path string true "Member enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teams/{id}/members/{enrollmentId} [delete]
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	req := service.RemoveMemberRequest{
		TeamRegistrationID: c.Param("id"),
		EnrollmentID:       c.Param("enrollmentId"),
	}
	team, err := h.teams.RemoveMember(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordCancellation()
	response.OK(c, "member removed", team)
}

// Validate godoc
// @Summary Audit team record consistency for an event
// @Description Reports set differences between rosters, member records and participations. Read only.
// @Tags Teams
// @Produce json
// @Security BearerAuth
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{eventId}/teams/validate [get]
func (h *TeamHandler) Validate(c *gin.Context) {
	report, err := h.teams.Validate(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "team audit complete", report)
}
