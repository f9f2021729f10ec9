package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/dto"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/service"
	"github.com/prohmpiriya/event-attendance/pkg/response"
	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ParticipantHandler handles participant accounts and event registration
type ParticipantHandler struct {
	registrationService service.RegistrationService
	reportService       service.ReportService
}

// NewParticipantHandler creates a new participant handler
func NewParticipantHandler(registrationService service.RegistrationService, reportService service.ReportService) *ParticipantHandler {
	return &ParticipantHandler{
		registrationService: registrationService,
		reportService:       reportService,
	}
}

// Create handles POST /participants
func (h *ParticipantHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.participant.create")
	defer span.End()

	var req dto.CreateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		bindError(c, err)
		return
	}

	p, err := h.registrationService.CreateParticipant(ctx, &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("participant_id", p.ID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, response.Success(&dto.ParticipantCreatedResponse{
		ID:      p.ID,
		Email:   p.Email,
		Message: "login credentials will be sent by email",
	}))
}

// List handles GET /participants. Unparseable filters are ignored.
func (h *ParticipantHandler) List(c *gin.Context) {
	var filter dto.ParticipantListFilter
	_ = c.ShouldBindQuery(&filter)

	participants, total, err := h.registrationService.ListParticipants(c.Request.Context(), filter.ToDomain())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.List(&dto.ParticipantListResponse{
		Participants: participants,
		Total:        total,
	}, total))
}

// Update handles PUT /participants/:id
func (h *ParticipantHandler) Update(c *gin.Context) {
	var req dto.UpdateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	p, err := h.registrationService.UpdateParticipant(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(p))
}

// Me handles GET /participants/me
func (h *ParticipantHandler) Me(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	h.writeProfile(c, userID)
}

// Profile handles GET /participants/:id/profile
func (h *ParticipantHandler) Profile(c *gin.Context) {
	h.writeProfile(c, c.Param("id"))
}

func (h *ParticipantHandler) writeProfile(c *gin.Context, participantID string) {
	profile, err := h.reportService.ParticipantProfile(c.Request.Context(), participantID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(profile))
}

// Register handles POST /registrations for the authenticated participant
func (h *ParticipantHandler) Register(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.participant.register")
	defer span.End()

	userID, ok := requireUser(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		return
	}

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		bindError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("participant_id", userID),
		attribute.String("event_id", req.EventID),
	)

	entry, err := h.registrationService.Register(ctx, userID, req.EventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, response.Success(&dto.RegisterResponse{
		ParticipantID: userID,
		EventID:       entry.EventID,
		AttendanceID:  entry.AttendanceID,
		Status:        entry.Status,
	}))
}
