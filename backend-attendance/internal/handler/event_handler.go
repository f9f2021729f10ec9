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

// EventHandler handles event registry HTTP requests
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// List handles GET /events
func (h *EventHandler) List(c *gin.Context) {
	var filter dto.EventListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		bindError(c, err)
		return
	}
	filter.SetDefaults()

	events, total, err := h.eventService.ListEvents(c.Request.Context(), &filter)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.List(&dto.EventListResponse{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, total))
}

// GetByID handles GET /events/:id
func (h *EventHandler) GetByID(c *gin.Context) {
	event, err := h.eventService.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(event))
}

// Create handles POST /events
func (h *EventHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.create")
	defer span.End()

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		bindError(c, err)
		return
	}

	event, err := h.eventService.CreateEvent(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("event_id", event.ID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, response.Success(event))
}

// Update handles PUT /events/:id
func (h *EventHandler) Update(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.update")
	defer span.End()

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		bindError(c, err)
		return
	}

	event, err := h.eventService.UpdateEvent(ctx, c.Param("id"), &req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(event))
}

// RegenerateCode handles POST /events/:id/code
func (h *EventHandler) RegenerateCode(c *gin.Context) {
	id := c.Param("id")
	code, err := h.eventService.RegenerateCode(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(&dto.RegenerateCodeResponse{EventID: id, Code: code}))
}

// ToggleRegistration handles POST /events/:id/registration/toggle
func (h *EventHandler) ToggleRegistration(c *gin.Context) {
	id := c.Param("id")
	open, err := h.eventService.ToggleRegistrationOpen(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(&dto.ToggleRegistrationResponse{EventID: id, IsRegistrationOpen: open}))
}

// Delete handles DELETE /events/:id. The event is removed by the job worker.
func (h *EventHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.eventService.DeleteEvent(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, response.Success(&dto.DeleteEventResponse{
		EventID: id,
		Message: "event deletion queued",
	}))
}
