package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/dto"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/service"
	"github.com/prohmpiriya/event-attendance/pkg/middleware"
	"github.com/prohmpiriya/event-attendance/pkg/response"
	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// AttendanceHandler handles check-ins and attendance reports
type AttendanceHandler struct {
	attendanceService service.AttendanceService
	reportService     service.ReportService
	now               func() time.Time
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(attendanceService service.AttendanceService, reportService service.ReportService) *AttendanceHandler {
	return &AttendanceHandler{
		attendanceService: attendanceService,
		reportService:     reportService,
		now:               time.Now,
	}
}

// CheckIn handles POST /attendance/check-in
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.attendance.check_in")
	defer span.End()

	userID, ok := requireUser(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		return
	}

	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		bindError(c, err)
		return
	}

	span.SetAttributes(attribute.String("participant_id", userID))

	result, err := h.attendanceService.CheckIn(ctx, req.Code, userID, h.now())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, response.Success(dto.FromCheckIn(result)))
}

// List handles GET /events/:id/attendance
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter dto.AttendanceReportFilter
	_ = c.ShouldBindQuery(&filter)

	rows, err := h.reportService.ListAttendance(c.Request.Context(), c.Param("id"), filter.ToDomain(), filter.Presence())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.List(&dto.AttendanceReportResponse{Count: len(rows), Rows: rows}, len(rows)))
}

// Stats handles GET /events/:id/stats
func (h *AttendanceHandler) Stats(c *gin.Context) {
	stats, err := h.reportService.EventStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(stats))
}

// UserEventAttendance handles GET /events/:id/attendance/:attendanceId.
// Participants may only read their own record.
func (h *AttendanceHandler) UserEventAttendance(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	result, err := h.reportService.UserEventAttendance(c.Request.Context(), c.Param("id"), c.Param("attendanceId"))
	if err != nil {
		handleError(c, err)
		return
	}
	if middleware.GetRole(c) != middleware.RoleAdmin && result.ParticipantID != userID {
		handleError(c, domain.ErrAttendanceNotFound)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}
