package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-attendance/pkg/middleware"
	"github.com/prohmpiriya/event-attendance/pkg/response"
)

// Handlers groups every HTTP handler of the service
type Handlers struct {
	Health      *HealthHandler
	Event       *EventHandler
	Participant *ParticipantHandler
	Attendance  *AttendanceHandler
}

// RouteConfig supplies the middleware the routes are guarded with
type RouteConfig struct {
	// Auth authenticates the request and sets the user id and role
	Auth gin.HandlerFunc
	// Idempotency guards mutating participant routes, optional
	Idempotency gin.HandlerFunc
}

// RegisterRoutes mounts the health probes and the /api/v1 routes on r
func RegisterRoutes(r *gin.Engine, h *Handlers, cfg *RouteConfig) {
	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)

	auth := cfg.Auth
	admin := middleware.RequireRole(middleware.RoleAdmin)
	participant := middleware.RequireRole(middleware.RoleParticipant)

	idempotent := func(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
		if cfg.Idempotency == nil {
			return handlers
		}
		return append([]gin.HandlerFunc{cfg.Idempotency}, handlers...)
	}

	v1 := r.Group("/api/v1")

	events := v1.Group("/events")
	{
		events.GET("", h.Event.List)
		events.GET("/:id", h.Event.GetByID)
		events.POST("", auth, admin, h.Event.Create)
		events.PUT("/:id", auth, admin, h.Event.Update)
		events.POST("/:id/code", auth, admin, h.Event.RegenerateCode)
		events.POST("/:id/registration/toggle", auth, admin, h.Event.ToggleRegistration)
		events.DELETE("/:id", auth, admin, h.Event.Delete)
		events.GET("/:id/attendance", auth, admin, h.Attendance.List)
		events.GET("/:id/stats", auth, admin, h.Attendance.Stats)
		events.GET("/:id/attendance/:attendanceId", auth, h.Attendance.UserEventAttendance)
	}

	participants := v1.Group("/participants")
	{
		participants.POST("", idempotent(h.Participant.Create)...)
		participants.GET("", auth, admin, h.Participant.List)
		participants.GET("/me", auth, participant, h.Participant.Me)
		participants.PUT("/:id", auth, admin, h.Participant.Update)
		participants.GET("/:id/profile", auth, admin, h.Participant.Profile)
	}

	v1.POST("/registrations", append([]gin.HandlerFunc{auth, participant}, idempotent(h.Participant.Register)...)...)
	v1.POST("/attendance/check-in", auth, participant, h.Attendance.CheckIn)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.NotFound("route not found"))
	})
}
