package dto

import (
	"strings"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
)

// RegisterRequest represents a participant registering for an event
type RegisterRequest struct {
	EventID string `json:"event_id" binding:"required"`
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	ParticipantID string                  `json:"participant_id"`
	EventID       string                  `json:"event_id"`
	AttendanceID  string                  `json:"attendance_id"`
	Status        domain.AttendanceStatus `json:"status"`
}

// CheckInRequest represents a day-of check-in with the event code
type CheckInRequest struct {
	Code string `json:"code" binding:"required"`
}

// CheckInResponse is returned after a successful check-in
type CheckInResponse struct {
	EventID      string                  `json:"event_id"`
	AttendanceID string                  `json:"attendance_id"`
	Day          string                  `json:"day"`
	Attendance   []string                `json:"attendance"`
	Status       domain.AttendanceStatus `json:"status"`
}

// FromCheckIn converts a check-in result to its response
func FromCheckIn(r *domain.CheckInResult) *CheckInResponse {
	days := make([]string, 0, len(r.Attendance.Attend))
	for _, d := range r.Attendance.Attend {
		days = append(days, d.Format("2006-01-02"))
	}
	return &CheckInResponse{
		EventID:      r.Event.ID,
		AttendanceID: r.Attendance.ID,
		Day:          r.Day.Format("2006-01-02"),
		Attendance:   days,
		Status:       r.Status,
	}
}

// AttendanceReportFilter represents the attendance report query
type AttendanceReportFilter struct {
	ParticipantListFilter
	Present string `form:"present"`
}

// Presence returns the parsed presence pattern, or PresenceAny when it does not parse
func (f *AttendanceReportFilter) Presence() domain.PresencePattern {
	p, _ := domain.ParsePresence(strings.TrimSpace(f.Present))
	return p
}

// AttendanceReportResponse is the flattened attendance report
type AttendanceReportResponse struct {
	Count int                    `json:"count"`
	Rows  []domain.AttendanceRow `json:"rows"`
}
