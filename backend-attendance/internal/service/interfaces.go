package service

import (
	"context"
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/dto"
)

// EventService defines the interface for the event registry
type EventService interface {
	// CreateEvent creates an event with a freshly generated unique code
	CreateEvent(ctx context.Context, req *dto.CreateEventRequest) (*domain.Event, error)
	// GetEvent retrieves an event by ID
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	// LookupByCode resolves a check-in code to its event
	LookupByCode(ctx context.Context, code string) (*domain.Event, error)
	// ListEvents lists events newest first
	ListEvents(ctx context.Context, filter *dto.EventListFilter) ([]*domain.Event, int, error)
	// UpdateEvent updates event details, never the code
	UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest) (*domain.Event, error)
	// RegenerateCode replaces the event code; the old code stops resolving immediately
	RegenerateCode(ctx context.Context, id string) (string, error)
	// ToggleRegistrationOpen flips the registration flag and returns the new value
	ToggleRegistrationOpen(ctx context.Context, id string) (bool, error)
	// DeleteEvent queues deferred deletion of the event and its data
	DeleteEvent(ctx context.Context, id string) error
}

// RegistrationService defines the interface for the registration ledger and participant accounts
type RegistrationService interface {
	// CreateParticipant creates a participant account and queues its login credentials
	CreateParticipant(ctx context.Context, req *dto.CreateParticipantRequest) (*domain.Participant, error)
	// GetParticipant retrieves a participant by ID
	GetParticipant(ctx context.Context, id string) (*domain.Participant, error)
	// UpdateParticipant updates participant profile fields
	UpdateParticipant(ctx context.Context, id string, req *dto.UpdateParticipantRequest) (*domain.Participant, error)
	// ListParticipants filters and sorts participants, returning the count
	ListParticipants(ctx context.Context, filter *domain.ParticipantFilter) ([]*domain.Participant, int, error)
	// Register links a participant to an event with a new empty attendance record
	Register(ctx context.Context, participantID, eventID string) (*domain.EventEntry, error)
}

// AttendanceService defines the interface for the attendance state machine
type AttendanceService interface {
	// CheckIn records today's attendance for the participant at the event identified by code
	CheckIn(ctx context.Context, code, participantID string, now time.Time) (*domain.CheckInResult, error)
}

// ReportService defines the read-only reporting interface
type ReportService interface {
	// ListAttendance returns one row per matching registrant of an event
	ListAttendance(ctx context.Context, eventID string, filter *domain.ParticipantFilter, presence domain.PresencePattern) ([]domain.AttendanceRow, error)
	// EventStats aggregates check-ins for an event
	EventStats(ctx context.Context, eventID string) (*domain.EventStats, error)
	// ParticipantProfile returns a participant with every registered event and its attendance
	ParticipantProfile(ctx context.Context, participantID string) (*domain.ParticipantProfile, error)
	// UserEventAttendance returns an event with the raw days of one attendance record
	UserEventAttendance(ctx context.Context, eventID, attendanceID string) (*domain.UserEventAttendance, error)
}
