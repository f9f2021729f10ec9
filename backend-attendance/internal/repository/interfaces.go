package repository

import (
	"context"
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
)

// EventRepository defines the interface for event data access
type EventRepository interface {
	// Create creates a new event. Returns domain.ErrCodeCollision if the code is taken.
	Create(ctx context.Context, event *domain.Event) error
	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// GetByCode resolves a check-in code to its event
	GetByCode(ctx context.Context, code string) (*domain.Event, error)
	// Update updates event fields other than the code
	Update(ctx context.Context, event *domain.Event) error
	// UpdateCode replaces the event code
	UpdateCode(ctx context.Context, id, code string) error
	// ToggleRegistrationOpen flips the registration flag and returns the new value
	ToggleRegistrationOpen(ctx context.Context, id string) (bool, error)
	// Delete deletes an event by ID
	Delete(ctx context.Context, id string) error
	// List lists events newest first with the total count
	List(ctx context.Context, filter *EventFilter, limit, offset int) ([]*domain.Event, int, error)
	// CodeExists checks if a code is already assigned
	CodeExists(ctx context.Context, code string) (bool, error)
}

// EventFilter contains filter options for listing events
type EventFilter struct {
	Search string
}

// ParticipantRepository defines the interface for participant data access
type ParticipantRepository interface {
	// Create creates a participant. Returns domain.ErrParticipantExists on an email clash.
	Create(ctx context.Context, p *domain.Participant) error
	// GetByID retrieves a participant with its event entries
	GetByID(ctx context.Context, id string) (*domain.Participant, error)
	// FindCandidates returns participants sharing the email or the name, both case-insensitive
	FindCandidates(ctx context.Context, email, name string) ([]*domain.Participant, error)
	// Update updates profile fields
	Update(ctx context.Context, p *domain.Participant) error
	// List returns participants, restricted to one event when eventID is set
	List(ctx context.Context, eventID string) ([]*domain.Participant, error)
}

// RegistrationRepository owns attendance records and the participant event ledger
type RegistrationRepository interface {
	// Register stores the attendance record and the ledger entry atomically.
	// Returns domain.ErrAlreadyRegistered when the pair already exists.
	Register(ctx context.Context, attendance *domain.Attendance, entry domain.EventEntry) error
	// GetAttendance returns the attendance record for a participant and event
	GetAttendance(ctx context.Context, participantID, eventID string) (*domain.Attendance, error)
	// GetAttendanceByID returns an attendance record by ID
	GetAttendanceByID(ctx context.Context, id string) (*domain.Attendance, error)
	// RecordCheckIn appends day and re-derives the ledger status in one unit.
	// Returns domain.ErrAlreadyMarked if day is already recorded.
	RecordCheckIn(ctx context.Context, attendanceID string, day time.Time, eventDays int) (*domain.Attendance, domain.AttendanceStatus, error)
	// ListByEvent returns every registration for an event
	ListByEvent(ctx context.Context, eventID string) ([]*domain.Registration, error)
	// DeleteEventData removes attendance records and ledger entries for an event
	DeleteEventData(ctx context.Context, eventID string) (int64, error)
}
