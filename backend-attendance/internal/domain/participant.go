package domain

import (
	"strings"
	"time"
)

// Participant is a registered user who may join any number of events
type Participant struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Branch       string       `json:"branch"`
	Year         int          `json:"year"`
	Phone        string       `json:"phone"`
	PasswordHash string       `json:"-"`
	Events       []EventEntry `json:"events"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// EventEntry links a participant to one event and its attendance record
type EventEntry struct {
	EventID      string           `json:"event_id"`
	AttendanceID string           `json:"attendance_id"`
	Status       AttendanceStatus `json:"status"`
	RegisteredAt time.Time        `json:"registered_at"`
}

// Entry returns the ledger entry for eventID
func (p *Participant) Entry(eventID string) (*EventEntry, bool) {
	for i := range p.Events {
		if p.Events[i].EventID == eventID {
			return &p.Events[i], true
		}
	}
	return nil, false
}

// IsRegisteredFor reports whether the participant already has an entry for eventID
func (p *Participant) IsRegisteredFor(eventID string) bool {
	_, ok := p.Entry(eventID)
	return ok
}

// ParticipantIdentity holds the fields the duplicate detector compares
type ParticipantIdentity struct {
	Name   string
	Email  string
	Branch string
	Year   int
	Phone  string
}

// Identity extracts the duplicate-detection fields
func (p *Participant) Identity() ParticipantIdentity {
	return ParticipantIdentity{Name: p.Name, Email: p.Email, Branch: p.Branch, Year: p.Year, Phone: p.Phone}
}

// IsDuplicate reports whether candidate collides with existing.
// A collision is the same email ignoring case, or the same name ignoring case
// with equal branch and year and either the same email or the same phone.
func IsDuplicate(existing, candidate ParticipantIdentity) bool {
	sameEmail := candidate.Email != "" && strings.EqualFold(strings.TrimSpace(existing.Email), strings.TrimSpace(candidate.Email))
	if sameEmail {
		return true
	}

	samePerson := strings.EqualFold(strings.TrimSpace(existing.Name), strings.TrimSpace(candidate.Name)) &&
		existing.Branch == candidate.Branch &&
		existing.Year == candidate.Year
	samePhone := candidate.Phone != "" && existing.Phone == candidate.Phone

	return samePerson && samePhone
}

// NormalizeEmail lowercases and trims an email for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
