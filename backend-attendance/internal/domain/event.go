package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Event is an organized activity spanning one or more calendar days
type Event struct {
	ID                     string    `json:"id"`
	Title                  string    `json:"title"`
	Description            string    `json:"description"`
	Venue                  string    `json:"venue"`
	Time                   string    `json:"time"`
	Code                   string    `json:"code"`
	StartDate              time.Time `json:"start_date"`
	EndDate                time.Time `json:"end_date"`
	Days                   int       `json:"days"`
	IsRegistrationOpen     bool      `json:"is_registration_open"`
	IsRegistrationRequired bool      `json:"is_registration_required"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Day normalizes t to midnight UTC of its calendar date in t's own location
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayIn returns the calendar day of t as observed in loc
func DayIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(t.In(loc))
}

// CountDays returns the number of calendar days in [start, end], or 0 when end precedes start
func CountDays(start, end time.Time) int {
	s, e := Day(start), Day(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// InWindow reports whether day lies within the event's inclusive date range
func (e *Event) InWindow(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(e.StartDate)) && !d.After(Day(e.EndDate))
}

// DayAt returns startDate + i days
func (e *Event) DayAt(i int) time.Time {
	return Day(e.StartDate).AddDate(0, 0, i)
}

// ScheduleMismatch reports whether Days disagrees with the date range
func (e *Event) ScheduleMismatch() bool {
	return e.Days != CountDays(e.StartDate, e.EndDate)
}

// ValidateSchedule checks the fields check-in and reporting depend on
func (e *Event) ValidateSchedule() error {
	if e.StartDate.IsZero() {
		return NewValidationError("start date is required")
	}
	if e.EndDate.IsZero() {
		return NewValidationError("end date is required")
	}
	if Day(e.EndDate).Before(Day(e.StartDate)) {
		return NewValidationError("end date must not be before start date")
	}
	if e.Days < 1 {
		return NewValidationError("days must be a positive integer")
	}
	return nil
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a random check-in code of the given length
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length %d", length)
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
