package domain

import (
	"sort"
	"time"
)

// AttendanceStatus classifies presence at one event
type AttendanceStatus string

const (
	StatusNotAttended       AttendanceStatus = "not attended"
	StatusPartiallyAttended AttendanceStatus = "partially attended"
	StatusAttended          AttendanceStatus = "attended"
)

// IsValid reports whether s is a known status
func (s AttendanceStatus) IsValid() bool {
	switch s {
	case StatusNotAttended, StatusPartiallyAttended, StatusAttended:
		return true
	}
	return false
}

// DeriveStatus is the only place status is computed from a check-in count
func DeriveStatus(attended, eventDays int) AttendanceStatus {
	switch {
	case attended <= 0:
		return StatusNotAttended
	case attended < eventDays:
		return StatusPartiallyAttended
	default:
		return StatusAttended
	}
}

// Attendance is the append-only log of days a participant checked in to an event
type Attendance struct {
	ID            string      `json:"id"`
	ParticipantID string      `json:"participant_id"`
	EventID       string      `json:"event_id"`
	Attend        []time.Time `json:"attend"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// HasDay reports whether day is already recorded
func (a *Attendance) HasDay(day time.Time) bool {
	d := Day(day)
	for _, t := range a.Attend {
		if Day(t).Equal(d) {
			return true
		}
	}
	return false
}

// Count returns the number of recorded days
func (a *Attendance) Count() int {
	return len(a.Attend)
}

// SortDays orders days ascending in place
func SortDays(days []time.Time) {
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
}

// CheckInResult is returned by a successful check-in
type CheckInResult struct {
	Event      *Event           `json:"event"`
	Attendance *Attendance      `json:"attendance"`
	Day        time.Time        `json:"day"`
	Status     AttendanceStatus `json:"status"`
}
