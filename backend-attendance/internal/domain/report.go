package domain

import (
	"sort"
	"strings"
	"time"
)

// Registration joins a participant with their ledger entry and attendance for one event
type Registration struct {
	Participant *Participant
	Entry       EventEntry
	Attendance  *Attendance
}

// Days returns the recorded check-in days, empty when the attendance record is missing
func (r *Registration) Days() []time.Time {
	if r.Attendance == nil {
		return []time.Time{}
	}
	return r.Attendance.Attend
}

// AttendanceRow is one flattened line of the attendance report
type AttendanceRow struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Branch     string      `json:"branch" yaml:"branch"`
	Year       int         `json:"year" yaml:"year"`
	Phone      string      `json:"phone" yaml:"phone"`
	Email      string      `json:"email" yaml:"email"`
	Attendance []time.Time `json:"attendance" yaml:"attendance"`
}

// EventStats aggregates check-ins for one event
type EventStats struct {
	TotalRegistrations int   `json:"total_registrations" yaml:"total_registrations"`
	Present0Days       int   `json:"present_0_days" yaml:"present_0_days"`
	PresentAllDays     int   `json:"present_all_days" yaml:"present_all_days"`
	DayWiseAttendance  []int `json:"day_wise_attendance" yaml:"day_wise_attendance"`
}

// ComputeStats derives stats from the registrations of event
func ComputeStats(event *Event, regs []*Registration) *EventStats {
	days := event.Days
	if days < 0 {
		days = 0
	}
	stats := &EventStats{DayWiseAttendance: make([]int, days)}

	for _, r := range regs {
		if r.Attendance != nil {
			stats.TotalRegistrations++
		}
		switch r.Entry.Status {
		case StatusNotAttended:
			stats.Present0Days++
		case StatusAttended:
			stats.PresentAllDays++
		}
		if r.Attendance == nil {
			continue
		}
		for i := 0; i < days; i++ {
			if r.Attendance.HasDay(event.DayAt(i)) {
				stats.DayWiseAttendance[i]++
			}
		}
	}
	return stats
}

// ParticipantFilter narrows participant listings. Zero values do not filter.
type ParticipantFilter struct {
	EventID string
	Query   string
	Branch  string
	Year    int
	SortBy  []SortKey
}

// Matches applies the text, branch and year filters
func (f *ParticipantFilter) Matches(p *Participant) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Email), q) &&
			!strings.Contains(strings.ToLower(p.Branch), q) {
			return false
		}
	}
	if f.Branch != "" && p.Branch != f.Branch {
		return false
	}
	if f.Year != 0 && p.Year != f.Year {
		return false
	}
	return true
}

type presenceKind int

const (
	presenceAny presenceKind = iota
	presenceAll
	presenceNone
	presenceOn
)

// PresencePattern filters report rows by attendance shape
type PresencePattern struct {
	kind presenceKind
	day  time.Time
}

var (
	PresenceAny  = PresencePattern{kind: presenceAny}
	PresenceAll  = PresencePattern{kind: presenceAll}
	PresenceNone = PresencePattern{kind: presenceNone}
)

// PresentOn matches participants who checked in on day
func PresentOn(day time.Time) PresencePattern {
	return PresencePattern{kind: presenceOn, day: Day(day)}
}

// ParsePresence accepts "all", "none", or a date. Anything else yields PresenceAny and false.
func ParsePresence(s string) (PresencePattern, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return PresenceAny, true
	case "all":
		return PresenceAll, true
	case "none":
		return PresenceNone, true
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return PresentOn(t), true
		}
	}
	return PresenceAny, false
}

// Matches reports whether attend fits the pattern for an event of eventDays days
func (p PresencePattern) Matches(attend []time.Time, eventDays int) bool {
	switch p.kind {
	case presenceAll:
		return len(attend) == eventDays
	case presenceNone:
		return len(attend) == 0
	case presenceOn:
		a := Attendance{Attend: attend}
		return a.HasDay(p.day)
	default:
		return true
	}
}

// String renders the pattern as accepted by ParsePresence
func (p PresencePattern) String() string {
	switch p.kind {
	case presenceAll:
		return "all"
	case presenceNone:
		return "none"
	case presenceOn:
		return p.day.Format("2006-01-02")
	default:
		return ""
	}
}

// SortKey names a participant field used for ordering
type SortKey string

const (
	SortCreatedAt SortKey = "createdAt"
	SortName      SortKey = "name"
	SortEmail     SortKey = "email"
	SortBranch    SortKey = "branch"
	SortYear      SortKey = "year"
	SortPhone     SortKey = "phone"
)

// DefaultSort is createdAt desc, branch, year, name
var DefaultSort = []SortKey{SortCreatedAt, SortBranch, SortYear, SortName}

// ParseSortKeys keeps known keys in order, dropping unknown and repeated ones
func ParseSortKeys(raw []string) []SortKey {
	seen := make(map[SortKey]bool)
	var keys []SortKey
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			k := SortKey(strings.TrimSpace(part))
			switch k {
			case SortCreatedAt, SortName, SortEmail, SortBranch, SortYear, SortPhone:
				if !seen[k] {
					seen[k] = true
					keys = append(keys, k)
				}
			}
		}
	}
	return keys
}

// compare returns <0, 0, >0. createdAt sorts newest first, every other key ascending.
func (k SortKey) compare(a, b *Participant) int {
	switch k {
	case SortCreatedAt:
		return b.CreatedAt.Compare(a.CreatedAt)
	case SortName:
		return strings.Compare(a.Name, b.Name)
	case SortEmail:
		return strings.Compare(a.Email, b.Email)
	case SortBranch:
		return strings.Compare(a.Branch, b.Branch)
	case SortYear:
		return a.Year - b.Year
	case SortPhone:
		return strings.Compare(a.Phone, b.Phone)
	}
	return 0
}

// SortParticipants orders ps by keys, falling back to DefaultSort when keys is empty
func SortParticipants(ps []*Participant, keys []SortKey) {
	if len(keys) == 0 {
		keys = DefaultSort
	}
	sort.SliceStable(ps, func(i, j int) bool {
		for _, k := range keys {
			if c := k.compare(ps[i], ps[j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// SortRegistrations orders registrations by their participant
func SortRegistrations(regs []*Registration, keys []SortKey) {
	if len(keys) == 0 {
		keys = DefaultSort
	}
	sort.SliceStable(regs, func(i, j int) bool {
		for _, k := range keys {
			if c := k.compare(regs[i].Participant, regs[j].Participant); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// ToRow flattens a registration for the attendance report
func (r *Registration) ToRow() AttendanceRow {
	p := r.Participant
	days := append([]time.Time{}, r.Days()...)
	SortDays(days)
	return AttendanceRow{
		ID:         p.ID,
		Name:       p.Name,
		Branch:     p.Branch,
		Year:       p.Year,
		Phone:      p.Phone,
		Email:      p.Email,
		Attendance: days,
	}
}

// EventSummary is the subset of event details shown on a participant profile
type EventSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	Time        string    `json:"time"`
	Days        int       `json:"days"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// Summary extracts the profile view of an event
func (e *Event) Summary() *EventSummary {
	return &EventSummary{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Venue:       e.Venue,
		Time:        e.Time,
		Days:        e.Days,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
	}
}

// ProfileEvent is one registered event on a participant profile
type ProfileEvent struct {
	EventEntry
	Attendance []time.Time   `json:"attendance"`
	Details    *EventSummary `json:"details"`
}

// ProfileData is the participant's own fields
type ProfileData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Branch string `json:"branch"`
	Year   int    `json:"year"`
	Phone  string `json:"phone"`
}

// ParticipantProfile is the participant detail view
type ParticipantProfile struct {
	Profile ProfileData    `json:"profile"`
	Events  []ProfileEvent `json:"events"`
}

// UserEventAttendance is one event with the raw days of one attendance record
type UserEventAttendance struct {
	Event         *Event      `json:"event"`
	ParticipantID string      `json:"participant_id"`
	Attendance    []time.Time `json:"attendance"`
}
