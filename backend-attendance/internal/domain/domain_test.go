package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		attended, days int
		want           AttendanceStatus
	}{
		{0, 3, StatusNotAttended},
		{1, 3, StatusPartiallyAttended},
		{2, 3, StatusPartiallyAttended},
		{3, 3, StatusAttended},
		{4, 3, StatusAttended},
		{1, 1, StatusAttended},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.attended, tt.days), func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.attended, tt.days))
		})
	}
}

func TestDayIn(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 20:00 UTC on the 21st is already the 22nd in IST
	now := time.Date(2021, 10, 21, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, date("2021-10-21"), DayIn(now, time.UTC))
	assert.Equal(t, date("2021-10-22"), DayIn(now, ist))
	assert.Equal(t, date("2021-10-21"), DayIn(now, nil))
}

func TestEvent_InWindow(t *testing.T) {
	e := &Event{StartDate: date("2021-10-21"), EndDate: date("2021-10-23"), Days: 3}

	assert.False(t, e.InWindow(date("2021-10-20")))
	assert.True(t, e.InWindow(date("2021-10-21")))
	assert.True(t, e.InWindow(date("2021-10-22").Add(23*time.Hour)))
	assert.True(t, e.InWindow(date("2021-10-23")))
	assert.False(t, e.InWindow(date("2021-10-24")))
}

func TestCountDaysAndSchedule(t *testing.T) {
	assert.Equal(t, 3, CountDays(date("2021-10-21"), date("2021-10-23")))
	assert.Equal(t, 1, CountDays(date("2021-10-21"), date("2021-10-21")))
	assert.Equal(t, 0, CountDays(date("2021-10-23"), date("2021-10-21")))

	e := &Event{StartDate: date("2021-10-21"), EndDate: date("2021-10-23"), Days: 2}
	assert.True(t, e.ScheduleMismatch())
	assert.NoError(t, e.ValidateSchedule())
	assert.Equal(t, date("2021-10-22"), e.DayAt(1))

	bad := &Event{StartDate: date("2021-10-23"), EndDate: date("2021-10-21"), Days: 1}
	assert.True(t, IsValidationError(bad.ValidateSchedule()))
	assert.True(t, IsValidationError((&Event{StartDate: date("2021-10-21"), EndDate: date("2021-10-21")}).ValidateSchedule()))
	assert.True(t, IsValidationError((&Event{Days: 1}).ValidateSchedule()))
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90)

	_, err := GenerateCode(0)
	assert.Error(t, err)
}

func TestIsDuplicate(t *testing.T) {
	existing := ParticipantIdentity{Name: "Asha Rao", Email: "asha@example.com", Branch: "CSE", Year: 2, Phone: "9999"}

	tests := []struct {
		name      string
		candidate ParticipantIdentity
		want      bool
	}{
		{"same email different case", ParticipantIdentity{Name: "Other", Email: "ASHA@Example.com"}, true},
		{"same person same phone new email", ParticipantIdentity{Name: "asha rao", Email: "new@example.com", Branch: "CSE", Year: 2, Phone: "9999"}, true},
		{"same person different phone and email", ParticipantIdentity{Name: "Asha Rao", Email: "new@example.com", Branch: "CSE", Year: 2, Phone: "1111"}, false},
		{"same name and phone different year", ParticipantIdentity{Name: "Asha Rao", Email: "new@example.com", Branch: "CSE", Year: 3, Phone: "9999"}, false},
		{"same name and phone different branch", ParticipantIdentity{Name: "Asha Rao", Email: "new@example.com", Branch: "ECE", Year: 2, Phone: "9999"}, false},
		{"different person", ParticipantIdentity{Name: "Ravi", Email: "ravi@example.com", Branch: "CSE", Year: 2, Phone: "2222"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicate(existing, tt.candidate))
		})
	}
}

func TestParticipant_Entry(t *testing.T) {
	p := &Participant{Events: []EventEntry{{EventID: "e1", AttendanceID: "a1", Status: StatusNotAttended}}}

	entry, ok := p.Entry("e1")
	require.True(t, ok)
	assert.Equal(t, "a1", entry.AttendanceID)
	assert.True(t, p.IsRegisteredFor("e1"))
	assert.False(t, p.IsRegisteredFor("e2"))
}

func TestParsePresence(t *testing.T) {
	attend := []time.Time{date("2021-10-21")}

	p, ok := ParsePresence("all")
	assert.True(t, ok)
	assert.False(t, p.Matches(attend, 2))
	assert.True(t, p.Matches(append(attend, date("2021-10-22")), 2))

	p, ok = ParsePresence("NONE")
	assert.True(t, ok)
	assert.True(t, p.Matches(nil, 2))
	assert.False(t, p.Matches(attend, 2))

	p, ok = ParsePresence("2021-10-21")
	assert.True(t, ok)
	assert.Equal(t, "2021-10-21", p.String())
	assert.True(t, p.Matches(attend, 2))
	assert.False(t, p.Matches([]time.Time{date("2021-10-22")}, 2))

	p, ok = ParsePresence("yesterday")
	assert.False(t, ok)
	assert.True(t, p.Matches(nil, 2))
}

func TestSortParticipants_Default(t *testing.T) {
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	ps := []*Participant{
		{ID: "old", Name: "A", Branch: "CSE", Year: 1, CreatedAt: base},
		{ID: "new-ece", Name: "B", Branch: "ECE", Year: 1, CreatedAt: base.Add(time.Hour)},
		{ID: "new-cse-y2", Name: "C", Branch: "CSE", Year: 2, CreatedAt: base.Add(time.Hour)},
		{ID: "new-cse-y1-z", Name: "Z", Branch: "CSE", Year: 1, CreatedAt: base.Add(time.Hour)},
		{ID: "new-cse-y1-d", Name: "D", Branch: "CSE", Year: 1, CreatedAt: base.Add(time.Hour)},
	}

	SortParticipants(ps, nil)

	var ids []string
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"new-cse-y1-d", "new-cse-y1-z", "new-cse-y2", "new-ece", "old"}, ids)
}

func TestSortParticipants_Override(t *testing.T) {
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	ps := []*Participant{
		{ID: "1", Name: "Zed", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "2", Name: "Amy", CreatedAt: base},
		{ID: "3", Name: "Amy", CreatedAt: base.Add(time.Hour)},
	}

	SortParticipants(ps, ParseSortKeys([]string{"name,createdAt", "bogus", "name"}))
	assert.Equal(t, "3", ps[0].ID)
	assert.Equal(t, "2", ps[1].ID)
	assert.Equal(t, "1", ps[2].ID)
}

func TestParseSortKeys(t *testing.T) {
	assert.Empty(t, ParseSortKeys(nil))
	assert.Equal(t, []SortKey{SortYear, SortCreatedAt}, ParseSortKeys([]string{"year", "password", "createdAt", "year"}))
}

func TestParticipantFilter_Matches(t *testing.T) {
	p := &Participant{Name: "Asha Rao", Email: "asha@example.com", Branch: "CSE", Year: 2}

	assert.True(t, (&ParticipantFilter{}).Matches(p))
	assert.True(t, (&ParticipantFilter{Query: "RAO"}).Matches(p))
	assert.True(t, (&ParticipantFilter{Query: "example"}).Matches(p))
	assert.True(t, (&ParticipantFilter{Query: "cs"}).Matches(p))
	assert.False(t, (&ParticipantFilter{Query: "xyz"}).Matches(p))
	assert.False(t, (&ParticipantFilter{Branch: "ECE"}).Matches(p))
	assert.False(t, (&ParticipantFilter{Year: 3}).Matches(p))
	assert.True(t, (&ParticipantFilter{Branch: "CSE", Year: 2}).Matches(p))
}

func TestComputeStats(t *testing.T) {
	event := &Event{StartDate: date("2021-10-21"), EndDate: date("2021-10-22"), Days: 2}

	var regs []*Registration
	add := func(status AttendanceStatus, days ...string) {
		a := &Attendance{}
		for _, d := range days {
			a.Attend = append(a.Attend, date(d))
		}
		regs = append(regs, &Registration{
			Participant: &Participant{},
			Entry:       EventEntry{Status: status},
			Attendance:  a,
		})
	}

	for i := 0; i < 3; i++ {
		add(StatusNotAttended)
	}
	for i := 0; i < 4; i++ {
		add(StatusAttended, "2021-10-21", "2021-10-22")
	}
	add(StatusPartiallyAttended, "2021-10-21")
	add(StatusPartiallyAttended, "2021-10-22")
	add(StatusPartiallyAttended, "2021-10-22")

	stats := ComputeStats(event, regs)

	assert.Equal(t, 10, stats.TotalRegistrations)
	assert.Equal(t, 3, stats.Present0Days)
	assert.Equal(t, 4, stats.PresentAllDays)
	assert.Equal(t, []int{5, 6}, stats.DayWiseAttendance)
	for _, n := range stats.DayWiseAttendance {
		assert.LessOrEqual(t, n, stats.TotalRegistrations)
	}
	assert.LessOrEqual(t, stats.Present0Days+stats.PresentAllDays, stats.TotalRegistrations)
}

func TestRegistration_ToRow(t *testing.T) {
	r := &Registration{
		Participant: &Participant{ID: "p1", Name: "Asha", Branch: "CSE", Year: 2, Phone: "9", Email: "a@x"},
		Attendance:  &Attendance{Attend: []time.Time{date("2021-10-22"), date("2021-10-21")}},
	}
	row := r.ToRow()
	assert.Equal(t, "p1", row.ID)
	assert.Equal(t, []time.Time{date("2021-10-21"), date("2021-10-22")}, row.Attendance)

	empty := (&Registration{Participant: &Participant{ID: "p2"}}).ToRow()
	assert.NotNil(t, empty.Attendance)
	assert.Empty(t, empty.Attendance)
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrEventIDRequired, CodeValidation},
		{NewValidationError("title is required"), CodeValidation},
		{fmt.Errorf("lookup: %w", ErrEventNotFound), CodeNotFound},
		{ErrParticipantExists, CodeAlreadyRegistered},
		{ErrAlreadyMarked, CodeAlreadyMarked},
		{ErrOutOfWindow, CodeOutOfWindow},
		{ErrInvalidCode, CodeInvalidCode},
		{ErrNotRegistered, CodeNotRegistered},
		{ErrUnauthorized, CodeAuth},
		{errors.New("db down"), CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CodeOf(tt.err), "%v", tt.err)
	}

	assert.Equal(t, "event not found", ErrEventNotFound.Error())
	assert.True(t, IsConflictError(ErrAlreadyMarked))
	assert.False(t, IsConflictError(ErrOutOfWindow))
}

func TestNewJob(t *testing.T) {
	now := time.Date(2021, 10, 21, 9, 0, 0, 0, time.UTC)
	job, err := NewJob("j1", JobDeleteEvent, DeleteEventParams{EventID: "e1"}, now)
	require.NoError(t, err)
	assert.Equal(t, JobDeleteEvent, job.Name)
	assert.JSONEq(t, `{"event_id":"e1"}`, string(job.Params))

	email := LoginCredsEmail(LoginCredsParams{Email: "a@x", Password: "pw", Name: "A", Role: RoleParticipant})
	assert.Equal(t, TemplateLoginCreds, email.Template)
	assert.Equal(t, "pw", email.Data["password"])
}
