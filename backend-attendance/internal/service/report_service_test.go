package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedTwoDayEvent registers ten participants to a two-day event:
// three never check in, four check in both days, three only on day one.
func seedTwoDayEvent(t *testing.T, f *fixture) *domain.Event {
	t.Helper()
	ctx := context.Background()
	event := f.seedEvent(t, "evt-1", "TWO222", "2021-10-21", "2021-10-22", 2)

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("p%02d", i)
		p := f.seedParticipant(t, id, "Name "+id, "CSE", 1+i%4)
		_, err := f.registration.Register(ctx, p.ID, event.ID)
		require.NoError(t, err)

		switch {
		case i < 3:
		case i < 7:
			_, err = f.attendance.CheckIn(ctx, event.Code, p.ID, at("2021-10-21"))
			require.NoError(t, err)
			_, err = f.attendance.CheckIn(ctx, event.Code, p.ID, at("2021-10-22"))
			require.NoError(t, err)
		default:
			_, err = f.attendance.CheckIn(ctx, event.Code, p.ID, at("2021-10-21"))
			require.NoError(t, err)
		}
	}
	return event
}

func TestReportService_EventStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := seedTwoDayEvent(t, f)

	stats, err := f.reports.EventStats(ctx, event.ID)
	require.NoError(t, err)

	assert.Equal(t, 10, stats.TotalRegistrations)
	assert.Equal(t, 3, stats.Present0Days)
	assert.Equal(t, 4, stats.PresentAllDays)
	assert.Equal(t, []int{7, 4}, stats.DayWiseAttendance)

	_, err = f.reports.EventStats(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestReportService_ListAttendance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := seedTwoDayEvent(t, f)

	t.Run("none", func(t *testing.T) {
		rows, err := f.reports.ListAttendance(ctx, event.ID, nil, domain.PresenceNone)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		for _, r := range rows {
			assert.Empty(t, r.Attendance)
		}
	})

	t.Run("all", func(t *testing.T) {
		rows, err := f.reports.ListAttendance(ctx, event.ID, nil, domain.PresenceAll)
		require.NoError(t, err)
		assert.Len(t, rows, 4)
	})

	t.Run("present on day two", func(t *testing.T) {
		rows, err := f.reports.ListAttendance(ctx, event.ID, nil, domain.PresentOn(day("2021-10-22")))
		require.NoError(t, err)
		assert.Len(t, rows, 4)
	})

	t.Run("any sorted by name", func(t *testing.T) {
		rows, err := f.reports.ListAttendance(ctx, event.ID,
			&domain.ParticipantFilter{SortBy: []domain.SortKey{domain.SortName}}, domain.PresenceAny)
		require.NoError(t, err)
		require.Len(t, rows, 10)
		assert.Equal(t, "p00", rows[0].ID)
		assert.Equal(t, "p09", rows[9].ID)
	})

	t.Run("year filter", func(t *testing.T) {
		rows, err := f.reports.ListAttendance(ctx, event.ID, &domain.ParticipantFilter{Year: 1}, domain.PresenceAny)
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("missing event", func(t *testing.T) {
		_, err := f.reports.ListAttendance(ctx, "missing", nil, domain.PresenceAny)
		assert.True(t, domain.IsNotFoundError(err))
	})
}

func TestReportService_ParticipantProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.seedEvent(t, "evt-1", "AAA111", "2021-10-21", "2021-10-23", 3)
	second := f.seedEvent(t, "evt-2", "BBB222", "2021-11-01", "2021-11-01", 1)
	p := f.seedParticipant(t, "p1", "Asha", "CSE", 2)

	for _, e := range []*domain.Event{first, second} {
		_, err := f.registration.Register(ctx, p.ID, e.ID)
		require.NoError(t, err)
	}
	_, err := f.attendance.CheckIn(ctx, first.Code, p.ID, at("2021-10-22"))
	require.NoError(t, err)

	// an event removed out from under its ledger entry is skipped
	require.NoError(t, f.store.Events().Delete(ctx, second.ID))

	profile, err := f.reports.ParticipantProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", profile.Profile.Name)
	require.Len(t, profile.Events, 1)
	assert.Equal(t, first.ID, profile.Events[0].EventID)
	assert.Equal(t, []time.Time{day("2021-10-22")}, profile.Events[0].Attendance)
	assert.Equal(t, first.Title, profile.Events[0].Details.Title)
	assert.Equal(t, domain.StatusPartiallyAttended, profile.Events[0].Status)

	_, err = f.reports.ParticipantProfile(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrParticipantNotFound)
}

func TestReportService_UserEventAttendance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.seedEvent(t, "evt-1", "AAA111", "2021-10-21", "2021-10-23", 3)
	other := f.seedEvent(t, "evt-2", "BBB222", "2021-11-01", "2021-11-01", 1)
	p := f.seedParticipant(t, "p1", "Asha", "CSE", 2)

	entry, err := f.registration.Register(ctx, p.ID, event.ID)
	require.NoError(t, err)
	_, err = f.attendance.CheckIn(ctx, event.Code, p.ID, at("2021-10-23"))
	require.NoError(t, err)
	_, err = f.attendance.CheckIn(ctx, event.Code, p.ID, at("2021-10-21"))
	require.NoError(t, err)

	got, err := f.reports.UserEventAttendance(ctx, event.ID, entry.AttendanceID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ParticipantID)
	assert.Equal(t, []time.Time{day("2021-10-21"), day("2021-10-23")}, got.Attendance)

	_, err = f.reports.UserEventAttendance(ctx, other.ID, entry.AttendanceID)
	assert.ErrorIs(t, err, domain.ErrAttendanceNotFound)
}
