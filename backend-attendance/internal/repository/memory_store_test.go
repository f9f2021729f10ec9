package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedStore(t *testing.T) (*MemoryStore, *domain.Event, *domain.Participant) {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()

	event := &domain.Event{
		ID: "evt-1", Title: "Hackathon", Code: "ABC123",
		StartDate: day("2021-10-21"), EndDate: day("2021-10-23"), Days: 3,
		IsRegistrationOpen: true, CreatedAt: time.Now(),
	}
	require.NoError(t, store.Events().Create(ctx, event))

	p := &domain.Participant{ID: "p-1", Name: "Asha", Email: "asha@example.com", Branch: "CSE", Year: 2, Phone: "99999"}
	require.NoError(t, store.Participants().Create(ctx, p))
	return store, event, p
}

func register(t *testing.T, store *MemoryStore, participantID, eventID, attendanceID string) {
	t.Helper()
	now := time.Now()
	err := store.Registrations().Register(context.Background(),
		&domain.Attendance{ID: attendanceID, ParticipantID: participantID, EventID: eventID, CreatedAt: now, UpdatedAt: now},
		domain.EventEntry{EventID: eventID, AttendanceID: attendanceID, Status: domain.StatusNotAttended, RegisteredAt: now},
	)
	require.NoError(t, err)
}

func TestMemoryEventRepository(t *testing.T) {
	ctx := context.Background()
	store, event, _ := seedStore(t)
	events := store.Events()

	t.Run("code collision on create", func(t *testing.T) {
		err := events.Create(ctx, &domain.Event{ID: "evt-2", Code: "ABC123"})
		assert.ErrorIs(t, err, domain.ErrCodeCollision)
	})

	t.Run("lookup by code", func(t *testing.T) {
		got, err := events.GetByCode(ctx, "ABC123")
		require.NoError(t, err)
		assert.Equal(t, event.ID, got.ID)

		_, err = events.GetByCode(ctx, "NOPE")
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
	})

	t.Run("update keeps code", func(t *testing.T) {
		changed := *event
		changed.Title = "Renamed"
		changed.Code = "HIJACK"
		require.NoError(t, events.Update(ctx, &changed))

		got, err := events.GetByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, "ABC123", got.Code)
	})

	t.Run("update code invalidates old code", func(t *testing.T) {
		require.NoError(t, events.UpdateCode(ctx, event.ID, "NEW999"))

		_, err := events.GetByCode(ctx, "ABC123")
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
		exists, err := events.CodeExists(ctx, "NEW999")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("toggle registration", func(t *testing.T) {
		open, err := events.ToggleRegistrationOpen(ctx, event.ID)
		require.NoError(t, err)
		assert.False(t, open)
		open, err = events.ToggleRegistrationOpen(ctx, event.ID)
		require.NoError(t, err)
		assert.True(t, open)
	})

	t.Run("returned events are copies", func(t *testing.T) {
		got, _ := events.GetByID(ctx, event.ID)
		got.Title = "mutated"
		again, _ := events.GetByID(ctx, event.ID)
		assert.NotEqual(t, "mutated", again.Title)
	})
}

func TestMemoryEventRepository_List(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Now()
	for i, title := range []string{"Alpha", "Beta", "Gamma"} {
		require.NoError(t, store.Events().Create(ctx, &domain.Event{
			ID: title, Title: title, Code: title, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	events, total, err := store.Events().List(ctx, nil, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, events, 2)
	assert.Equal(t, "Gamma", events[0].ID)

	events, total, err = store.Events().List(ctx, &EventFilter{Search: "bet"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Beta", events[0].ID)
}

func TestMemoryParticipantRepository(t *testing.T) {
	ctx := context.Background()
	store, _, p := seedStore(t)
	participants := store.Participants()

	err := participants.Create(ctx, &domain.Participant{ID: "p-2", Name: "Other", Email: "ASHA@example.com"})
	assert.ErrorIs(t, err, domain.ErrParticipantExists)

	candidates, err := participants.FindCandidates(ctx, "none@example.com", "ASHA")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, p.ID, candidates[0].ID)

	_, err = participants.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrParticipantNotFound)
}

func TestMemoryRegistrationRepository_Register(t *testing.T) {
	ctx := context.Background()
	store, event, p := seedStore(t)
	regs := store.Registrations()

	register(t, store, p.ID, event.ID, "att-1")

	err := regs.Register(ctx,
		&domain.Attendance{ID: "att-2", ParticipantID: p.ID, EventID: event.ID},
		domain.EventEntry{EventID: event.ID, AttendanceID: "att-2", Status: domain.StatusNotAttended},
	)
	assert.ErrorIs(t, err, domain.ErrAlreadyRegistered)

	_, err = regs.GetAttendanceByID(ctx, "att-2")
	assert.ErrorIs(t, err, domain.ErrAttendanceNotFound, "a failed registration must not leave an attendance record")

	got, err := store.Participants().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, domain.StatusNotAttended, got.Events[0].Status)

	a, err := regs.GetAttendance(ctx, p.ID, event.ID)
	require.NoError(t, err)
	assert.Empty(t, a.Attend)
}

func TestMemoryRegistrationRepository_ConcurrentRegister(t *testing.T) {
	ctx := context.Background()
	store, event, p := seedStore(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "att-" + string(rune('a'+i))
			err := store.Registrations().Register(ctx,
				&domain.Attendance{ID: id, ParticipantID: p.ID, EventID: event.ID},
				domain.EventEntry{EventID: event.ID, AttendanceID: id, Status: domain.StatusNotAttended},
			)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	got, _ := store.Participants().GetByID(ctx, p.ID)
	assert.Len(t, got.Events, 1)
}

func TestMemoryRegistrationRepository_RecordCheckIn(t *testing.T) {
	ctx := context.Background()
	store, event, p := seedStore(t)
	regs := store.Registrations()
	register(t, store, p.ID, event.ID, "att-1")

	a, status, err := regs.RecordCheckIn(ctx, "att-1", day("2021-10-22"), event.Days)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartiallyAttended, status)
	assert.Equal(t, []time.Time{day("2021-10-22")}, a.Attend)

	_, _, err = regs.RecordCheckIn(ctx, "att-1", day("2021-10-22").Add(5*time.Hour), event.Days)
	assert.ErrorIs(t, err, domain.ErrAlreadyMarked)

	a, _, err = regs.RecordCheckIn(ctx, "att-1", day("2021-10-21"), event.Days)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2021-10-21"), day("2021-10-22")}, a.Attend)

	_, _, err = regs.RecordCheckIn(ctx, "missing", day("2021-10-21"), event.Days)
	assert.ErrorIs(t, err, domain.ErrAttendanceNotFound)

	got, _ := store.Participants().GetByID(ctx, p.ID)
	assert.Equal(t, domain.StatusPartiallyAttended, got.Events[0].Status)
}

func TestMemoryRegistrationRepository_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store, event, p := seedStore(t)
	require.NoError(t, store.Participants().Create(ctx, &domain.Participant{ID: "p-2", Name: "Ravi", Email: "ravi@example.com"}))
	register(t, store, p.ID, event.ID, "att-1")
	register(t, store, "p-2", event.ID, "att-2")

	regs, err := store.Registrations().ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, regs, 2)

	listed, err := store.Participants().List(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	deleted, err := store.Registrations().DeleteEventData(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	regs, err = store.Registrations().ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, regs)
	got, _ := store.Participants().GetByID(ctx, p.ID)
	assert.Empty(t, got.Events)
}
