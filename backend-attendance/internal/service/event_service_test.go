package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateEventRequest() *dto.CreateEventRequest {
	return &dto.CreateEventRequest{
		Title:     "Hackathon",
		Venue:     "Main Hall",
		StartDate: "2021-10-21",
		EndDate:   "2021-10-23",
		Days:      3,
	}
}

func TestEventService_CreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		event, err := f.events.CreateEvent(ctx, validCreateEventRequest())
		require.NoError(t, err)

		assert.NotEmpty(t, event.ID)
		assert.Len(t, event.Code, 6)
		assert.True(t, event.IsRegistrationOpen)
		assert.True(t, event.IsRegistrationRequired)

		got, err := f.events.LookupByCode(ctx, event.Code)
		require.NoError(t, err)
		assert.Equal(t, event.ID, got.ID)
	})

	t.Run("validation error", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateEventRequest()
		req.EndDate = "2021-10-20"

		_, err := f.events.CreateEvent(ctx, req)
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("mismatched days are kept", func(t *testing.T) {
		f := newFixture(t)
		req := validCreateEventRequest()
		req.Days = 2

		event, err := f.events.CreateEvent(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 2, event.Days)
	})

	t.Run("retries taken codes", func(t *testing.T) {
		f := newFixture(t)
		calls := 0
		repo := &MockEventRepository{
			EventRepository: f.store.Events(),
			CodeExistsFunc: func(ctx context.Context, code string) (bool, error) {
				calls++
				return calls < 3, nil
			},
		}
		svc := NewEventService(repo, f.publisher, nil)

		_, err := svc.CreateEvent(ctx, validCreateEventRequest())
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up when every code is taken", func(t *testing.T) {
		f := newFixture(t)
		repo := &MockEventRepository{
			EventRepository: f.store.Events(),
			CodeExistsFunc: func(ctx context.Context, code string) (bool, error) {
				return true, nil
			},
		}
		svc := NewEventService(repo, f.publisher, nil)

		_, err := svc.CreateEvent(ctx, validCreateEventRequest())
		assert.ErrorIs(t, err, domain.ErrCodeCollision)
	})

	t.Run("insert race retries with a new code", func(t *testing.T) {
		f := newFixture(t)
		attempts := 0
		repo := &MockEventRepository{
			EventRepository: f.store.Events(),
			CreateFunc: func(ctx context.Context, event *domain.Event) error {
				attempts++
				if attempts == 1 {
					return domain.ErrCodeCollision
				}
				return f.store.Events().Create(ctx, event)
			},
		}
		svc := NewEventService(repo, f.publisher, &EventServiceConfig{CodeLength: 8})

		event, err := svc.CreateEvent(ctx, validCreateEventRequest())
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.Len(t, event.Code, 8)
	})
}

func TestEventService_UpdateEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.seedEvent(t, "evt-1", "ABC123", "2021-10-21", "2021-10-23", 3)

	title := "Renamed"
	updated, err := f.events.UpdateEvent(ctx, event.ID, &dto.UpdateEventRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "ABC123", updated.Code)

	end := "2021-10-01"
	_, err = f.events.UpdateEvent(ctx, event.ID, &dto.UpdateEventRequest{EndDate: &end})
	assert.True(t, domain.IsValidationError(err))

	_, err = f.events.UpdateEvent(ctx, "missing", &dto.UpdateEventRequest{Title: &title})
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestEventService_RegenerateCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.seedEvent(t, "evt-1", "ABC123", "2021-10-21", "2021-10-23", 3)

	code, err := f.events.RegenerateCode(ctx, event.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "ABC123", code)

	_, err = f.events.LookupByCode(ctx, "ABC123")
	assert.True(t, domain.IsNotFoundError(err))

	got, err := f.events.LookupByCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)

	_, err = f.events.RegenerateCode(ctx, "missing")
	assert.True(t, domain.IsNotFoundError(err))
}

func TestEventService_ToggleRegistrationOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.seedEvent(t, "evt-1", "ABC123", "2021-10-21", "2021-10-23", 3)

	open, err := f.events.ToggleRegistrationOpen(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, open)

	open, err = f.events.ToggleRegistrationOpen(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, open)

	_, err = f.events.ToggleRegistrationOpen(ctx, "")
	assert.ErrorIs(t, err, domain.ErrEventIDRequired)

	open, err = f.events.ToggleRegistrationOpen(ctx, "missing")
	assert.True(t, domain.IsNotFoundError(err))
	assert.False(t, open)
}

func TestEventService_DeleteEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("queues deletion and keeps data", func(t *testing.T) {
		f := newFixture(t)
		event := f.seedEvent(t, "evt-1", "ABC123", "2021-10-21", "2021-10-23", 3)

		require.NoError(t, f.events.DeleteEvent(ctx, event.ID))
		assert.Equal(t, []string{event.ID}, f.publisher.DeletedEvents)

		_, err := f.events.GetEvent(ctx, event.ID)
		assert.NoError(t, err)
	})

	t.Run("missing event", func(t *testing.T) {
		f := newFixture(t)
		err := f.events.DeleteEvent(ctx, "missing")
		assert.True(t, domain.IsNotFoundError(err))
		assert.Empty(t, f.publisher.DeletedEvents)
	})

	t.Run("publisher failure is not surfaced", func(t *testing.T) {
		f := newFixture(t)
		event := f.seedEvent(t, "evt-1", "ABC123", "2021-10-21", "2021-10-23", 3)
		f.publisher.PublishDeleteEventFunc = func(ctx context.Context, eventID string) error {
			return errors.New("broker down")
		}

		assert.NoError(t, f.events.DeleteEvent(ctx, event.ID))
	})
}

func TestEventService_ListEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedEvent(t, "evt-1", "AAA111", "2021-10-21", "2021-10-23", 3)
	f.seedEvent(t, "evt-2", "BBB222", "2021-11-01", "2021-11-01", 1)

	events, total, err := f.events.ListEvents(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, events, 2)

	got, err := f.events.GetEvent(ctx, "evt-2")
	require.NoError(t, err)
	assert.Equal(t, "BBB222", got.Code)

	_, err = f.events.GetEvent(ctx, "")
	assert.ErrorIs(t, err, domain.ErrEventIDRequired)
}
