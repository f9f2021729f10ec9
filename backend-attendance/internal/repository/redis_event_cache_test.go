package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	pkgredis "github.com/prohmpiriya/event-attendance/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEventRepository records calls that reach the backing store
type countingEventRepository struct {
	EventRepository
	byCode int
	byID   int
}

func (r *countingEventRepository) GetByCode(ctx context.Context, code string) (*domain.Event, error) {
	r.byCode++
	return r.EventRepository.GetByCode(ctx, code)
}

func (r *countingEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.byID++
	return r.EventRepository.GetByID(ctx, id)
}

func setupCache(t *testing.T) (*miniredis.Miniredis, *CachedEventRepository, *countingEventRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := pkgredis.NewFromAddr(mr.Addr())
	t.Cleanup(func() { client.Close() })

	store := NewMemoryStore()
	require.NoError(t, store.Events().Create(context.Background(), &domain.Event{
		ID: "evt-1", Title: "Hackathon", Code: "ABC123",
		StartDate: day("2021-10-21"), EndDate: day("2021-10-23"), Days: 3, IsRegistrationOpen: true,
	}))

	backing := &countingEventRepository{EventRepository: store.Events()}
	cache := NewCachedEventRepository(backing, client, time.Minute, nil)
	require.NoError(t, cache.LoadScripts(context.Background()))
	return mr, cache, backing
}

func TestCachedEventRepository_GetByCode(t *testing.T) {
	ctx := context.Background()
	mr, cache, backing := setupCache(t)

	event, err := cache.GetByCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, 1, backing.byCode)

	id, err := mr.Get("event:code:ABC123")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", id)
	assert.True(t, mr.Exists("event:id:evt-1"))

	event, err = cache.GetByCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", event.Title)
	assert.True(t, event.StartDate.Equal(day("2021-10-21")))
	assert.Equal(t, 1, backing.byCode, "second lookup should be served from cache")

	_, err = cache.GetByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestCachedEventRepository_UpdateCodeRetiresOldCode(t *testing.T) {
	ctx := context.Background()
	mr, cache, _ := setupCache(t)

	_, err := cache.GetByCode(ctx, "ABC123")
	require.NoError(t, err)

	require.NoError(t, cache.UpdateCode(ctx, "evt-1", "XYZ789"))

	old, err := mr.Get("event:code:ABC123")
	require.NoError(t, err)
	assert.Empty(t, old, "old code key holds the retired marker")
	assert.False(t, mr.Exists("event:id:evt-1"))

	_, err = cache.GetByCode(ctx, "ABC123")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	event, err := cache.GetByCode(ctx, "XYZ789")
	require.NoError(t, err)
	assert.Equal(t, "XYZ789", event.Code)
}

func TestCachedEventRepository_StaleEntryIsIgnored(t *testing.T) {
	ctx := context.Background()
	mr, cache, backing := setupCache(t)

	// a cached event whose code no longer matches the lookup
	require.NoError(t, mr.Set("event:code:ABC123", "evt-1"))
	require.NoError(t, mr.Set("event:id:evt-1", `{"id":"evt-1","code":"OLD000","days":3}`))

	event, err := cache.GetByCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", event.Code)
	assert.Equal(t, 1, backing.byCode)
}

func TestCachedEventRepository_WritesEvict(t *testing.T) {
	ctx := context.Background()
	mr, cache, _ := setupCache(t)

	_, err := cache.GetByID(ctx, "evt-1")
	require.NoError(t, err)
	require.True(t, mr.Exists("event:id:evt-1"))

	open, err := cache.ToggleRegistrationOpen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, open)
	assert.False(t, mr.Exists("event:id:evt-1"))

	event, err := cache.GetByID(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, event.IsRegistrationOpen)

	event.Title = "Renamed"
	require.NoError(t, cache.Update(ctx, event))
	assert.False(t, mr.Exists("event:id:evt-1"))

	require.NoError(t, cache.Delete(ctx, "evt-1"))
	_, err = cache.GetByID(ctx, "evt-1")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	_, err = cache.GetByCode(ctx, "ABC123")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestCachedEventRepository_RedisDown(t *testing.T) {
	ctx := context.Background()
	mr, cache, backing := setupCache(t)
	mr.Close()

	event, err := cache.GetByCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, 1, backing.byCode)
}
