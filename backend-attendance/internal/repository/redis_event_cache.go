package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	pkgredis "github.com/prohmpiriya/event-attendance/pkg/redis"
	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

//go:embed scripts/retire_event_code.lua
var retireEventCodeScript string

const scriptRetireEventCode = "retire_event_code"

// CachedEventRepository is a read-through Redis cache in front of an EventRepository.
// Code lookups go through event:code:<code> -> id and event:id:<id> -> JSON.
// Cache errors are logged and the call falls back to the wrapped repository.
type CachedEventRepository struct {
	EventRepository
	client *pkgredis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewCachedEventRepository wraps next with a Redis cache
func NewCachedEventRepository(next EventRepository, client *pkgredis.Client, ttl time.Duration, log *logger.Logger) *CachedEventRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedEventRepository{EventRepository: next, client: client, ttl: ttl, log: log}
}

// LoadScripts preloads the Lua scripts used by the cache
func (r *CachedEventRepository) LoadScripts(ctx context.Context) error {
	if _, err := r.client.LoadScript(ctx, scriptRetireEventCode, retireEventCodeScript); err != nil {
		return fmt.Errorf("failed to load script %s: %w", scriptRetireEventCode, err)
	}
	return nil
}

func codeKey(code string) string { return fmt.Sprintf("event:code:%s", code) }
func idKey(id string) string     { return fmt.Sprintf("event:id:%s", id) }

// GetByID returns the cached event, loading it on a miss
func (r *CachedEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.event_cache.get_by_id")
	defer span.End()

	raw, err := r.client.Get(ctx, idKey(id)).Bytes()
	if err == nil {
		var event domain.Event
		if err := json.Unmarshal(raw, &event); err == nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return &event, nil
		}
		r.log.Warn("dropping undecodable cached event", zap.String("event_id", id))
		r.client.Del(ctx, idKey(id))
	} else if !errors.Is(err, pkgredis.Nil) {
		r.log.Warn("event cache read failed", zap.String("event_id", id), zap.Error(err))
	}

	span.SetAttributes(attribute.Bool("cache_hit", false))
	event, err := r.EventRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.storeEvent(ctx, event)
	return event, nil
}

// GetByCode resolves a code through the cache. A cached event whose code no
// longer matches is treated as a miss.
func (r *CachedEventRepository) GetByCode(ctx context.Context, code string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.event_cache.get_by_code")
	defer span.End()

	id, err := r.client.Get(ctx, codeKey(code)).Result()
	switch {
	case err == nil && id != "":
		event, err := r.GetByID(ctx, id)
		if err == nil && event.Code == code {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return event, nil
		}
		r.client.Del(ctx, codeKey(code))
	case err != nil && !errors.Is(err, pkgredis.Nil):
		r.log.Warn("event code cache read failed", zap.Error(err))
	}

	span.SetAttributes(attribute.Bool("cache_hit", false))
	event, err := r.EventRepository.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.storeEvent(ctx, event)
	if err := r.client.SetNX(ctx, codeKey(code), event.ID, r.ttl).Err(); err != nil {
		r.log.Warn("event code cache write failed", zap.Error(err))
	}
	return event, nil
}

// Update writes through and drops the cached event
func (r *CachedEventRepository) Update(ctx context.Context, event *domain.Event) error {
	if err := r.EventRepository.Update(ctx, event); err != nil {
		return err
	}
	r.evict(ctx, event.ID)
	return nil
}

// UpdateCode writes through, retires the old code and points the new code at the event
func (r *CachedEventRepository) UpdateCode(ctx context.Context, id, code string) error {
	current, err := r.EventRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.EventRepository.UpdateCode(ctx, id, code); err != nil {
		return err
	}
	r.retire(ctx, current.Code, id, code)
	return nil
}

// ToggleRegistrationOpen writes through and drops the cached event
func (r *CachedEventRepository) ToggleRegistrationOpen(ctx context.Context, id string) (bool, error) {
	open, err := r.EventRepository.ToggleRegistrationOpen(ctx, id)
	if err != nil {
		return false, err
	}
	r.evict(ctx, id)
	return open, nil
}

// Delete removes the event and retires its code in the cache
func (r *CachedEventRepository) Delete(ctx context.Context, id string) error {
	current, err := r.EventRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.EventRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.retire(ctx, current.Code, id, "")
	return nil
}

func (r *CachedEventRepository) storeEvent(ctx context.Context, event *domain.Event) {
	raw, err := json.Marshal(event)
	if err != nil {
		r.log.Warn("failed to encode event for cache", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, idKey(event.ID), raw, r.ttl).Err(); err != nil {
		r.log.Warn("event cache write failed", zap.String("event_id", event.ID), zap.Error(err))
	}
}

func (r *CachedEventRepository) evict(ctx context.Context, id string) {
	if err := r.client.Del(ctx, idKey(id)).Err(); err != nil {
		r.log.Warn("event cache evict failed", zap.String("event_id", id), zap.Error(err))
	}
}

func (r *CachedEventRepository) retire(ctx context.Context, oldCode, id, newCode string) {
	keys := []string{codeKey(oldCode), idKey(id)}
	if newCode != "" {
		keys = append(keys, codeKey(newCode))
	}
	ttl := int64(r.ttl / time.Second)
	if ttl < 1 {
		ttl = 1
	}

	err := r.client.EvalWithFallback(ctx, scriptRetireEventCode, retireEventCodeScript, keys, id, ttl).Err()
	if err != nil {
		r.log.Error("failed to retire event code in cache",
			zap.String("event_id", id), zap.Error(err))
		r.client.Del(ctx, keys...)
	}
}
