package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/dto"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/repository"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const maxCodeAttempts = 10

// EventServiceConfig contains configuration for the event service
type EventServiceConfig struct {
	CodeLength int
}

// eventService implements EventService
type eventService struct {
	eventRepo    repository.EventRepository
	jobPublisher JobPublisher
	codeLength   int
}

// NewEventService creates a new EventService
func NewEventService(eventRepo repository.EventRepository, jobPublisher JobPublisher, cfg *EventServiceConfig) EventService {
	codeLength := 6
	if cfg != nil && cfg.CodeLength > 0 {
		codeLength = cfg.CodeLength
	}
	if jobPublisher == nil {
		jobPublisher = NewNoOpJobPublisher()
	}
	return &eventService{
		eventRepo:    eventRepo,
		jobPublisher: jobPublisher,
		codeLength:   codeLength,
	}
}

// CreateEvent creates a new event with a unique code
func (s *eventService) CreateEvent(ctx context.Context, req *dto.CreateEventRequest) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.create")
	defer span.End()

	if req == nil {
		return nil, domain.NewValidationError("request body is required")
	}
	if valid, msg := req.Validate(); !valid {
		span.SetStatus(codes.Error, msg)
		return nil, domain.NewValidationError("%s", msg)
	}

	event := req.ToDomain()
	s.warnOnScheduleMismatch(event)

	now := time.Now()
	event.ID = uuid.New().String()
	event.CreatedAt = now
	event.UpdatedAt = now

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.uniqueCode(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		event.Code = code

		err = s.eventRepo.Create(ctx, event)
		if errors.Is(err, domain.ErrCodeCollision) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		span.SetAttributes(attribute.String("event_id", event.ID))
		span.SetStatus(codes.Ok, "")
		return event, nil
	}

	span.SetStatus(codes.Error, "code collision")
	return nil, domain.ErrCodeCollision
}

// GetEvent retrieves an event by ID
func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.get")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if id == "" {
		return nil, domain.ErrEventIDRequired
	}
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// LookupByCode resolves a check-in code
func (s *eventService) LookupByCode(ctx context.Context, code string) (*domain.Event, error) {
	if code == "" {
		return nil, domain.ErrCodeRequired
	}
	return s.eventRepo.GetByCode(ctx, code)
}

// ListEvents lists events newest first
func (s *eventService) ListEvents(ctx context.Context, filter *dto.EventListFilter) ([]*domain.Event, int, error) {
	if filter == nil {
		filter = &dto.EventListFilter{}
	}
	filter.SetDefaults()

	ctx, span := telemetry.StartSpan(ctx, "service.event.list")
	defer span.End()

	events, total, err := s.eventRepo.List(ctx, &repository.EventFilter{Search: filter.Search}, filter.Limit, filter.Offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("total", total))
	span.SetStatus(codes.Ok, "")
	return events, total, nil
}

// UpdateEvent updates event details. The code is left untouched.
func (s *eventService) UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.update")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if id == "" {
		return nil, domain.ErrEventIDRequired
	}
	if req == nil {
		return nil, domain.NewValidationError("request body is required")
	}
	if valid, msg := req.Validate(); !valid {
		span.SetStatus(codes.Error, msg)
		return nil, domain.NewValidationError("%s", msg)
	}

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	req.Apply(event)
	if err := event.ValidateSchedule(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.warnOnScheduleMismatch(event)

	if err := s.eventRepo.Update(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// RegenerateCode replaces the event code with a new unique one
func (s *eventService) RegenerateCode(ctx context.Context, id string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.regenerate_code")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if id == "" {
		return "", domain.ErrEventIDRequired
	}
	if _, err := s.eventRepo.GetByID(ctx, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.uniqueCode(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}

		err = s.eventRepo.UpdateCode(ctx, id, code)
		if errors.Is(err, domain.ErrCodeCollision) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}

		logger.Get().Info("event code regenerated", zap.String("event_id", id))
		span.SetStatus(codes.Ok, "")
		return code, nil
	}

	span.SetStatus(codes.Error, "code collision")
	return "", domain.ErrCodeCollision
}

// ToggleRegistrationOpen flips the registration flag
func (s *eventService) ToggleRegistrationOpen(ctx context.Context, id string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.toggle_registration")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if id == "" {
		return false, domain.ErrEventIDRequired
	}
	open, err := s.eventRepo.ToggleRegistrationOpen(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	logger.Get().Info("event registration toggled", zap.String("event_id", id), zap.Bool("open", open))
	span.SetAttributes(attribute.Bool("registration_open", open))
	span.SetStatus(codes.Ok, "")
	return open, nil
}

// DeleteEvent verifies the event exists and queues its deletion. Nothing is removed synchronously.
func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.delete")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if id == "" {
		return domain.ErrEventIDRequired
	}
	if _, err := s.eventRepo.GetByID(ctx, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := s.jobPublisher.PublishDeleteEvent(ctx, id); err != nil {
		logger.Get().Warn("failed to queue event deletion", zap.String("event_id", id), zap.Error(err))
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// uniqueCode generates codes until one is not already assigned
func (s *eventService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := domain.GenerateCode(s.codeLength)
		if err != nil {
			return "", err
		}
		exists, err := s.eventRepo.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", domain.ErrCodeCollision
}

func (s *eventService) warnOnScheduleMismatch(event *domain.Event) {
	if event.ScheduleMismatch() {
		logger.Get().Warn("event days differ from its date range",
			zap.String("event_id", event.ID),
			zap.Int("days", event.Days),
			zap.Int("calendar_days", domain.CountDays(event.StartDate, event.EndDate)),
		)
	}
}
