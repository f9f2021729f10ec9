package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/metrics"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/repository"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// AttendanceServiceConfig contains configuration for the attendance service
type AttendanceServiceConfig struct {
	// Location decides which calendar day a check-in falls on
	Location *time.Location
}

// attendanceService implements AttendanceService
type attendanceService struct {
	eventRepo        repository.EventRepository
	registrationRepo repository.RegistrationRepository
	location         *time.Location
}

// NewAttendanceService creates a new AttendanceService
func NewAttendanceService(
	eventRepo repository.EventRepository,
	registrationRepo repository.RegistrationRepository,
	cfg *AttendanceServiceConfig,
) AttendanceService {
	loc := time.UTC
	if cfg != nil && cfg.Location != nil {
		loc = cfg.Location
	}
	return &attendanceService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		location:         loc,
	}
}

// CheckIn records attendance for the calendar day of now
func (s *attendanceService) CheckIn(ctx context.Context, code, participantID string, now time.Time) (*domain.CheckInResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.attendance.check_in")
	defer span.End()

	result, err := s.checkIn(ctx, strings.TrimSpace(code), participantID, now)

	outcome := "ok"
	if err != nil {
		outcome = domain.CodeOf(err)
		span.SetStatus(codes.Error, err.Error())
		if outcome == domain.CodeInternal {
			span.RecordError(err)
			logger.Get().Error("check-in failed",
				zap.String("participant_id", participantID),
				zap.Error(err),
			)
		}
	} else {
		span.SetAttributes(
			attribute.String("event_id", result.Event.ID),
			attribute.String("status", string(result.Status)),
		)
		span.SetStatus(codes.Ok, "")
	}
	metrics.RecordCheckIn(ctx, outcome)

	return result, err
}

func (s *attendanceService) checkIn(ctx context.Context, code, participantID string, now time.Time) (*domain.CheckInResult, error) {
	if participantID == "" {
		return nil, domain.ErrUnauthorized
	}
	if code == "" {
		return nil, domain.ErrCodeRequired
	}

	event, err := s.eventRepo.GetByCode(ctx, code)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return nil, domain.ErrInvalidCode
		}
		return nil, err
	}

	attendance, err := s.registrationRepo.GetAttendance(ctx, participantID, event.ID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return nil, domain.ErrNotRegistered
		}
		return nil, err
	}

	day := domain.DayIn(now, s.location)
	if !event.InWindow(day) {
		return nil, domain.ErrOutOfWindow
	}
	if attendance.HasDay(day) {
		return nil, domain.ErrAlreadyMarked
	}

	updated, status, err := s.registrationRepo.RecordCheckIn(ctx, attendance.ID, day, event.Days)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotRegistered
		}
		return nil, err
	}

	return &domain.CheckInResult{
		Event:      event,
		Attendance: updated,
		Day:        day,
		Status:     status,
	}, nil
}
