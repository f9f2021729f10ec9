package service

import (
	"context"
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

// reportService implements ReportService
type reportService struct {
	eventRepo        repository.EventRepository
	participantRepo  repository.ParticipantRepository
	registrationRepo repository.RegistrationRepository
}

// NewReportService creates a new ReportService
func NewReportService(
	eventRepo repository.EventRepository,
	participantRepo repository.ParticipantRepository,
	registrationRepo repository.RegistrationRepository,
) ReportService {
	return &reportService{
		eventRepo:        eventRepo,
		participantRepo:  participantRepo,
		registrationRepo: registrationRepo,
	}
}

// ListAttendance returns one row per registrant matching filter and presence
func (s *reportService) ListAttendance(ctx context.Context, eventID string, filter *domain.ParticipantFilter, presence domain.PresencePattern) ([]domain.AttendanceRow, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.report.list_attendance")
	defer span.End()
	defer recordDuration(ctx, "attendance", time.Now())

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("presence", presence.String()),
	)

	if eventID == "" {
		return nil, domain.ErrEventIDRequired
	}
	if filter == nil {
		filter = &domain.ParticipantFilter{}
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	regs, err := s.registrationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	matched := make([]*domain.Registration, 0, len(regs))
	for _, r := range regs {
		if !filter.Matches(r.Participant) {
			continue
		}
		if !presence.Matches(r.Days(), event.Days) {
			continue
		}
		matched = append(matched, r)
	}
	domain.SortRegistrations(matched, filter.SortBy)

	rows := make([]domain.AttendanceRow, 0, len(matched))
	for _, r := range matched {
		rows = append(rows, r.ToRow())
	}

	span.SetAttributes(attribute.Int("rows", len(rows)))
	span.SetStatus(codes.Ok, "")
	return rows, nil
}

// EventStats aggregates check-ins for an event
func (s *reportService) EventStats(ctx context.Context, eventID string) (*domain.EventStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.report.event_stats")
	defer span.End()
	defer recordDuration(ctx, "stats", time.Now())

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		return nil, domain.ErrEventIDRequired
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	regs, err := s.registrationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return domain.ComputeStats(event, regs), nil
}

// ParticipantProfile returns a participant with each registered event and its days.
// Entries whose event no longer exists are skipped.
func (s *reportService) ParticipantProfile(ctx context.Context, participantID string) (*domain.ParticipantProfile, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.report.participant_profile")
	defer span.End()

	span.SetAttributes(attribute.String("participant_id", participantID))

	if participantID == "" {
		return nil, domain.ErrParticipantIDRequired
	}

	p, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	profile := &domain.ParticipantProfile{
		Profile: domain.ProfileData{
			ID:     p.ID,
			Name:   p.Name,
			Email:  p.Email,
			Branch: p.Branch,
			Year:   p.Year,
			Phone:  p.Phone,
		},
		Events: make([]domain.ProfileEvent, 0, len(p.Events)),
	}

	for _, entry := range p.Events {
		event, err := s.eventRepo.GetByID(ctx, entry.EventID)
		if domain.IsNotFoundError(err) {
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		days := []time.Time{}
		attendance, err := s.registrationRepo.GetAttendanceByID(ctx, entry.AttendanceID)
		switch {
		case err == nil:
			days = append(days, attendance.Attend...)
			domain.SortDays(days)
		case domain.IsNotFoundError(err):
			logger.Get().Warn("ledger entry without attendance record",
				zap.String("participant_id", p.ID),
				zap.String("attendance_id", entry.AttendanceID),
			)
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		profile.Events = append(profile.Events, domain.ProfileEvent{
			EventEntry: entry,
			Attendance: days,
			Details:    event.Summary(),
		})
	}

	span.SetStatus(codes.Ok, "")
	return profile, nil
}

// UserEventAttendance returns an event with the raw days of one attendance record
func (s *reportService) UserEventAttendance(ctx context.Context, eventID, attendanceID string) (*domain.UserEventAttendance, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.report.user_event_attendance")
	defer span.End()

	if eventID == "" {
		return nil, domain.ErrEventIDRequired
	}
	if attendanceID == "" {
		return nil, domain.NewValidationError("attendance id is required")
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	attendance, err := s.registrationRepo.GetAttendanceByID(ctx, attendanceID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if attendance.EventID != eventID {
		span.SetStatus(codes.Error, "attendance belongs to another event")
		return nil, domain.ErrAttendanceNotFound
	}

	days := append([]time.Time{}, attendance.Attend...)
	domain.SortDays(days)

	span.SetStatus(codes.Ok, "")
	return &domain.UserEventAttendance{
		Event:         event,
		ParticipantID: attendance.ParticipantID,
		Attendance:    days,
	}, nil
}

func recordDuration(ctx context.Context, report string, start time.Time) {
	metrics.RecordReportDuration(ctx, report, time.Since(start).Seconds())
}
