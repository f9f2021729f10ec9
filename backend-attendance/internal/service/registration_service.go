package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/dto"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/metrics"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/repository"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#$%"

// RegistrationServiceConfig contains configuration for the registration service
type RegistrationServiceConfig struct {
	PasswordLength int
	BcryptCost     int
}

// registrationService implements RegistrationService
type registrationService struct {
	participantRepo  repository.ParticipantRepository
	eventRepo        repository.EventRepository
	registrationRepo repository.RegistrationRepository
	jobPublisher     JobPublisher
	config           RegistrationServiceConfig
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	participantRepo repository.ParticipantRepository,
	eventRepo repository.EventRepository,
	registrationRepo repository.RegistrationRepository,
	jobPublisher JobPublisher,
	cfg *RegistrationServiceConfig,
) RegistrationService {
	config := RegistrationServiceConfig{}
	if cfg != nil {
		config = *cfg
	}
	if config.PasswordLength <= 0 {
		config.PasswordLength = 12
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if jobPublisher == nil {
		jobPublisher = NewNoOpJobPublisher()
	}
	return &registrationService{
		participantRepo:  participantRepo,
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		jobPublisher:     jobPublisher,
		config:           config,
	}
}

// CreateParticipant creates a participant account with a generated password
func (s *registrationService) CreateParticipant(ctx context.Context, req *dto.CreateParticipantRequest) (*domain.Participant, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.create_participant")
	defer span.End()

	if req == nil {
		return nil, domain.NewValidationError("request body is required")
	}
	if valid, msg := req.Validate(); !valid {
		span.SetStatus(codes.Error, msg)
		return nil, domain.NewValidationError("%s", msg)
	}

	candidates, err := s.participantRepo.FindCandidates(ctx, req.Email, req.Name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	identity := req.Identity()
	for _, existing := range candidates {
		if domain.IsDuplicate(existing.Identity(), identity) {
			span.SetStatus(codes.Error, "participant exists")
			return nil, domain.ErrParticipantExists
		}
	}

	password, err := generatePassword(s.config.PasswordLength)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	participant := &domain.Participant{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		Branch:       req.Branch,
		Year:         req.Year,
		Phone:        req.Phone,
		PasswordHash: string(hashed),
		Events:       []domain.EventEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.participantRepo.Create(ctx, participant); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.jobPublisher.PublishSendLoginCreds(ctx, domain.LoginCredsParams{
		Email:    participant.Email,
		Password: password,
		Name:     participant.Name,
		Role:     domain.RoleParticipant,
	}); err != nil {
		logger.Get().Warn("failed to queue login credentials",
			zap.String("participant_id", participant.ID),
			zap.Error(err),
		)
	}

	metrics.RecordParticipantCreated(ctx)
	span.SetAttributes(attribute.String("participant_id", participant.ID))
	span.SetStatus(codes.Ok, "")
	return participant, nil
}

// GetParticipant retrieves a participant by ID
func (s *registrationService) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	if id == "" {
		return nil, domain.ErrParticipantIDRequired
	}
	return s.participantRepo.GetByID(ctx, id)
}

// UpdateParticipant updates participant profile fields
func (s *registrationService) UpdateParticipant(ctx context.Context, id string, req *dto.UpdateParticipantRequest) (*domain.Participant, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.update_participant")
	defer span.End()

	if id == "" {
		return nil, domain.ErrParticipantIDRequired
	}
	if req == nil {
		return nil, domain.NewValidationError("request body is required")
	}
	if valid, msg := req.Validate(); !valid {
		span.SetStatus(codes.Error, msg)
		return nil, domain.NewValidationError("%s", msg)
	}

	participant, err := s.participantRepo.GetByID(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	req.Apply(participant)
	participant.UpdatedAt = time.Now()

	if err := s.participantRepo.Update(ctx, participant); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return participant, nil
}

// ListParticipants filters and sorts participants in memory
func (s *registrationService) ListParticipants(ctx context.Context, filter *domain.ParticipantFilter) ([]*domain.Participant, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.list_participants")
	defer span.End()

	if filter == nil {
		filter = &domain.ParticipantFilter{}
	}

	all, err := s.participantRepo.List(ctx, filter.EventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	matched := make([]*domain.Participant, 0, len(all))
	for _, p := range all {
		if filter.Matches(p) {
			matched = append(matched, p)
		}
	}
	domain.SortParticipants(matched, filter.SortBy)

	span.SetAttributes(attribute.Int("count", len(matched)))
	span.SetStatus(codes.Ok, "")
	return matched, len(matched), nil
}

// Register links a participant to an event.
// Already registered takes precedence over closed registration.
func (s *registrationService) Register(ctx context.Context, participantID, eventID string) (*domain.EventEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.register")
	defer span.End()

	span.SetAttributes(
		attribute.String("participant_id", participantID),
		attribute.String("event_id", eventID),
	)

	if participantID == "" {
		return nil, domain.ErrParticipantIDRequired
	}
	if eventID == "" {
		return nil, domain.ErrEventIDRequired
	}

	participant, err := s.participantRepo.GetByID(ctx, participantID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if participant.IsRegisteredFor(eventID) {
		span.SetStatus(codes.Error, "already registered")
		return nil, domain.ErrAlreadyRegistered
	}
	if !event.IsRegistrationOpen {
		span.SetStatus(codes.Error, "registration closed")
		return nil, domain.ErrRegistrationClosed
	}

	now := time.Now()
	attendance := &domain.Attendance{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		EventID:       eventID,
		Attend:        []time.Time{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	entry := domain.EventEntry{
		EventID:      eventID,
		AttendanceID: attendance.ID,
		Status:       domain.StatusNotAttended,
		RegisteredAt: now,
	}

	if err := s.registrationRepo.Register(ctx, attendance, entry); err != nil {
		if errors.Is(err, domain.ErrAlreadyRegistered) {
			span.SetStatus(codes.Error, "already registered")
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordRegistration(ctx, eventID)
	span.SetStatus(codes.Ok, "")
	return &entry, nil
}

// generatePassword returns a random password drawn from passwordAlphabet
func generatePassword(length int) (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		b[i] = passwordAlphabet[n.Int64()]
	}
	return string(b), nil
}
