package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/repository"
	"github.com/stretchr/testify/require"
)

// MockJobPublisher is a mock implementation of JobPublisher that records calls
type MockJobPublisher struct {
	mu sync.Mutex

	PublishSendLoginCredsFunc func(ctx context.Context, params domain.LoginCredsParams) error
	PublishDeleteEventFunc    func(ctx context.Context, eventID string) error

	LoginCreds    []domain.LoginCredsParams
	DeletedEvents []string
}

func (m *MockJobPublisher) PublishSendLoginCreds(ctx context.Context, params domain.LoginCredsParams) error {
	m.mu.Lock()
	m.LoginCreds = append(m.LoginCreds, params)
	m.mu.Unlock()
	if m.PublishSendLoginCredsFunc != nil {
		return m.PublishSendLoginCredsFunc(ctx, params)
	}
	return nil
}

func (m *MockJobPublisher) PublishDeleteEvent(ctx context.Context, eventID string) error {
	m.mu.Lock()
	m.DeletedEvents = append(m.DeletedEvents, eventID)
	m.mu.Unlock()
	if m.PublishDeleteEventFunc != nil {
		return m.PublishDeleteEventFunc(ctx, eventID)
	}
	return nil
}

func (m *MockJobPublisher) Close() error {
	return nil
}

// MockEventRepository wraps an EventRepository and lets tests override single calls
type MockEventRepository struct {
	repository.EventRepository

	CreateFunc     func(ctx context.Context, event *domain.Event) error
	CodeExistsFunc func(ctx context.Context, code string) (bool, error)
}

func (m *MockEventRepository) Create(ctx context.Context, event *domain.Event) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	return m.EventRepository.Create(ctx, event)
}

func (m *MockEventRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	if m.CodeExistsFunc != nil {
		return m.CodeExistsFunc(ctx, code)
	}
	return m.EventRepository.CodeExists(ctx, code)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// at returns noon UTC on the given date
func at(s string) time.Time {
	return day(s).Add(12 * time.Hour)
}

type fixture struct {
	store        *repository.MemoryStore
	publisher    *MockJobPublisher
	events       EventService
	registration RegistrationService
	attendance   AttendanceService
	reports      ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	publisher := &MockJobPublisher{}
	return &fixture{
		store:     store,
		publisher: publisher,
		events:    NewEventService(store.Events(), publisher, nil),
		registration: NewRegistrationService(store.Participants(), store.Events(), store.Registrations(), publisher,
			&RegistrationServiceConfig{BcryptCost: 4}),
		attendance: NewAttendanceService(store.Events(), store.Registrations(), nil),
		reports:    NewReportService(store.Events(), store.Participants(), store.Registrations()),
	}
}

// seedEvent stores an event directly so tests control the code
func (f *fixture) seedEvent(t *testing.T, id, code, start, end string, days int) *domain.Event {
	t.Helper()
	event := &domain.Event{
		ID:                 id,
		Title:              "Event " + id,
		Code:               code,
		StartDate:          day(start),
		EndDate:            day(end),
		Days:               days,
		IsRegistrationOpen: true,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	require.NoError(t, f.store.Events().Create(context.Background(), event))
	return event
}

// seedParticipant stores a participant directly
func (f *fixture) seedParticipant(t *testing.T, id, name, branch string, year int) *domain.Participant {
	t.Helper()
	p := &domain.Participant{
		ID:        id,
		Name:      name,
		Email:     id + "@example.com",
		Branch:    branch,
		Year:      year,
		Phone:     "90000" + id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, f.store.Participants().Create(context.Background(), p))
	return p
}
