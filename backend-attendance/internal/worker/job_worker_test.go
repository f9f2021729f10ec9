package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/repository"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/service"
	"github.com/prohmpiriya/event-attendance/pkg/kafka"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	pkgredis "github.com/prohmpiriya/event-attendance/pkg/redis"
	"github.com/prohmpiriya/event-attendance/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu        sync.Mutex
	batches   [][]*kafka.Record
	committed []*kafka.Record
	cancel    context.CancelFunc
}

func (s *fakeSource) Poll(ctx context.Context) ([]*kafka.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		s.cancel()
		return nil, ctx.Err()
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func (s *fakeSource) CommitRecords(ctx context.Context, records []*kafka.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, records...)
	return nil
}

type fakeDLQ struct {
	messages []*kafka.Message
}

func (d *fakeDLQ) Produce(ctx context.Context, msg *kafka.Message) error {
	d.messages = append(d.messages, msg)
	return nil
}

// MockMailer is a mock implementation of Mailer
type MockMailer struct {
	SendFunc func(ctx context.Context, email *domain.Email) error
	sent     []*domain.Email
}

func (m *MockMailer) Send(ctx context.Context, email *domain.Email) error {
	m.sent = append(m.sent, email)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, email)
	}
	return nil
}

func jobRecord(t *testing.T, name domain.JobName, params any) *kafka.Record {
	t.Helper()
	job, err := domain.NewJob("job-1", name, params, time.Now())
	require.NoError(t, err)
	value, err := json.Marshal(job)
	require.NoError(t, err)
	return &kafka.Record{Topic: "attendance.jobs", Key: []byte(name), Value: value}
}

func newTestWorker(store *repository.MemoryStore, source RecordSource, dlq DLQProducer, mailer Mailer) *JobWorker {
	return NewJobWorker(&JobWorkerConfig{
		Retry: &retry.Config{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	}, source, dlq, store.Events(), store.Registrations(), mailer, logger.NewNop())
}

func seedEventWithRegistration(t *testing.T, store *repository.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Events().Create(ctx, &domain.Event{
		ID: "evt-1", Code: "ABC123", Days: 1,
		StartDate: now, EndDate: now, CreatedAt: now,
	}))
	require.NoError(t, store.Participants().Create(ctx, &domain.Participant{ID: "p-1", Email: "p1@example.com"}))
	require.NoError(t, store.Registrations().Register(ctx,
		&domain.Attendance{ID: "att-1", ParticipantID: "p-1", EventID: "evt-1"},
		domain.EventEntry{EventID: "evt-1", AttendanceID: "att-1", Status: domain.StatusNotAttended},
	))
}

func TestJobWorker_SendLoginCreds(t *testing.T) {
	store := repository.NewMemoryStore()
	mailer := &MockMailer{}
	w := newTestWorker(store, nil, &fakeDLQ{}, mailer)

	w.ProcessRecord(context.Background(), jobRecord(t, domain.JobSendLoginCreds, domain.LoginCredsParams{
		Email: "asha@example.com", Password: "secret", Name: "Asha", Role: domain.RoleParticipant,
	}))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "asha@example.com", mailer.sent[0].To)
	assert.Equal(t, domain.TemplateLoginCreds, mailer.sent[0].Template)
	assert.Equal(t, "secret", mailer.sent[0].Data["password"])
}

func TestJobWorker_DeleteEvent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedEventWithRegistration(t, store)
	w := newTestWorker(store, nil, &fakeDLQ{}, &MockMailer{})

	record := jobRecord(t, domain.JobDeleteEvent, domain.DeleteEventParams{EventID: "evt-1"})
	w.ProcessRecord(ctx, record)

	_, err := store.Events().GetByID(ctx, "evt-1")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	_, err = store.Registrations().GetAttendanceByID(ctx, "att-1")
	assert.ErrorIs(t, err, domain.ErrAttendanceNotFound)

	p, err := store.Participants().GetByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Empty(t, p.Events)

	// redelivery of the same job is harmless
	assert.NoError(t, w.Handle(ctx, mustJob(t, domain.JobDeleteEvent, domain.DeleteEventParams{EventID: "evt-1"})))
}

func TestJobWorker_DeleteEventRetiresCachedEvent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedEventWithRegistration(t, store)

	mr := miniredis.RunT(t)
	client := pkgredis.NewFromAddr(mr.Addr())
	defer client.Close()
	cache := repository.NewCachedEventRepository(store.Events(), client, time.Minute, logger.NewNop())
	require.NoError(t, cache.LoadScripts(ctx))

	attendance := service.NewAttendanceService(cache, store.Registrations(), nil)
	cached, err := cache.GetByCode(ctx, "ABC123")
	require.NoError(t, err)
	require.Equal(t, "evt-1", cached.ID)
	require.True(t, mr.Exists("event:id:evt-1"))
	require.True(t, mr.Exists("event:code:ABC123"))

	w := NewJobWorker(nil, nil, &fakeDLQ{}, cache, store.Registrations(), &MockMailer{}, logger.NewNop())
	require.NoError(t, w.Handle(ctx, mustJob(t, domain.JobDeleteEvent, domain.DeleteEventParams{EventID: "evt-1"})))

	assert.False(t, mr.Exists("event:id:evt-1"))
	_, err = cache.GetByID(ctx, "evt-1")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	_, err = cache.GetByCode(ctx, "ABC123")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)

	_, err = attendance.CheckIn(ctx, "ABC123", "p-1", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	assert.Equal(t, domain.CodeInvalidCode, domain.CodeOf(err))

	// redelivery after the cache was retired
	assert.NoError(t, w.Handle(ctx, mustJob(t, domain.JobDeleteEvent, domain.DeleteEventParams{EventID: "evt-1"})))
}

func mustJob(t *testing.T, name domain.JobName, params any) *domain.Job {
	t.Helper()
	job, err := domain.NewJob("job-2", name, params, time.Now())
	require.NoError(t, err)
	return job
}

func TestJobWorker_DeadLetters(t *testing.T) {
	tests := []struct {
		name         string
		record       func(t *testing.T) *kafka.Record
		mailErr      error
		wantAttempts int
	}{
		{
			name: "undecodable payload",
			record: func(t *testing.T) *kafka.Record {
				return &kafka.Record{Topic: "attendance.jobs", Key: []byte("x"), Value: []byte("not json")}
			},
			wantAttempts: 1,
		},
		{
			name: "unknown job",
			record: func(t *testing.T) *kafka.Record {
				return jobRecord(t, domain.JobName("resize"), map[string]string{})
			},
			wantAttempts: 1,
		},
		{
			name: "mailer keeps failing",
			record: func(t *testing.T) *kafka.Record {
				return jobRecord(t, domain.JobSendLoginCreds, domain.LoginCredsParams{Email: "a@example.com"})
			},
			mailErr:      errors.New("smtp unavailable"),
			wantAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dlq := &fakeDLQ{}
			mailer := &MockMailer{SendFunc: func(ctx context.Context, email *domain.Email) error { return tt.mailErr }}
			w := newTestWorker(repository.NewMemoryStore(), nil, dlq, mailer)

			w.ProcessRecord(context.Background(), tt.record(t))

			require.Len(t, dlq.messages, 1)
			assert.Equal(t, "attendance.jobs.dlq", dlq.messages[0].Topic)

			var msg retry.DLQMessage
			require.NoError(t, json.Unmarshal(dlq.messages[0].Value, &msg))
			assert.Equal(t, tt.wantAttempts, msg.Attempts)
			assert.Equal(t, "attendance.jobs", msg.OriginalTopic)
			assert.NotEmpty(t, msg.Error)
		})
	}
}

func TestJobWorker_RetriesTransientFailure(t *testing.T) {
	dlq := &fakeDLQ{}
	calls := 0
	mailer := &MockMailer{SendFunc: func(ctx context.Context, email *domain.Email) error {
		calls++
		if calls == 1 {
			return errors.New("timeout")
		}
		return nil
	}}
	w := newTestWorker(repository.NewMemoryStore(), nil, dlq, mailer)

	w.ProcessRecord(context.Background(), jobRecord(t, domain.JobSendLoginCreds, domain.LoginCredsParams{Email: "a@example.com"}))

	assert.Equal(t, 2, calls)
	assert.Empty(t, dlq.messages)
}

func TestJobWorker_RunCommitsBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := repository.NewMemoryStore()
	mailer := &MockMailer{}
	first := jobRecord(t, domain.JobSendLoginCreds, domain.LoginCredsParams{Email: "a@example.com"})
	second := jobRecord(t, domain.JobSendLoginCreds, domain.LoginCredsParams{Email: "b@example.com"})
	source := &fakeSource{batches: [][]*kafka.Record{{first, second}}, cancel: cancel}

	w := newTestWorker(store, source, &fakeDLQ{}, mailer)
	require.NoError(t, w.Run(ctx))

	assert.Len(t, mailer.sent, 2)
	assert.Len(t, source.committed, 2)
}
