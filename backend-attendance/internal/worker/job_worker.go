package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/metrics"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/repository"
	"github.com/prohmpiriya/event-attendance/pkg/kafka"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	"github.com/prohmpiriya/event-attendance/pkg/retry"
	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// RecordSource is the consumer side the worker reads jobs from
type RecordSource interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
}

// DLQProducer publishes jobs that exhausted their retries
type DLQProducer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
}

// JobWorkerConfig holds configuration for the job worker
type JobWorkerConfig struct {
	Topic       string
	ServiceName string
	Retry       *retry.Config
}

// JobWorker executes deferred jobs published by the API
type JobWorker struct {
	config        *JobWorkerConfig
	source        RecordSource
	dlq           DLQProducer
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	mailer        Mailer
	retrier       *retry.Retrier
	log           *logger.Logger

	mu      sync.Mutex
	running bool
}

// NewJobWorker creates a new job worker. dlq may be nil, in which case failed jobs are only logged.
func NewJobWorker(
	cfg *JobWorkerConfig,
	source RecordSource,
	dlq DLQProducer,
	events repository.EventRepository,
	registrations repository.RegistrationRepository,
	mailer Mailer,
	log *logger.Logger,
) *JobWorker {
	if cfg == nil {
		cfg = &JobWorkerConfig{}
	}
	if cfg.Topic == "" {
		cfg.Topic = "attendance.jobs"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "attendance-job-worker"
	}
	if log == nil {
		log = logger.Get()
	}
	if mailer == nil {
		mailer = NewLogMailer(log)
	}
	return &JobWorker{
		config:        cfg,
		source:        source,
		dlq:           dlq,
		events:        events,
		registrations: registrations,
		mailer:        mailer,
		retrier:       retry.New(cfg.Retry),
		log:           log,
	}
}

// Run polls and processes jobs until ctx is cancelled
func (w *JobWorker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("job worker is already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	w.log.Info("job worker started", zap.String("topic", w.config.Topic))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("job worker stopping")
			return nil
		default:
		}

		records, err := w.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error("failed to poll jobs", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, record := range records {
			w.ProcessRecord(ctx, record)
		}
		if len(records) > 0 {
			if err := w.source.CommitRecords(ctx, records); err != nil {
				w.log.Error("failed to commit job offsets", zap.Error(err))
			}
		}
	}
}

// ProcessRecord runs one job with retries. A job that still fails is moved to the dead letter topic.
func (w *JobWorker) ProcessRecord(ctx context.Context, record *kafka.Record) {
	start := time.Now()

	var job domain.Job
	if err := json.Unmarshal(record.Value, &job); err != nil {
		w.deadLetter(ctx, record, fmt.Errorf("failed to decode job: %w", err), 1)
		metrics.RecordJobProcessed(ctx, "unknown", time.Since(start).Seconds(), true)
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "worker.job."+string(job.Name))
	defer span.End()
	span.SetAttributes(attribute.String("job_id", job.ID))

	result := w.retrier.Do(ctx, func(ctx context.Context) error {
		return w.Handle(ctx, &job)
	}, func(attempt int, err error, next time.Duration) {
		w.log.Warn("job failed, retrying",
			zap.String("job_id", job.ID),
			zap.String("job_name", string(job.Name)),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	})

	failed := result.Err != nil
	if failed {
		cause := result.Err
		if errors.Is(cause, retry.ErrMaxRetriesExceeded) && result.LastError != nil {
			cause = fmt.Errorf("%w: %v", cause, result.LastError)
		}
		span.RecordError(cause)
		span.SetStatus(codes.Error, cause.Error())
		w.deadLetter(ctx, record, cause, result.Attempts)
	} else {
		span.SetStatus(codes.Ok, "")
		w.log.Info("job done", zap.String("job_id", job.ID), zap.String("job_name", string(job.Name)))
	}
	metrics.RecordJobProcessed(ctx, string(job.Name), time.Since(start).Seconds(), failed)
}

// Handle executes a single job
func (w *JobWorker) Handle(ctx context.Context, job *domain.Job) error {
	switch job.Name {
	case domain.JobSendLoginCreds:
		var params domain.LoginCredsParams
		if err := json.Unmarshal(job.Params, &params); err != nil {
			return retry.Permanent(fmt.Errorf("invalid %s params: %w", job.Name, err))
		}
		if params.Email == "" {
			return retry.Permanent(fmt.Errorf("%s job has no recipient", job.Name))
		}
		return w.mailer.Send(ctx, domain.LoginCredsEmail(params))

	case domain.JobDeleteEvent:
		var params domain.DeleteEventParams
		if err := json.Unmarshal(job.Params, &params); err != nil {
			return retry.Permanent(fmt.Errorf("invalid %s params: %w", job.Name, err))
		}
		if params.EventID == "" {
			return retry.Permanent(domain.ErrEventIDRequired)
		}
		return w.deleteEvent(ctx, params.EventID)

	default:
		return retry.Permanent(fmt.Errorf("unknown job %q", job.Name))
	}
}

// deleteEvent removes the event data and then the event. Running it twice is harmless.
func (w *JobWorker) deleteEvent(ctx context.Context, eventID string) error {
	removed, err := w.registrations.DeleteEventData(ctx, eventID)
	if err != nil {
		return err
	}
	if err := w.events.Delete(ctx, eventID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	w.log.Info("event deleted",
		zap.String("event_id", eventID),
		zap.Int64("attendance_records", removed),
	)
	return nil
}

func (w *JobWorker) deadLetter(ctx context.Context, record *kafka.Record, cause error, attempts int) {
	w.log.Error("job moved to dead letter topic",
		zap.String("key", string(record.Key)),
		zap.Int("attempts", attempts),
		zap.Error(cause),
	)
	if w.dlq == nil {
		return
	}

	msg := retry.NewDLQMessage(record.Topic, string(record.Key), record.Value, record.Headers, cause, attempts, w.config.ServiceName)
	value, err := json.Marshal(msg)
	if err != nil {
		w.log.Error("failed to marshal dead letter", zap.Error(err))
		return
	}
	if err := w.dlq.Produce(ctx, &kafka.Message{
		Topic:     retry.DLQTopic(w.config.Topic),
		Key:       record.Key,
		Value:     value,
		Headers:   record.Headers,
		Timestamp: time.Now(),
	}); err != nil {
		w.log.Error("failed to publish dead letter", zap.Error(err))
	}
}
