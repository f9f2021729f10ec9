package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/metrics"
	"github.com/prohmpiriya/event-attendance/pkg/kafka"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	"go.uber.org/zap"
)

// JobPublisher hands deferred work to the job runner. Publishing is fire-and-forget.
type JobPublisher interface {
	// PublishSendLoginCreds queues the login credentials email for a new participant
	PublishSendLoginCreds(ctx context.Context, params domain.LoginCredsParams) error

	// PublishDeleteEvent queues removal of an event and its attendance data
	PublishDeleteEvent(ctx context.Context, eventID string) error

	// Close closes the publisher
	Close() error
}

// JobPublisherConfig contains configuration for the Kafka job publisher
type JobPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// KafkaJobPublisher implements JobPublisher using Kafka
type KafkaJobPublisher struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
}

// NewKafkaJobPublisher creates a new Kafka job publisher
func NewKafkaJobPublisher(ctx context.Context, cfg *JobPublisherConfig) (*KafkaJobPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("job publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "attendance.jobs"
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "attendance-service"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "attendance-service-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaJobPublisher{producer: producer, topic: topic, serviceName: serviceName}, nil
}

// PublishSendLoginCreds queues a sendLoginCreds job
func (p *KafkaJobPublisher) PublishSendLoginCreds(ctx context.Context, params domain.LoginCredsParams) error {
	return p.publish(ctx, domain.JobSendLoginCreds, params)
}

// PublishDeleteEvent queues a deleteEvent job
func (p *KafkaJobPublisher) PublishDeleteEvent(ctx context.Context, eventID string) error {
	return p.publish(ctx, domain.JobDeleteEvent, domain.DeleteEventParams{EventID: eventID})
}

// Close flushes and closes the producer
func (p *KafkaJobPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

func (p *KafkaJobPublisher) publish(ctx context.Context, name domain.JobName, params any) error {
	job, err := domain.NewJob(uuid.New().String(), name, params, time.Now())
	if err != nil {
		return err
	}

	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	msg := &kafka.Message{
		Topic: p.topic,
		Key:   []byte(name),
		Value: value,
		Headers: map[string]string{
			"job_name":     string(name),
			"job_id":       job.ID,
			"source":       p.serviceName,
			"content_type": "application/json",
		},
		Timestamp: job.Time,
	}

	// the request context ends before the broker ack arrives
	p.producer.ProduceAsync(context.WithoutCancel(ctx), msg, func(err error) {
		logger.Get().Error("failed to publish job",
			zap.String("job_name", string(name)),
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	})
	metrics.RecordJobPublished(ctx, string(name))
	return nil
}

// NoOpJobPublisher is a no-op implementation of JobPublisher for testing
type NoOpJobPublisher struct{}

// NewNoOpJobPublisher creates a new no-op job publisher
func NewNoOpJobPublisher() *NoOpJobPublisher {
	return &NoOpJobPublisher{}
}

// PublishSendLoginCreds is a no-op
func (p *NoOpJobPublisher) PublishSendLoginCreds(ctx context.Context, params domain.LoginCredsParams) error {
	return nil
}

// PublishDeleteEvent is a no-op
func (p *NoOpJobPublisher) PublishDeleteEvent(ctx context.Context, eventID string) error {
	return nil
}

// Close is a no-op
func (p *NoOpJobPublisher) Close() error {
	return nil
}
