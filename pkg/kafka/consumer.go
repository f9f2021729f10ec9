package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ConsumerConfig holds Kafka consumer group configuration
type ConsumerConfig struct {
	Brokers        []string
	GroupID        string
	Topics         []string
	ClientID       string
	MaxRetries     int
	RetryInterval  time.Duration
	SessionTimeout time.Duration
}

// Record is a consumed Kafka record
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time

	raw *kgo.Record
}

// Consumer wraps a franz-go group consumer with manual commits
type Consumer struct {
	client *kgo.Client
}

// NewConsumer joins the consumer group
func NewConsumer(ctx context.Context, cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.GroupID == "" || len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("consumer group and topics are required")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
	if cfg.SessionTimeout > 0 {
		opts = append(opts, kgo.SessionTimeout(cfg.SessionTimeout))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(cfg.RetryInterval)
		}
		if lastErr = client.Ping(ctx); lastErr == nil {
			return &Consumer{client: client}, nil
		}
	}

	client.Close()
	return nil, fmt.Errorf("failed to connect to kafka after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

// Poll fetches the next batch of records
func (c *Consumer) Poll(ctx context.Context) ([]*Record, error) {
	fetches := c.client.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, errors.New("kafka client closed")
	}

	var errs []error
	fetches.EachError(func(topic string, partition int32, err error) {
		errs = append(errs, fmt.Errorf("%s[%d]: %w", topic, partition, err))
	})
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	var records []*Record
	fetches.EachRecord(func(r *kgo.Record) {
		headers := make(map[string]string, len(r.Headers))
		for _, h := range r.Headers {
			headers[h.Key] = string(h.Value)
		}
		records = append(records, &Record{
			Topic:     r.Topic,
			Partition: r.Partition,
			Offset:    r.Offset,
			Key:       r.Key,
			Value:     r.Value,
			Headers:   headers,
			Timestamp: r.Timestamp,
			raw:       r,
		})
	})
	return records, nil
}

// CommitRecords commits offsets for the given records
func (c *Consumer) CommitRecords(ctx context.Context, records []*Record) error {
	raw := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		if r.raw != nil {
			raw = append(raw, r.raw)
		}
	}
	if len(raw) == 0 {
		return nil
	}
	return c.client.CommitRecords(ctx, raw...)
}

// Close leaves the group and closes the client
func (c *Consumer) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
