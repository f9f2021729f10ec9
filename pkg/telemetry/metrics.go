package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/prohmpiriya/event-attendance"

// MetricOpts describes an instrument
type MetricOpts struct {
	Name        string
	Description string
	Unit        string
}

// Counter is a monotonically increasing int64 counter
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter registers a counter on the global meter provider
func NewCounter(opts MetricOpts) (*Counter, error) {
	c, err := otel.Meter(meterName).Int64Counter(opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", opts.Name, err)
	}
	return &Counter{counter: c}, nil
}

// Add increments the counter by n
func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.counter.Add(ctx, n, metric.WithAttributes(attrs...))
}

// Inc increments the counter by one
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// Histogram records float64 distributions
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram registers a histogram on the global meter provider
func NewHistogram(opts MetricOpts) (*Histogram, error) {
	h, err := otel.Meter(meterName).Float64Histogram(opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", opts.Name, err)
	}
	return &Histogram{histogram: h}, nil
}

// Record records a value
func (h *Histogram) Record(ctx context.Context, v float64, attrs ...attribute.KeyValue) {
	if h == nil {
		return
	}
	h.histogram.Record(ctx, v, metric.WithAttributes(attrs...))
}
