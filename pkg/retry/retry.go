package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrContextCanceled    = errors.New("context canceled during retry")
)

// Config contains retry configuration
type Config struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// JitterFactor in [0,1]; 0.1 means +/-10%
	JitterFactor float64
}

// DefaultConfig backs off 500ms, 1s, 2s, capped at 10s
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Operation is the function to be retried
type Operation func(ctx context.Context) error

// PermanentError stops the retry loop immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks an error as not retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// Result contains the outcome of a retried operation
type Result struct {
	Err       error
	Attempts  int
	LastError error
}

// Retrier runs operations with exponential backoff
type Retrier struct {
	config *Config
}

// New creates a Retrier, filling zero values with defaults
func New(config *Config) *Retrier {
	def := DefaultConfig()
	if config == nil {
		config = def
	}
	c := *config
	if c.InitialInterval <= 0 {
		c.InitialInterval = def.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = def.MaxInterval
	}
	if c.Multiplier <= 0 {
		c.Multiplier = def.Multiplier
	}
	c.JitterFactor = math.Max(0, math.Min(1, c.JitterFactor))
	return &Retrier{config: &c}
}

// RetryCallback is called before each wait
type RetryCallback func(attempt int, err error, next time.Duration)

// Do executes op until it succeeds, returns a permanent error, or retries run out
func (r *Retrier) Do(ctx context.Context, op Operation, callback RetryCallback) *Result {
	result := &Result{}

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		if ctx.Err() != nil {
			result.Err = ErrContextCanceled
			return result
		}

		err := op(ctx)
		if err == nil {
			result.Err = nil
			return result
		}
		result.LastError = err

		var perm *PermanentError
		if errors.As(err, &perm) {
			result.Err = perm.Err
			result.LastError = perm.Err
			return result
		}

		if attempt == r.config.MaxRetries {
			break
		}

		interval := r.interval(attempt)
		if callback != nil {
			callback(attempt+1, err, interval)
		}

		select {
		case <-ctx.Done():
			result.Err = ErrContextCanceled
			return result
		case <-time.After(interval):
		}
	}

	result.Err = ErrMaxRetriesExceeded
	return result
}

func (r *Retrier) interval(attempt int) time.Duration {
	interval := float64(r.config.InitialInterval) * math.Pow(r.config.Multiplier, float64(attempt))
	if r.config.JitterFactor > 0 {
		jitter := interval * r.config.JitterFactor
		interval += (rand.Float64()*2 - 1) * jitter
	}
	if interval > float64(r.config.MaxInterval) {
		interval = float64(r.config.MaxInterval)
	}
	if interval <= 0 {
		interval = float64(r.config.InitialInterval)
	}
	return time.Duration(interval)
}
