package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	// Level is a zap level name (debug, info, warn, error) or an environment
	// name (development, staging, production) that maps to one.
	Level       string
	ServiceName string
	Development bool
}

// Logger wraps zap.Logger with the service name attached
type Logger struct {
	*zap.Logger
	serviceName string
}

var (
	global *Logger
	mu     sync.RWMutex
)

// Init builds the global logger
func Init(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{Level: "info", ServiceName: "event-attendance"}
	}

	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	zl, err := zcfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	l := &Logger{
		Logger:      zl.With(zap.String("service", cfg.ServiceName)),
		serviceName: cfg.ServiceName,
	}

	mu.Lock()
	global = l
	mu.Unlock()
	return nil
}

// Get returns the global logger, falling back to a no-op logger before Init
func Get() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return NewNop()
	}
	return global
}

// Sync flushes buffered log entries
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if global != nil {
		_ = global.Logger.Sync()
	}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// New wraps an existing zap logger
func New(zl *zap.Logger, serviceName string) *Logger {
	return &Logger{Logger: zl, serviceName: serviceName}
}

// With returns a child logger with extra fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), serviceName: l.serviceName}
}

// ServiceName returns the configured service name
func (l *Logger) ServiceName() string {
	return l.serviceName
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug", "development":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
