package worker

import (
	"context"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/pkg/logger"
	"go.uber.org/zap"
)

// Mailer hands a rendered-by-template email to the delivery provider
type Mailer interface {
	Send(ctx context.Context, email *domain.Email) error
}

// LogMailer logs emails instead of sending them
type LogMailer struct {
	log *logger.Logger
}

// NewLogMailer creates a LogMailer. A nil logger uses the global one.
func NewLogMailer(log *logger.Logger) *LogMailer {
	if log == nil {
		log = logger.Get()
	}
	return &LogMailer{log: log}
}

// Send logs the recipient and template. Template data is omitted since it can carry credentials.
func (m *LogMailer) Send(ctx context.Context, email *domain.Email) error {
	m.log.Info("email queued for delivery",
		zap.String("to", email.To),
		zap.String("template", string(email.Template)),
		zap.Int("fields", len(email.Data)),
	)
	return nil
}
