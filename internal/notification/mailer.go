package notification

import (
	"context"
	"log/slog"

	"github.com/campuscare/grievance-management/internal"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers rendered notifications. Implementations must not log
// message bodies; they may contain credentials.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer records that a delivery happened without sending anything. It is
// the default when mail.enabled is false and the implementation tests run
// against.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info("mail delivery (log only)",
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}

// NewMailer selects the delivery backend from config.
func NewMailer(cfg internal.MailConfig, logger *slog.Logger) Mailer {
	// Only the log backend ships today; an SMTP backend would slot in here.
	return NewLogMailer(logger)
}
