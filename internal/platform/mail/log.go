package mail

import (
	"context"
	"log/slog"
)

// LogMailer records messages in the log instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("component", "log_mailer")}
}

// Send logs the message subject and recipient count.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "mail delivery disabled, message dropped",
		"subject", msg.Subject,
		"recipients", len(msg.To))
	return nil
}

var _ Mailer = (*LogMailer)(nil)
