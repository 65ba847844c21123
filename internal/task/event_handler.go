package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PitokDf/express-app-useable/internal/events"
	"github.com/PitokDf/express-app-useable/internal/platform/mail"
)

// WelcomeEmailHandler turns user.registered events into EmailTasks.
type WelcomeEmailHandler struct {
	mailer    mail.Mailer
	submitter Submitter
	logger    *slog.Logger
}

// NewWelcomeEmailHandler creates the handler.
func NewWelcomeEmailHandler(mailer mail.Mailer, submitter Submitter, logger *slog.Logger) *WelcomeEmailHandler {
	return &WelcomeEmailHandler{
		mailer:    mailer,
		submitter: submitter,
		logger:    logger.With("component", "welcome_email_handler"),
	}
}

// HandleEvent queues a welcome email for the registered user. Other event
// types are ignored.
func (h *WelcomeEmailHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeUserRegistered {
		h.logger.Debug("ignoring event", "event_type", event.Type, "event_id", event.ID)
		return nil
	}

	var payload events.UserRegisteredPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
	}

	t := NewEmailTask(h.mailer, mail.WelcomeMessage(payload.Name, payload.Email))
	if err := h.submitter.Submit(ctx, t); err != nil {
		return err
	}

	h.logger.Debug("welcome email queued",
		"task_id", t.ID(),
		"user_id", payload.UserID,
		"event_id", event.ID)
	return nil
}

var _ events.EventHandler = (*WelcomeEmailHandler)(nil)
