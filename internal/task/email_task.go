package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PitokDf/express-app-useable/internal/platform/mail"
)

// emailSendTimeout bounds a single delivery attempt.
const emailSendTimeout = 30 * time.Second

// emailAttempts is how many times a transient failure is retried.
const emailAttempts = 3

// EmailTask delivers one message through a Mailer.
type EmailTask struct {
	id      uuid.UUID
	message mail.Message
	mailer  mail.Mailer
	backoff time.Duration
}

// NewEmailTask creates a task that sends msg.
func NewEmailTask(mailer mail.Mailer, msg mail.Message) *EmailTask {
	return &EmailTask{
		id:      uuid.New(),
		message: msg,
		mailer:  mailer,
		backoff: time.Second,
	}
}

// ID returns the task ID.
func (t *EmailTask) ID() uuid.UUID { return t.id }

// Type returns TypeWelcomeEmail.
func (t *EmailTask) Type() string { return TypeWelcomeEmail }

// Message returns the message the task will send.
func (t *EmailTask) Message() mail.Message { return t.message }

// Execute sends the message, retrying transient failures with linear
// backoff. Invalid messages and an open circuit are not retried.
func (t *EmailTask) Execute(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= emailAttempts; attempt++ {
		err = t.send(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, mail.ErrInvalidMessage) || errors.Is(err, mail.ErrUnavailable) {
			return err
		}
		if attempt == emailAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * t.backoff):
		}
	}
	return fmt.Errorf("email not sent after %d attempts: %w", emailAttempts, err)
}

func (t *EmailTask) send(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, emailSendTimeout)
	defer cancel()
	return t.mailer.Send(ctx, t.message)
}

var _ Task = (*EmailTask)(nil)
