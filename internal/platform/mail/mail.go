// Package mail delivers outbound email. SMTPMailer talks to a real server;
// LogMailer stands in when no server is configured.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

//go:generate mockgen -destination=../../mocks/mailer.go -package=mocks github.com/PitokDf/express-app-useable/internal/platform/mail Mailer

// ErrInvalidMessage is returned for messages without recipients or subject.
var ErrInvalidMessage = errors.New("invalid mail message")

// Message is a single outbound email. Text is required; HTML is an optional
// alternative part.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Validate reports whether the message can be sent.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidMessage)
	}
	return nil
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// WelcomeMessage builds the mail sent after registration.
func WelcomeMessage(name, email string) Message {
	return Message{
		To:      []string{email},
		Subject: "Welcome aboard",
		Text: fmt.Sprintf(
			"Hi %s,\n\nYour account has been created. You can now sign in with %s.\n",
			name, email,
		),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your account has been created. You can now sign in with <b>%s</b>.</p>",
			name, email,
		),
	}
}
