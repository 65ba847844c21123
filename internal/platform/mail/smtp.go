package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	gomail "github.com/wneessen/go-mail"

	"github.com/PitokDf/express-app-useable/internal/config"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("mail delivery temporarily unavailable")

// consecutiveFailuresToTrip opens the breaker after this many failed sends.
const consecutiveFailuresToTrip = 3

// sender is the part of *gomail.Client used here.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPMailer sends mail over SMTP. Deliveries go through a circuit breaker
// so an unreachable server fails fast instead of tying up workers.
type SMTPMailer struct {
	client  sender
	from    string
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewSMTPMailer creates a mailer for the configured SMTP server.
func NewSMTPMailer(cfg config.MailConfig, logger *slog.Logger) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return newSMTPMailer(client, cfg.From, logger), nil
}

func newSMTPMailer(client sender, from string, logger *slog.Logger) *SMTPMailer {
	logger = logger.With("component", "smtp_mailer")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailuresToTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("mail circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return &SMTPMailer{
		client:  client,
		from:    from,
		breaker: breaker,
		logger:  logger,
	}
}

// Send builds the MIME message and delivers it.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	mimeMsg, err := m.build(msg)
	if err != nil {
		return err
	}

	_, err = m.breaker.Execute(func() (interface{}, error) {
		return nil, m.client.DialAndSendWithContext(ctx, mimeMsg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Debug("mail sent", "subject", msg.Subject, "recipients", len(msg.To))
	return nil
}

func (m *SMTPMailer) build(msg Message) (*gomail.Msg, error) {
	mimeMsg := gomail.NewMsg()
	if err := mimeMsg.From(m.from); err != nil {
		return nil, fmt.Errorf("%w: from: %w", ErrInvalidMessage, err)
	}
	if err := mimeMsg.To(msg.To...); err != nil {
		return nil, fmt.Errorf("%w: to: %w", ErrInvalidMessage, err)
	}
	mimeMsg.Subject(msg.Subject)
	mimeMsg.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		mimeMsg.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}
	return mimeMsg, nil
}

var _ Mailer = (*SMTPMailer)(nil)
