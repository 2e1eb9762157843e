package email

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection parameters.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // optional - some servers allow unauthenticated relay
	Password string // optional
	From     string // default sender address
	Timeout  time.Duration
}

// SMTPSender implements Sender with go-mail.
type SMTPSender struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewSMTPSender creates an SMTP sender. A zero Timeout means 30 seconds.
func NewSMTPSender(config SMTPConfig, logger zerolog.Logger) *SMTPSender {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &SMTPSender{
		config: config,
		logger: logger.With().Str("component", "smtp").Logger(),
	}
}

// Send sends an email via SMTP.
func (s *SMTPSender) Send(ctx context.Context, email *Email) (string, error) {
	msg := mail.NewMsg()

	from := email.From
	if from == "" {
		from = s.config.From
	}
	if err := msg.From(from); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFromAddress, err)
	}
	if err := msg.To(email.To...); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToAddress, err)
	}

	msg.Subject(email.Subject)
	msg.SetMessageID()

	// Prefer HTML with text fallback, or just text
	switch {
	case email.HTMLBody != "" && email.TextBody != "":
		msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTMLBody)
	case email.HTMLBody != "":
		msg.SetBodyString(mail.TypeTextHTML, email.HTMLBody)
	default:
		msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
	}

	for key, value := range email.Headers {
		msg.SetGenHeader(mail.Header(key), value)
	}

	client, err := mail.NewClient(s.config.Host, s.clientOptions()...)
	if err != nil {
		return "", fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	var messageID string
	if ids := msg.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		messageID = ids[0]
	}

	s.logger.Debug().
		Strs("to", email.To).
		Str("subject", email.Subject).
		Str("message_id", messageID).
		Msg("email sent")

	return messageID, nil
}

// clientOptions picks the TLS mode from the port.
func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithTimeout(s.config.Timeout),
	}

	switch s.config.Port {
	case 465:
		// Implicit TLS (SMTPS)
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		// 25, or a local catcher such as Mailpit on 1025
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if s.config.Username != "" && s.config.Password != "" {
		opts = append(opts,
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}

	return opts
}

// LogSender writes messages to the log instead of sending them. It stands
// in for SMTP when no host is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "email").Logger()}
}

func (s *LogSender) Send(ctx context.Context, email *Email) (string, error) {
	s.logger.Info().
		Strs("to", email.To).
		Str("subject", email.Subject).
		Msg("email not sent, no SMTP host configured")
	return "", nil
}
