package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/spec-kit/ticket-intake/internal/config"
)

// ErrNotConfigured is returned by Send when no sender credentials were provided.
var ErrNotConfigured = errors.New("mail transport not configured")

// SMTPMailer sends plain-text mail from the support mailbox over an authenticated SMTP relay.
type SMTPMailer struct {
	cfg config.MailConfig
}

// NewSMTPMailer returns a mailer for cfg. It does not dial until Send.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one message to the configured recipient.
func (m *SMTPMailer) Send(ctx context.Context, subject, body string) error {
	if !m.cfg.Enabled() {
		return ErrNotConfigured
	}

	msg, err := m.message(subject, body)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send via %s:%d: %w", m.cfg.Host, m.cfg.Port, err)
	}
	return nil
}

func (m *SMTPMailer) message(subject, body string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.cfg.Username); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.Username, err)
	}
	recipient := m.cfg.Recipient
	if recipient == "" {
		recipient = m.cfg.Username
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)
	return msg, nil
}

func (m *SMTPMailer) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.Username),
		gomail.WithPassword(m.cfg.Password),
	}
	if timeout := m.cfg.Timeout(); timeout > 0 {
		opts = append(opts, gomail.WithTimeout(timeout))
	}
	// 465 is implicit TLS; anything else negotiates STARTTLS.
	if m.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	return opts
}
