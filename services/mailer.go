package services

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/wneessen/go-mail"
)

type MailConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	FromAddress   string
	FromName      string
	Timeout       time.Duration
	MaxRetries    uint
	RetryInterval time.Duration
}

type Message struct {
	To      []string
	Bcc     []string
	ReplyTo string
	Subject string
	HTML    string
}

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends over SMTP, retrying transient failures with backoff.
type SMTPMailer struct {
	cfg MailConfig
}

func NewSMTPMailer(cfg MailConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 2 * time.Second
	}
	return &SMTPMailer{cfg: cfg}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, message Message) error {
	msg, err := m.buildMessage(message)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	client, err := m.newClient()
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}
	defer client.Close()

	err = retry.Do(
		func() error {
			return client.DialAndSendWithContext(ctx, msg)
		},
		retry.Attempts(m.cfg.MaxRetries),
		retry.Delay(m.cfg.RetryInterval),
		retry.MaxDelay(4*m.cfg.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to send email after %d attempts: %w", m.cfg.MaxRetries, err)
	}
	return nil
}

func (m *SMTPMailer) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return mail.NewClient(m.cfg.Host, opts...)
}

func (m *SMTPMailer) buildMessage(message Message) (*mail.Msg, error) {
	if len(message.To) == 0 && len(message.Bcc) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	msg := mail.NewMsg()
	if m.cfg.FromName != "" {
		if err := msg.FromFormat(m.cfg.FromName, m.cfg.FromAddress); err != nil {
			return nil, fmt.Errorf("set from: %w", err)
		}
	} else if err := msg.From(m.cfg.FromAddress); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}

	to := message.To
	if len(to) == 0 {
		// bulk mail goes to ourselves with the real audience in Bcc
		to = []string{m.cfg.FromAddress}
	}
	if err := msg.To(to...); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	if len(message.Bcc) > 0 {
		if err := msg.Bcc(message.Bcc...); err != nil {
			return nil, fmt.Errorf("set bcc: %w", err)
		}
	}
	if message.ReplyTo != "" {
		if err := msg.ReplyTo(message.ReplyTo); err != nil {
			return nil, fmt.Errorf("set reply-to: %w", err)
		}
	}

	msg.Subject(message.Subject)
	msg.SetBodyString(mail.TypeTextHTML, message.HTML)
	msg.SetDate()
	msg.SetMessageID()
	return msg, nil
}
