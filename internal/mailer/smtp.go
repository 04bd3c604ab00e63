package mailer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	mail "github.com/wneessen/go-mail"
)

// SMTPConfig holds mail-transport connection settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// SMTPTransport implements watch.Transport over SMTP.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport validates the connection settings and returns a transport.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp transport: host is required")
	}
	if cfg.From == "" || cfg.To == "" {
		return nil, fmt.Errorf("smtp transport: from and to addresses are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPTransport{cfg: cfg}, nil
}

// Send delivers one HTML email and returns its message id.
func (t *SMTPTransport) Send(ctx context.Context, subject, html string) (string, error) {
	msg := mail.NewMsg()
	if err := msg.From(t.cfg.From); err != nil {
		return "", fmt.Errorf("smtp send: from address: %w", err)
	}
	if err := msg.To(t.cfg.To); err != nil {
		return "", fmt.Errorf("smtp send: to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	messageID := uuid.NewString()
	msg.SetMessageIDWithValue(messageID)

	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}
	client, err := mail.NewClient(t.cfg.Host, opts...)
	if err != nil {
		return "", fmt.Errorf("smtp send: build client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return messageID, nil
}
