package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// Config holds the SMTP settings for summary delivery.
type Config struct {
	Host     string // e.g. smtp.gmail.com
	Port     int    // 587, STARTTLS
	Username string
	Password string // Gmail app password
	To       string
}

// Mailer sends the rendered summary email. It satisfies the pipeline's
// Mailer contract.
type Mailer struct {
	cfg    Config
	logger *slog.Logger
}

func NewMailer(cfg Config, logger *slog.Logger) (*Mailer, error) {
	if cfg.Username == "" || cfg.Password == "" || cfg.To == "" {
		return nil, fmt.Errorf("smtp username, password and destination are required")
	}
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, logger: logger.With("component", "Mailer")}, nil
}

// SendSummary renders the markdown document and emails it.
func (m *Mailer) SendSummary(ctx context.Context, objectName, content string) error {
	htmlBody, err := RenderMarkdown(content)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Username); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(m.cfg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(Subject(objectName))
	msg.SetBodyString(mail.TypeTextHTML, wrapHTML(htmlBody))

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	m.logger.Info("Email sent successfully", "recipient", m.cfg.To)
	return nil
}
