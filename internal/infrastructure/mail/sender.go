// Package mail delivers campaign and notice emails over SMTP, or logs them in development.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	campaignapp "github.com/familynest/backend/internal/application/campaign"
	"github.com/familynest/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Errors returned by senders
var (
	ErrNotConfigured = errors.New("mail is not configured")
	ErrNoRecipient   = errors.New("message has no recipient")
)

// dialer is the part of gomail.Dialer used by SMTPSender
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends mail through an SMTP relay with gomail
type SMTPSender struct {
	dialer dialer
	from   string
	logger *zap.Logger
}

var _ campaignapp.Mailer = (*SMTPSender)(nil)

// NewSMTPSender creates a sender for the configured relay.
// Port 465 uses implicit TLS; other ports upgrade with STARTTLS when offered.
func NewSMTPSender(cfg *config.MailConfig, logger *zap.Logger) (*SMTPSender, error) {
	if cfg == nil || cfg.Host == "" || cfg.From == "" {
		return nil, ErrNotConfigured
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}, nil
}

// Send delivers msg, using the configured from address when msg.From is blank
func (s *SMTPSender) Send(ctx context.Context, msg campaignapp.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	s.logger.Debug("Email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *SMTPSender) build(msg campaignapp.Message) (*gomail.Message, error) {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return nil, ErrNoRecipient
	}
	from := msg.From
	if from == "" {
		from = s.from
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return m, nil
}

// LogSender logs messages instead of sending them
type LogSender struct {
	from   string
	logger *zap.Logger
}

var _ campaignapp.Mailer = (*LogSender)(nil)

// NewLogSender creates a new LogSender
func NewLogSender(from string, logger *zap.Logger) *LogSender {
	return &LogSender{from: from, logger: logger}
}

// Send logs the envelope and body size
func (s *LogSender) Send(ctx context.Context, msg campaignapp.Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	from := msg.From
	if from == "" {
		from = s.from
	}
	s.logger.Info("Email (log driver)",
		zap.String("from", from),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}

// NewSender returns the sender selected by mail.driver
func NewSender(cfg *config.MailConfig, logger *zap.Logger) (campaignapp.Mailer, error) {
	switch cfg.Driver {
	case "log":
		return NewLogSender(cfg.From, logger), nil
	case "smtp", "":
		return NewSMTPSender(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}
