package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

const mailgunSendTimeout = 30 * time.Second

// MailgunSender sends emails through the Mailgun API
type MailgunSender struct {
	cfg    *Config
	log    *slog.Logger
	client *mailgun.MailgunImpl
}

// NewMailgunSender returns nil if Mailgun is not configured
func NewMailgunSender(cfg *Config, log *slog.Logger) *MailgunSender {
	if !cfg.IsConfigured() {
		return nil
	}

	client := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey)
	if cfg.MailgunAPIBase != "" {
		client.SetAPIBase(cfg.MailgunAPIBase)
	}

	return &MailgunSender{
		cfg:    cfg,
		log:    log.With(slog.String("component", "mail.mailgun")),
		client: client,
	}
}

func (s *MailgunSender) Name() string {
	return "mailgun"
}

// Send delivers msg. A disabled config yields ErrSenderDisabled so queued jobs
// can be released instead of failed.
func (s *MailgunSender) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if !s.cfg.Enabled {
		return nil, ErrSenderDisabled
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	to := msg.To.Email
	if msg.To.Name != "" {
		to = fmt.Sprintf("%s <%s>", msg.To.Name, msg.To.Email)
	}
	from := fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)

	message := s.client.NewMessage(from, msg.Subject, msg.Text, to)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}
	if len(msg.Tags) > 0 {
		if err := message.AddTag(msg.Tags...); err != nil {
			s.log.Warn("Failed to tag email", slog.String("error", err.Error()))
		}
	}

	s.log.Debug("Sending email",
		slog.String("to", msg.To.Email),
		slog.String("subject", msg.Subject),
	)

	sendCtx, cancel := context.WithTimeout(ctx, mailgunSendTimeout)
	defer cancel()

	_, messageID, err := s.client.Send(sendCtx, message)
	if err != nil {
		return nil, fmt.Errorf("mailgun send failed: %w", err)
	}

	s.log.Info("Email accepted by Mailgun",
		slog.String("to", msg.To.Email),
		slog.String("message_id", messageID),
	)

	return &SendResult{MessageID: messageID}, nil
}

func (s *MailgunSender) validate() error {
	if s.cfg.FromEmail == "" {
		return fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}
	if s.cfg.FromName == "" {
		return fmt.Errorf("MAIL_FROM_NAME is required")
	}
	return nil
}
