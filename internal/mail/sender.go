package mail

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrSenderDisabled is returned by senders while email delivery is switched off
var ErrSenderDisabled = errors.New("email sending is disabled")

// Config holds email delivery settings
type Config struct {
	Enabled        bool
	MailgunDomain  string
	MailgunAPIKey  string
	MailgunAPIBase string
	FromEmail      string
	FromName       string
	TemplateDir    string
	// ReleaseDelay is how long a job waits before retrying while the sender is disabled
	ReleaseDelay time.Duration
}

// IsConfigured reports whether Mailgun credentials are present
func (c *Config) IsConfigured() bool {
	return c.MailgunDomain != "" && c.MailgunAPIKey != ""
}

// Recipient is the person an email is addressed to
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Message is a rendered email ready to hand to a Sender
type Message struct {
	To      Recipient `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html,omitempty"`
	Text    string    `json:"text,omitempty"`
	Tags    []string  `json:"tags,omitempty"`
}

// SendResult is returned by a Sender after a successful send
type SendResult struct {
	MessageID string
}

// Sender delivers a rendered message
type Sender interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
	Name() string
}

// NewSender returns a Mailgun sender when credentials are configured and a
// log-only sender otherwise.
func NewSender(cfg *Config, log *slog.Logger) Sender {
	if sender := NewMailgunSender(cfg, log); sender != nil {
		return sender
	}
	log.Warn("Mailgun is not configured, emails will only be logged")
	return NewLogSender(cfg, log)
}
