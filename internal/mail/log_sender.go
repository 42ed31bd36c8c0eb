package mail

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogSender writes emails to the log instead of delivering them
type LogSender struct {
	cfg *Config
	log *slog.Logger
}

func NewLogSender(cfg *Config, log *slog.Logger) *LogSender {
	return &LogSender{
		cfg: cfg,
		log: log.With(slog.String("component", "mail.log")),
	}
}

func (s *LogSender) Name() string {
	return "log"
}

func (s *LogSender) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if !s.cfg.Enabled {
		return nil, ErrSenderDisabled
	}

	messageID := "log-" + uuid.NewString()
	s.log.InfoContext(ctx, "Email logged",
		slog.String("message_id", messageID),
		slog.String("to", msg.To.Email),
		slog.String("subject", msg.Subject),
		slog.Any("tags", msg.Tags),
		slog.Int("html_bytes", len(msg.HTML)),
	)

	return &SendResult{MessageID: messageID}, nil
}
