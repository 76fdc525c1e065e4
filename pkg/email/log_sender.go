package email

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/authstarter/pkg/logger"
)

// LogSender logs messages instead of sending them.
type LogSender struct {
	log  *slog.Logger
	once sync.Once
}

func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = logger.Discard()
	}
	return &LogSender{log: log.With(logger.Component("email"))}
}

func (s *LogSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	s.once.Do(func() {
		s.log.WarnContext(ctx, "email provider not configured, emails will not be sent")
	})
	s.log.InfoContext(ctx, "would send email",
		logger.Email(params.SendTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
	)
	return nil
}
