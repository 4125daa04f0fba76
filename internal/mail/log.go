package mail

import (
	"context"

	"github.com/theory-cloud/quotetheory/internal/observability"
)

// LogSender logs messages instead of delivering them. It stands in for the
// SES transport during local development.
type LogSender struct {
	log observability.StructuredLogger
}

var _ Sender = (*LogSender)(nil)

// NewLogSender creates a log-only Sender.
func NewLogSender(log observability.StructuredLogger) *LogSender {
	if log == nil {
		log = observability.NewNoOpLogger()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email (not sent)", map[string]any{
		"from":     msg.From,
		"to":       msg.To,
		"reply_to": msg.ReplyTo,
		"subject":  msg.Subject,
		"text":     msg.TextBody,
	})
	return nil
}
