package notify

import (
	"context"
	"log/slog"
)

// LogSink writes notifications to the log. Stands in for the mail gateway in
// development and tests.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, n Notification) error {
	s.logger.InfoContext(ctx, "notification",
		"kind", n.Kind,
		"recipient", n.Recipient,
		"payload", n.Payload,
	)
	return nil
}
