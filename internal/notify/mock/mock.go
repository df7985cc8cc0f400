package mock

import (
	"context"
	"log/slog"

	"github.com/utafrali/storefront/internal/notify"
)

// LogSender writes notifications to the log and always succeeds.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender for development environments.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Name returns the name of this sender.
func (s *LogSender) Name() string {
	return "log"
}

// Send logs the message headers.
func (s *LogSender) Send(ctx context.Context, msg notify.Message) error {
	s.logger.InfoContext(ctx, "mock sender: notification sent",
		slog.String("kind", msg.Kind),
		slog.String("order_id", msg.OrderID),
		slog.String("recipient", msg.Recipient),
		slog.String("subject", msg.Subject),
	)
	return nil
}
