package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink is the black-box delivery provider. A successful send returns the
// provider's message identifier when it has one.
type Sink interface {
	Send(ctx context.Context, msg Message) (providerID string, err error)
}

// LogSink writes notifications to the log instead of a real provider.
// Used in development and as the default when no provider is configured.
type LogSink struct {
	logger *zap.Logger
	from   string
}

// NewLogSink constructs a sink that logs sends.
func NewLogSink(logger *zap.Logger, from string) *LogSink {
	return &LogSink{logger: logger, from: from}
}

// Send logs the message and fabricates a provider id.
func (s *LogSink) Send(ctx context.Context, msg Message) (string, error) {
	s.logger.Info("notification send",
		zap.String("from", s.from),
		zap.String("to", msg.Recipient.Email),
		zap.String("type", string(msg.Type)),
		zap.String("subject", msg.Subject))
	return uuid.NewString(), nil
}
