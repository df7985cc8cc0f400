// Package kafkasender hands notifications to the notification service as
// Kafka events.
package kafkasender

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront/internal/notify"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Topic carries notification requests.
var Topic = pkgkafka.Topic("notification", "requested")

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Sender publishes each message; success means the broker accepted it.
type Sender struct {
	publisher Publisher
	source    string
}

// New creates a Kafka-backed sender.
func New(publisher Publisher, source string) *Sender {
	return &Sender{publisher: publisher, source: source}
}

// Name returns the name of this sender.
func (s *Sender) Name() string {
	return "kafka"
}

// Send publishes msg keyed by its order.
func (s *Sender) Send(ctx context.Context, msg notify.Message) error {
	evt, err := pkgkafka.NewEvent(Topic, msg.OrderID, "notification", s.source, msg)
	if err != nil {
		return fmt.Errorf("build notification event: %w", err)
	}
	evt.Metadata["kind"] = msg.Kind
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := s.publisher.Publish(ctx, Topic, evt); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
