package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Topics for storefront domain events.
var (
	TopicOrderCreated    = pkgkafka.Topic("order", "created")
	TopicOrderConfirmed  = pkgkafka.Topic("order", "confirmed")
	TopicOrderCancelled  = pkgkafka.Topic("order", "cancelled")
	TopicRatingSubmitted = pkgkafka.Topic("rating", "submitted")
)

// OrderTopics are the topics whose events change trending totals.
func OrderTopics() []string {
	return []string{TopicOrderCreated, TopicOrderConfirmed, TopicOrderCancelled}
}

// Aggregate types.
const (
	AggregateTypeOrder   = "order"
	AggregateTypeProduct = "product"
)

// Source identifies events published by this service.
const Source = "storefront"

// OrderCreatedData is the order.created payload.
type OrderCreatedData struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	Items       []domain.OrderItem `json:"items"`
	TotalAmount int64              `json:"total_amount"`
	Currency    string             `json:"currency"`
}

// OrderStatusData is the payload of order.confirmed and order.cancelled.
type OrderStatusData struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// RatingSubmittedData is the rating.submitted payload.
type RatingSubmittedData struct {
	ProductID     string  `json:"product_id"`
	UserID        string  `json:"user_id"`
	Score         int     `json:"score"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// Publisher is the subset of the Kafka producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events. A nil *Producer is valid and
// publishes nothing.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderCreated, o.ID, AggregateTypeOrder, OrderCreatedData{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       o.Items,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
	})
}

// PublishOrderConfirmed publishes an order.confirmed event.
func (p *Producer) PublishOrderConfirmed(ctx context.Context, orderID string) error {
	return p.publish(ctx, TopicOrderConfirmed, orderID, AggregateTypeOrder, OrderStatusData{
		OrderID: orderID,
		Status:  domain.OrderStatusConfirmed,
	})
}

// PublishOrderCancelled publishes an order.cancelled event.
func (p *Producer) PublishOrderCancelled(ctx context.Context, orderID, reason string) error {
	return p.publish(ctx, TopicOrderCancelled, orderID, AggregateTypeOrder, OrderStatusData{
		OrderID: orderID,
		Status:  domain.OrderStatusCancelled,
		Reason:  reason,
	})
}

// PublishRatingSubmitted publishes a rating.submitted event with the new aggregate.
func (p *Producer) PublishRatingSubmitted(ctx context.Context, r *domain.Rating, agg domain.RatingAggregate) error {
	return p.publish(ctx, TopicRatingSubmitted, r.ProductID, AggregateTypeProduct, RatingSubmittedData{
		ProductID:     r.ProductID,
		UserID:        r.UserID,
		Score:         r.Score,
		AverageRating: agg.Average,
		ReviewCount:   agg.Count,
	})
}
