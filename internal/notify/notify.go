// Package notify renders customer notifications and defines the delivery
// channel the order engine sends them through.
package notify

import (
	"context"
	"errors"
)

// Message kinds.
const (
	KindOrderPlaced    = "order_placed"
	KindOrderCancelled = "order_cancelled"
)

// ErrNoRecipient is returned for a message without a recipient address.
var ErrNoRecipient = errors.New("notify: message has no recipient")

// Message is a rendered notification ready for delivery.
type Message struct {
	Kind      string `json:"kind"`
	OrderID   string `json:"order_id,omitempty"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Sender delivers a message. A returned error means the channel rejected or
// never received it; there is no delivery confirmation beyond that.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
