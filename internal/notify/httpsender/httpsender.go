// Package httpsender delivers notifications to the notification service over HTTP.
package httpsender

import (
	"context"
	"fmt"
	"strings"

	"github.com/utafrali/storefront/internal/notify"
)

const serviceName = "notification-service"

// Poster is satisfied by *httpclient.CircuitBreakerClient.
type Poster interface {
	PostJSON(ctx context.Context, url, service string, v any) error
}

type request struct {
	Channel   string            `json:"channel"`
	Type      string            `json:"type"`
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sender posts each message as an email request.
type Sender struct {
	client Poster
	url    string
}

// New creates a sender posting to baseURL/api/v1/notifications.
func New(client Poster, baseURL string) *Sender {
	return &Sender{
		client: client,
		url:    strings.TrimRight(baseURL, "/") + "/api/v1/notifications",
	}
}

// Name returns the name of this sender.
func (s *Sender) Name() string {
	return "http"
}

// Send posts msg. Non-2xx responses and an open breaker are failures.
func (s *Sender) Send(ctx context.Context, msg notify.Message) error {
	req := request{
		Channel:   "email",
		Type:      msg.Kind,
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Body:      msg.Body,
	}
	if msg.OrderID != "" {
		req.Metadata = map[string]string{"order_id": msg.OrderID}
	}

	if err := s.client.PostJSON(ctx, s.url, serviceName, req); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}
