package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_notifications_total",
	Help: "Notification send attempts by message kind and result.",
}, []string{"kind", "result"})

type instrumented struct {
	Sender
}

// Instrument counts every send of s in storefront_notifications_total.
func Instrument(s Sender) Sender {
	return instrumented{Sender: s}
}

func (i instrumented) Send(ctx context.Context, msg Message) error {
	if msg.Recipient == "" {
		notificationsTotal.WithLabelValues(msg.Kind, "skipped").Inc()
		return ErrNoRecipient
	}
	err := i.Sender.Send(ctx, msg)
	result := "success"
	if err != nil {
		result = "failure"
	}
	notificationsTotal.WithLabelValues(msg.Kind, result).Inc()
	return err
}
