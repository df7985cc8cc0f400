package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/repository"
)

// DefaultNotifyTimeout bounds a single notification attempt.
const DefaultNotifyTimeout = 5 * time.Second

// Dispatcher delivers order notifications. Failures are logged and never
// returned to the operation that triggered them.
type Dispatcher struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	sender   notify.Sender
	timeout  time.Duration
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A non-positive timeout uses DefaultNotifyTimeout.
func NewDispatcher(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	sender notify.Sender,
	timeout time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &Dispatcher{
		orders:   orders,
		products: products,
		sender:   sender,
		timeout:  timeout,
		logger:   logger,
	}
}

// OrderPlaced sends the order confirmation in the background. The send
// outlives ctx's cancellation but not the dispatcher's timeout.
func (d *Dispatcher) OrderPlaced(ctx context.Context, to domain.Principal, orderID string) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliverOrderPlaced(ctx, to, orderID)
	}()
}

func (d *Dispatcher) deliverOrderPlaced(ctx context.Context, to domain.Principal, orderID string) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	log := d.logger.With(slog.String("order_id", orderID))

	o, err := d.orders.GetByID(ctx, orderID)
	if err != nil {
		log.ErrorContext(ctx, "failed to load order for notification", slog.String("error", err.Error()))
		return
	}
	if o.NotificationSent {
		log.DebugContext(ctx, "order notification already sent, skipping")
		return
	}

	products, err := lookupProducts(ctx, d.products, o.ProductIDs())
	if err != nil {
		log.ErrorContext(ctx, "failed to load products for notification", slog.String("error", err.Error()))
		return
	}

	msg, err := notify.OrderPlaced(to, o, domain.ResolveOrderItems(o.Items, products))
	if err != nil {
		log.ErrorContext(ctx, "failed to render order notification", slog.String("error", err.Error()))
		return
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		log.WarnContext(ctx, "order notification failed",
			slog.String("sender", d.sender.Name()),
			slog.String("error", err.Error()),
		)
		return
	}

	marked, err := d.orders.MarkNotificationSent(ctx, orderID)
	if err != nil {
		log.ErrorContext(ctx, "failed to record notification", slog.String("error", err.Error()))
		return
	}
	if !marked {
		log.WarnContext(ctx, "notification flag was already set")
		return
	}
	log.InfoContext(ctx, "order notification sent", slog.String("sender", d.sender.Name()))
}

// Send delivers msg synchronously within the dispatcher's timeout.
func (d *Dispatcher) Send(ctx context.Context, msg notify.Message) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s via %s: %w", msg.Kind, d.sender.Name(), err)
	}
	return nil
}

// Wait blocks until in-flight background sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for notifications: %w", ctx.Err())
	}
}
