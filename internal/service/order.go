package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CartConsumer removes checked-out products from a user's cart.
type CartConsumer interface {
	RemoveLines(ctx context.Context, userID string, productIDs []string) error
}

// CreateOrderItemInput is one checked-out line.
type CreateOrderItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=100"`
	Size      string `json:"size" validate:"max=20"`
}

// CreateOrderInput holds the parameters for placing an order. TotalAmount is
// the amount declared by the client and is stored as given.
type CreateOrderInput struct {
	Items           []CreateOrderItemInput `json:"items" validate:"dive"`
	TotalAmount     int64                  `json:"total_amount" validate:"gte=0"`
	Currency        string                 `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod   string                 `json:"payment_method" validate:"required,max=50"`
	ShippingAddress *domain.Address        `json:"shipping_address"`
}

// OrderService implements the order lifecycle.
type OrderService struct {
	repo       repository.OrderRepository
	products   repository.ProductRepository
	carts      CartConsumer
	dispatcher *Dispatcher
	producer   *event.Producer
	logger     *slog.Logger
}

// NewOrderService creates a new order service. carts and producer may be nil.
func NewOrderService(
	repo repository.OrderRepository,
	products repository.ProductRepository,
	carts CartConsumer,
	dispatcher *Dispatcher,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		repo:       repo,
		products:   products,
		carts:      carts,
		dispatcher: dispatcher,
		producer:   producer,
		logger:     logger,
	}
}

// CreateOrder persists a placed order and then, without affecting the
// result, consumes the cart lines and schedules the confirmation.
func (s *OrderService) CreateOrder(ctx context.Context, p domain.Principal, input CreateOrderInput) (*domain.Order, error) {
	if p.UserID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("no order items")
	}
	items := make([]domain.OrderItem, len(input.Items))
	for i, in := range input.Items {
		if in.ProductID == "" {
			return nil, apperrors.InvalidInput(fmt.Sprintf("item %d: product_id is required", i))
		}
		if in.Quantity < 1 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("item %d: quantity must be at least 1", i))
		}
		items[i] = domain.OrderItem{ProductID: in.ProductID, Quantity: in.Quantity, Size: in.Size}
	}
	if input.TotalAmount < 0 {
		return nil, apperrors.InvalidInput("total_amount must not be negative")
	}

	order := domain.NewOrder(
		uuid.New().String(), p.UserID, items, input.TotalAmount,
		strings.ToUpper(input.Currency), input.PaymentMethod, input.ShippingAddress, time.Now().UTC(),
	)

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	ordersTotal.WithLabelValues(domain.OrderStatusPlaced).Inc()

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.Int64("total_amount", order.TotalAmount),
	)

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.carts != nil {
		if err := s.carts.RemoveLines(ctx, p.UserID, order.ProductIDs()); err != nil {
			s.logger.WarnContext(ctx, "failed to consume cart after checkout",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.dispatcher.OrderPlaced(ctx, p, order.ID)
	return order, nil
}

// ownedOrder loads an order the principal may see. Orders of other users and
// cancelled orders are reported as not found.
func (s *OrderService) ownedOrder(ctx context.Context, p domain.Principal, id string) (*domain.Order, error) {
	if p.UserID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != p.UserID || o.IsCancelled() {
		return nil, apperrors.NotFound("order", id)
	}
	return o, nil
}

// GetOrder returns one of the principal's orders with product display data.
func (s *OrderService) GetOrder(ctx context.Context, p domain.Principal, id string) (*domain.OrderDetail, error) {
	o, err := s.ownedOrder(ctx, p, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	products, err := lookupProducts(ctx, s.products, o.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &domain.OrderDetail{Order: o, Lines: domain.ResolveOrderItems(o.Items, products)}, nil
}

// ListMyOrders returns a page of the principal's orders, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, p domain.Principal, page, perPage int) ([]domain.OrderDetail, int, error) {
	if p.UserID == "" {
		return nil, 0, apperrors.Unauthorized("authentication required")
	}

	orders, total, err := s.repo.List(ctx, repository.OrderFilter{UserID: p.UserID, Page: page, PerPage: perPage})
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	var ids []string
	for i := range orders {
		ids = append(ids, orders[i].ProductIDs()...)
	}
	products, err := lookupProducts(ctx, s.products, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	details := make([]domain.OrderDetail, len(orders))
	for i := range orders {
		details[i] = domain.OrderDetail{Order: &orders[i], Lines: domain.ResolveOrderItems(orders[i].Items, products)}
	}
	return details, total, nil
}

// CancelOrder tells the customer what was cancelled and then moves the order
// to cancelled. A failed notification does not stop the cancellation.
//
// The notice goes out before the status is written, so two racing cancels of
// the same order may both send one. Only the first write wins; the other sees
// the order as already gone and gets NotFound.
func (s *OrderService) CancelOrder(ctx context.Context, p domain.Principal, id, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperrors.InvalidInput("cancellation reason is required")
	}

	o, err := s.ownedOrder(ctx, p, id)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	products, err := lookupProducts(ctx, s.products, o.ProductIDs())
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	summary := domain.BuildCancellationSummary(o, products, reason)

	if msg, err := notify.OrderCancelled(p, summary); err != nil {
		s.logger.ErrorContext(ctx, "failed to render cancellation notice",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	} else if err := s.dispatcher.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "cancellation notice failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	entry := domain.StatusUpdate{
		Status:    domain.HistoryOrderCancelled,
		Timestamp: time.Now().UTC(),
		Location:  domain.DefaultHistoryLocation,
	}
	if err := s.repo.UpdateStatus(ctx, id, domain.OrderStatusCancelled, reason, entry); err != nil {
		// Every live status may move to cancelled, so a conflict here means
		// another request cancelled the order first.
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("cancel order: %w", apperrors.NotFound("order", id))
		}
		return fmt.Errorf("cancel order: %w", err)
	}
	ordersTotal.WithLabelValues(domain.OrderStatusCancelled).Inc()

	if err := s.producer.PublishOrderCancelled(ctx, id, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.cancelled event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", id),
		slog.String("user_id", p.UserID),
		slog.Int64("recomputed_total", summary.Total),
	)
	return nil
}

// ConfirmOrder moves a placed order to confirmed.
func (s *OrderService) ConfirmOrder(ctx context.Context, id string) (*domain.Order, error) {
	entry := domain.StatusUpdate{
		Status:    domain.HistoryOrderAccepted,
		Timestamp: time.Now().UTC(),
		Location:  domain.DefaultHistoryLocation,
	}
	if err := s.repo.UpdateStatus(ctx, id, domain.OrderStatusConfirmed, "", entry); err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}
	ordersTotal.WithLabelValues(domain.OrderStatusConfirmed).Inc()

	if err := s.producer.PublishOrderConfirmed(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.confirmed event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	s.logger.InfoContext(ctx, "order confirmed", slog.String("order_id", id))
	return o, nil
}
