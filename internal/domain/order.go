package domain

import (
	"slices"
	"strings"
	"time"
)

// Order status constants.
const (
	OrderStatusPlaced    = "placed"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
)

// History labels written by the order engine.
const (
	HistoryOrderConfirmed  = "Order Confirmed"
	HistoryOrderAccepted   = "Order Accepted"
	HistoryOrderCancelled  = "Order Cancelled"
	DefaultHistoryLocation = "Warehouse"
)

// Order is an immutable snapshot of what was checked out plus its lifecycle.
// Items never change after creation.
type Order struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	Items            []OrderItem    `json:"items"`
	TotalAmount      int64          `json:"total_amount"`
	Currency         string         `json:"currency"`
	PaymentMethod    string         `json:"payment_method"`
	ShippingAddress  *Address       `json:"shipping_address,omitempty"`
	Status           string         `json:"status"`
	StatusHistory    []StatusUpdate `json:"status_history"`
	NotificationSent bool           `json:"notification_sent"`
	CanceledReason   string         `json:"canceled_reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// OrderItem is one checked-out line.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

// StatusUpdate is one entry of an order's status history.
type StatusUpdate struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location,omitempty"`
}

// Address is a shipping address.
type Address struct {
	FullName    string `json:"full_name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	Phone       string `json:"phone,omitempty"`
}

// NewOrder builds a placed order with its single opening history entry.
func NewOrder(id, userID string, items []OrderItem, total int64, currency, paymentMethod string, addr *Address, now time.Time) *Order {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Order{
		ID:              id,
		UserID:          userID,
		Items:           slices.Clone(items),
		TotalAmount:     total,
		Currency:        currency,
		PaymentMethod:   paymentMethod,
		ShippingAddress: addr,
		Status:          OrderStatusPlaced,
		StatusHistory: []StatusUpdate{
			{Status: HistoryOrderConfirmed, Timestamp: now, Location: DefaultHistoryLocation},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AllowedTransitions lists the statuses reachable from each status.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPlaced:    {OrderStatusConfirmed, OrderStatusCancelled},
		OrderStatusConfirmed: {OrderStatusCancelled},
		OrderStatusCancelled: {},
	}
}

// CanTransitionTo reports whether target is reachable from the current status.
func (o *Order) CanTransitionTo(target string) bool {
	return slices.Contains(AllowedTransitions()[o.Status], target)
}

// IsCancelled reports whether the order reached its terminal state.
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// ProductIDs lists the distinct products referenced by the order.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

// OrderItemView is an order item joined with current product display data.
type OrderItemView struct {
	OrderItem
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
	UnitPrice int64  `json:"unit_price"`
	Available bool   `json:"available"`
}

// OrderDetail is an order with its items resolved for display.
type OrderDetail struct {
	*Order
	Lines []OrderItemView `json:"lines"`
}

// ResolveOrderItems joins items with current products. Missing products are
// priced at zero and labelled unavailable.
func ResolveOrderItems(items []OrderItem, products map[string]*Product) []OrderItemView {
	views := make([]OrderItemView, 0, len(items))
	for _, it := range items {
		v := OrderItemView{OrderItem: it, Name: UnavailableProductName}
		if p, ok := products[it.ProductID]; ok {
			v.Name = p.Name
			v.ImageURL = p.ImageURL
			v.UnitPrice = p.Price
			v.Available = true
		}
		views = append(views, v)
	}
	return views
}

// CancellationSummary is what the customer is told when an order is cancelled.
// Total is recomputed from current catalog prices and may differ from the
// amount declared at checkout.
type CancellationSummary struct {
	OrderID  string          `json:"order_id"`
	Lines    []OrderItemView `json:"lines"`
	Total    int64           `json:"total"`
	Currency string          `json:"currency"`
	Reason   string          `json:"reason"`
}

func currencyOrDefault(code string) string {
	if code == "" {
		return DefaultCurrency
	}
	return strings.ToUpper(code)
}

// BuildCancellationSummary prices the order's items at current catalog prices.
// Products now priced in a different currency than the order are shown as
// unavailable and left out of the total.
func BuildCancellationSummary(o *Order, products map[string]*Product, reason string) CancellationSummary {
	lines := ResolveOrderItems(o.Items, products)
	orderCurrency := currencyOrDefault(o.Currency)
	var total int64
	for i := range lines {
		l := &lines[i]
		if p, ok := products[l.ProductID]; ok && currencyOrDefault(p.Currency) != orderCurrency {
			l.UnitPrice = 0
			l.Available = false
			continue
		}
		total += l.UnitPrice * int64(l.Quantity)
	}
	return CancellationSummary{
		OrderID:  o.ID,
		Lines:    lines,
		Total:    total,
		Currency: orderCurrency,
		Reason:   reason,
	}
}
