package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []OrderItem{{ProductID: "a", Quantity: 2}}

	o := NewOrder("o-1", "u-1", items, 200, "", "card", nil, now)

	assert.Equal(t, OrderStatusPlaced, o.Status)
	assert.Equal(t, DefaultCurrency, o.Currency)
	assert.False(t, o.NotificationSent)
	assert.Equal(t, items, o.Items)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, StatusUpdate{Status: HistoryOrderConfirmed, Timestamp: now, Location: DefaultHistoryLocation}, o.StatusHistory[0])

	items[0].Quantity = 99
	assert.Equal(t, 2, o.Items[0].Quantity, "order keeps its own copy of the items")
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{OrderStatusPlaced, OrderStatusConfirmed, true},
		{OrderStatusPlaced, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusPlaced, false},
		{OrderStatusCancelled, OrderStatusPlaced, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{"bogus", OrderStatusCancelled, false},
	}
	for _, tt := range tests {
		o := &Order{Status: tt.from}
		assert.Equal(t, tt.want, o.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderProductIDs_Distinct(t *testing.T) {
	o := &Order{Items: []OrderItem{{ProductID: "a"}, {ProductID: "b"}, {ProductID: "a", Size: "L"}}}
	assert.Equal(t, []string{"a", "b"}, o.ProductIDs())
}

func TestBuildCancellationSummary_UsesCurrentPrices(t *testing.T) {
	o := &Order{
		ID:          "o-1",
		Currency:    "USD",
		TotalAmount: 999999,
		Items:       []OrderItem{{ProductID: "a", Quantity: 2}, {ProductID: "gone", Quantity: 3}},
	}
	products := ProductsByID([]Product{{ID: "a", Name: "Coupe", Price: 1250}})

	s := BuildCancellationSummary(o, products, "Changed my mind")

	assert.Equal(t, int64(2500), s.Total)
	assert.Equal(t, "Changed my mind", s.Reason)
	require.Len(t, s.Lines, 2)
	assert.True(t, s.Lines[0].Available)
	assert.False(t, s.Lines[1].Available)
	assert.Equal(t, UnavailableProductName, s.Lines[1].Name)
	assert.Zero(t, s.Lines[1].UnitPrice)
}

func TestBuildCancellationSummary_SkipsForeignCurrency(t *testing.T) {
	o := &Order{
		ID:       "o-2",
		Currency: "USD",
		Items:    []OrderItem{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 2}},
	}
	products := ProductsByID([]Product{
		{ID: "a", Name: "Coupe", Price: 1000, Currency: "usd"},
		{ID: "b", Name: "Wagon", Price: 700, Currency: "EUR"},
	})

	s := BuildCancellationSummary(o, products, "late")

	assert.Equal(t, int64(1000), s.Total)
	assert.Equal(t, "USD", s.Currency)
	require.Len(t, s.Lines, 2)
	assert.True(t, s.Lines[0].Available)
	assert.False(t, s.Lines[1].Available)
	assert.Equal(t, "Wagon", s.Lines[1].Name)
	assert.Zero(t, s.Lines[1].UnitPrice)
}
