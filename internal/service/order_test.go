package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var ada = domain.Principal{UserID: "u-1", Email: "ada@example.com", Name: "Ada"}

// memOrders is an in-memory OrderRepository.
type memOrders struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[string]domain.Order)}
}

func cloneOrder(o domain.Order) *domain.Order {
	o.Items = slices.Clone(o.Items)
	o.StatusHistory = slices.Clone(o.StatusHistory)
	return &o
}

func (m *memOrders) Create(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = *cloneOrder(*o)
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	return cloneOrder(o), nil
}

func (m *memOrders) List(_ context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Order{}
	for _, o := range m.orders {
		if o.UserID == filter.UserID && (filter.IncludeCancelled || !o.IsCancelled()) {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, len(out), nil
}

func (m *memOrders) MarkNotificationSent(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.NotificationSent {
		return false, nil
	}
	o.NotificationSent = true
	m.orders[id] = o
	return true, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id, status, reason string, entry domain.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return apperrors.NotFound("order", id)
	}
	if !o.CanTransitionTo(status) {
		return apperrors.Conflict("invalid transition")
	}
	o.Status = status
	o.CanceledReason = reason
	o.StatusHistory = append(slices.Clone(o.StatusHistory), entry)
	m.orders[id] = o
	return nil
}

func (m *memOrders) ProductQuantities(context.Context) ([]domain.ProductQuantity, error) {
	return nil, errors.New("not implemented")
}

func (m *memOrders) status(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

type recordingCarts struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recordingCarts) RemoveLines(_ context.Context, _ string, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ids)
	return r.err
}

type orderFixture struct {
	svc      *OrderService
	orders   *memOrders
	products *mockProductRepository
	sender   *mockSender
	carts    *recordingCarts
	disp     *Dispatcher
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:   newMemOrders(),
		products: new(mockProductRepository),
		sender:   new(mockSender),
		carts:    &recordingCarts{},
	}
	f.disp = NewDispatcher(f.orders, f.products, f.sender, time.Second, newTestLogger())
	f.svc = NewOrderService(f.orders, f.products, f.carts, f.disp, nil, newTestLogger())
	return f
}

func (f *orderFixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.disp.Wait(ctx))
}

func (f *orderFixture) seed(t *testing.T, o *domain.Order) {
	t.Helper()
	require.NoError(t, f.orders.Create(context.Background(), o))
}

func placedOrder(id, userID string, items ...domain.OrderItem) *domain.Order {
	return domain.NewOrder(id, userID, items, 200, "USD", "PayPal", nil, time.Now().UTC())
}

func TestCreateOrder_SnapshotAndSingleHistoryEntry(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.products.On("GetByIDs", mock.Anything, []string{"productA"}).Return([]domain.Product{}, nil)
	f.sender.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Message) bool {
		return m.Kind == notify.KindOrderPlaced && m.Recipient == "ada@example.com"
	})).Return(nil)

	order, err := f.svc.CreateOrder(ctx, ada, CreateOrderInput{
		Items:         []CreateOrderItemInput{{ProductID: "productA", Quantity: 2}},
		TotalAmount:   200,
		PaymentMethod: "PayPal",
	})
	require.NoError(t, err)
	f.drain(t)

	if diff := cmp.Diff([]domain.OrderItem{{ProductID: "productA", Quantity: 2}}, order.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.OrderStatusPlaced, order.Status)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, domain.HistoryOrderConfirmed, order.StatusHistory[0].Status)
	assert.Equal(t, domain.DefaultHistoryLocation, order.StatusHistory[0].Location)
	assert.Equal(t, int64(200), order.TotalAmount)
	assert.Equal(t, domain.DefaultCurrency, order.Currency)
	assert.Equal(t, [][]string{{"productA"}}, f.carts.calls)

	stored, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.NotificationSent)
	if diff := cmp.Diff(order.Items, stored.Items); diff != "" {
		t.Errorf("stored items mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateOrder_EmptyItemsPersistsNothing(t *testing.T) {
	f := newOrderFixture()

	_, err := f.svc.CreateOrder(context.Background(), ada, CreateOrderInput{PaymentMethod: "PayPal"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "no order items", appErr.Message)
	assert.Empty(t, f.orders.orders)
	assert.Empty(t, f.carts.calls)
}

func TestCreateOrder_InvalidInput(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, ada, CreateOrderInput{
		Items: []CreateOrderItemInput{{ProductID: "p-1", Quantity: 0}},
	})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = f.svc.CreateOrder(ctx, ada, CreateOrderInput{
		Items: []CreateOrderItemInput{{Quantity: 1}},
	})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = f.svc.CreateOrder(ctx, domain.Principal{}, CreateOrderInput{
		Items: []CreateOrderItemInput{{ProductID: "p-1", Quantity: 1}},
	})
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	assert.Empty(t, f.orders.orders)
}

func TestCreateOrder_SucceedsWhenNotificationAndCartFail(t *testing.T) {
	f := newOrderFixture()
	f.carts.err = errors.New("redis down")

	f.products.On("GetByIDs", mock.Anything, []string{"p-1"}).Return([]domain.Product{*roadster()}, nil)
	f.sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp timeout"))

	order, err := f.svc.CreateOrder(context.Background(), ada, CreateOrderInput{
		Items:         []CreateOrderItemInput{{ProductID: "p-1", Quantity: 1}},
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	f.drain(t)

	f.sender.AssertNumberOfCalls(t, "Send", 1)
	stored, err := f.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, stored.NotificationSent)
}

func TestCancelOrder_BlankReasonLeavesOrderUnchanged(t *testing.T) {
	f := newOrderFixture()
	f.seed(t, placedOrder("o-1", "u-1", domain.OrderItem{ProductID: "p-1", Quantity: 1}))

	for _, reason := range []string{"", "   ", "\t\n"} {
		err := f.svc.CancelOrder(context.Background(), ada, "o-1", reason)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	}
	assert.Equal(t, domain.OrderStatusPlaced, f.orders.status("o-1"))
	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestCancelOrder_OtherUsersOrderIsNotFound(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.seed(t, placedOrder("o-1", "u-1", domain.OrderItem{ProductID: "p-1", Quantity: 1}))
	f.products.On("GetByIDs", ctx, []string{"p-1"}).Return([]domain.Product{*roadster()}, nil)

	err := f.svc.CancelOrder(ctx, domain.Principal{UserID: "intruder"}, "o-1", "mine now")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, missingErr := f.svc.GetOrder(ctx, domain.Principal{UserID: "intruder"}, "nope")
	assert.Equal(t, apperrors.HTTPStatus(missingErr), apperrors.HTTPStatus(err))

	f.sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	detail, err := f.svc.GetOrder(ctx, ada, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPlaced, detail.Status)
	assert.Equal(t, "Roadster", detail.Lines[0].Name)
}

func TestCancelOrder_NotifiesBeforePersisting(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.seed(t, placedOrder("o-1", "u-1",
		domain.OrderItem{ProductID: "p-1", Quantity: 2},
		domain.OrderItem{ProductID: "gone", Quantity: 1},
	))

	var statusAtSend string
	f.products.On("GetByIDs", ctx, []string{"p-1", "gone"}).Return([]domain.Product{*roadster()}, nil)
	f.sender.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Message) bool {
		return m.Kind == notify.KindOrderCancelled && m.Recipient == "ada@example.com"
	})).Run(func(mock.Arguments) { statusAtSend = f.orders.status("o-1") }).Return(nil)

	require.NoError(t, f.svc.CancelOrder(ctx, ada, "o-1", "  Changed my mind "))
	assert.Equal(t, domain.OrderStatusPlaced, statusAtSend)

	msg := f.sender.Calls[0].Arguments.Get(1).(notify.Message)
	assert.Contains(t, msg.Body, "Reason: Changed my mind")
	assert.Contains(t, msg.Body, "Total at current prices: 5000.00 USD")

	stored, err := f.orders.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, stored.Status)
	assert.Equal(t, "Changed my mind", stored.CanceledReason)
	require.Len(t, stored.StatusHistory, 2)
	assert.Equal(t, domain.HistoryOrderCancelled, stored.StatusHistory[1].Status)
}

func TestCancelOrder_NotificationFailureDoesNotBlock(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.seed(t, placedOrder("o-1", "u-1", domain.OrderItem{ProductID: "p-1", Quantity: 1}))
	f.products.On("GetByIDs", ctx, []string{"p-1"}).Return([]domain.Product{*roadster()}, nil)
	f.sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("mailbox full"))

	require.NoError(t, f.svc.CancelOrder(ctx, ada, "o-1", "late"))
	assert.Equal(t, domain.OrderStatusCancelled, f.orders.status("o-1"))
}

func TestCancelOrder_ConcurrentCancelsOneWins(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.seed(t, placedOrder("o-1", "u-1", domain.OrderItem{ProductID: "p-1", Quantity: 1}))
	f.products.On("GetByIDs", ctx, []string{"p-1"}).Return([]domain.Product{*roadster()}, nil)

	// Hold both notices until each request has read the live order.
	var bothSending sync.WaitGroup
	bothSending.Add(2)
	f.sender.On("Send", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		bothSending.Done()
		bothSending.Wait()
	}).Return(nil)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.svc.CancelOrder(ctx, ada, "o-1", "changed")
		}()
	}
	wg.Wait()

	var succeeded, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperrors.ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected cancel error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, notFound)

	stored, err := f.orders.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, stored.Status)
	assert.Len(t, stored.StatusHistory, 2)
}

func TestOrderWorkedExample(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.products.On("GetByIDs", mock.Anything, []string{"productA"}).Return([]domain.Product{}, nil)
	f.sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	order, err := f.svc.CreateOrder(ctx, ada, CreateOrderInput{
		Items:         []CreateOrderItemInput{{ProductID: "productA", Quantity: 2}},
		TotalAmount:   200,
		PaymentMethod: "PayPal",
	})
	require.NoError(t, err)
	f.drain(t)
	assert.Equal(t, domain.OrderStatusPlaced, order.Status)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, "Order Confirmed", order.StatusHistory[0].Status)

	require.NoError(t, f.svc.CancelOrder(ctx, ada, order.ID, "Changed my mind"))

	_, err = f.svc.GetOrder(ctx, ada, order.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	list, total, err := f.svc.ListMyOrders(ctx, ada, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestConfirmOrder(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.seed(t, placedOrder("o-1", "u-1", domain.OrderItem{ProductID: "p-1", Quantity: 1}))

	o, err := f.svc.ConfirmOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, o.Status)
	assert.Equal(t, domain.HistoryOrderAccepted, o.StatusHistory[len(o.StatusHistory)-1].Status)

	_, err = f.svc.ConfirmOrder(ctx, "o-1")
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	_, err = f.svc.ConfirmOrder(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
