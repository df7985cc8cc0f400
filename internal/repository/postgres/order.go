package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// orderSelect loads an order with its items and history aggregated as JSON,
// avoiding a query per child table.
const orderSelect = `
	SELECT o.id, o.user_id, o.status, o.total_amount, o.currency, o.payment_method,
	       o.shipping_address, o.notification_sent, o.canceled_reason, o.created_at, o.updated_at,
	       COALESCE((
	           SELECT JSONB_AGG(JSONB_BUILD_OBJECT(
	               'product_id', i.product_id, 'quantity', i.quantity, 'size', i.size
	           ) ORDER BY i.position)
	           FROM order_items i WHERE i.order_id = o.id
	       ), '[]'::jsonb) AS items,
	       COALESCE((
	           SELECT JSONB_AGG(JSONB_BUILD_OBJECT(
	               'status', h.status, 'timestamp', h.created_at, 'location', h.location
	           ) ORDER BY h.seq)
	           FROM order_status_history h WHERE h.order_id = o.id
	       ), '[]'::jsonb) AS history`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order, its items and its history in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	var shippingJSON []byte
	if o.ShippingAddress != nil {
		var err error
		if shippingJSON, err = json.Marshal(o.ShippingAddress); err != nil {
			return fmt.Errorf("marshal shipping address: %w", err)
		}
	}

	ctx, done := database.TraceQuery(ctx, "orders.create", "INSERT INTO orders")
	_, err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, user_id, status, total_amount, currency, payment_method, shipping_address,
			                    notification_sent, canceled_reason, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			o.ID, o.UserID, o.Status, o.TotalAmount, o.Currency, o.PaymentMethod, shippingJSON,
			o.NotificationSent, o.CanceledReason, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return struct{}{}, fmt.Errorf("insert order: %w", err)
		}

		for i, item := range o.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO order_items (order_id, position, product_id, quantity, size)
				VALUES ($1, $2, $3, $4, $5)`,
				o.ID, i, item.ProductID, item.Quantity, item.Size,
			)
			if err != nil {
				return struct{}{}, fmt.Errorf("insert order item: %w", err)
			}
		}

		for i, h := range o.StatusHistory {
			if err := insertHistory(ctx, tx, o.ID, i, h); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	done(err)
	return err
}

func insertHistory(ctx context.Context, tx pgx.Tx, orderID string, seq int, h domain.StatusUpdate) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_history (order_id, seq, status, location, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		orderID, seq, h.Status, h.Location, h.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func scanOrder(row rowScanner, extra ...any) (*domain.Order, error) {
	var (
		o            domain.Order
		shippingJSON []byte
		itemsJSON    []byte
		historyJSON  []byte
	)

	dest := []any{
		&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.Currency, &o.PaymentMethod,
		&shippingJSON, &o.NotificationSent, &o.CanceledReason, &o.CreatedAt, &o.UpdatedAt,
		&itemsJSON, &historyJSON,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
		var addr domain.Address
		if err := json.Unmarshal(shippingJSON, &addr); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
		o.ShippingAddress = &addr
	}

	o.Items = []domain.OrderItem{}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	o.StatusHistory = []domain.StatusUpdate{}
	if err := json.Unmarshal(historyJSON, &o.StatusHistory); err != nil {
		return nil, fmt.Errorf("unmarshal status history: %w", err)
	}
	return &o, nil
}

// GetByID retrieves an order with its items and history.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` FROM orders o WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// List returns orders matching filter, newest first, with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("o.user_id = $%d", len(args)))
	}
	if !filter.IncludeCancelled {
		args = append(args, domain.OrderStatusCancelled)
		conditions = append(conditions, fmt.Sprintf("o.status <> $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := pageBounds(filter.Page, filter.PerPage)
	query := fmt.Sprintf(`%s, count(*) OVER() AS total_count
		FROM orders o
		%s
		ORDER BY o.created_at DESC
		LIMIT $%d OFFSET $%d`,
		orderSelect, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		orders     = make([]domain.Order, 0)
		totalCount int
	)
	for rows.Next() {
		o, err := scanOrder(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, totalCount, nil
}

// MarkNotificationSent sets notification_sent unless it is already set.
func (r *OrderRepository) MarkNotificationSent(ctx context.Context, id string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET notification_sent = TRUE, updated_at = $1
		WHERE id = $2 AND notification_sent = FALSE`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("mark notification sent: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// UpdateStatus moves the order to status under a row lock, so concurrent
// transitions are checked against the committed status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status, reason string, entry domain.StatusUpdate) error {
	_, err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) (struct{}, error) {
		current := domain.Order{ID: id}
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current.Status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return struct{}{}, apperrors.NotFound("order", id)
			}
			return struct{}{}, fmt.Errorf("lock order: %w", err)
		}
		if !current.CanTransitionTo(status) {
			return struct{}{}, apperrors.Conflict(fmt.Sprintf("order cannot move from %s to %s", current.Status, status))
		}

		if _, err := tx.Exec(ctx, `
			UPDATE orders SET status = $1, canceled_reason = $2, updated_at = $3 WHERE id = $4`,
			status, reason, entry.Timestamp, id,
		); err != nil {
			return struct{}{}, fmt.Errorf("update order status: %w", err)
		}

		var seq int
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(seq) + 1, 0) FROM order_status_history WHERE order_id = $1`, id,
		).Scan(&seq); err != nil {
			return struct{}{}, fmt.Errorf("next history seq: %w", err)
		}
		return struct{}{}, insertHistory(ctx, tx, id, seq, entry)
	})
	return err
}

// ProductQuantities sums quantities per product across orders that are not cancelled.
func (r *OrderRepository) ProductQuantities(ctx context.Context) ([]domain.ProductQuantity, error) {
	query := `
		SELECT i.product_id, SUM(i.quantity)::int AS total_quantity, COUNT(DISTINCT i.order_id)::int AS order_count
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE o.status <> $1
		GROUP BY i.product_id`

	ctx, done := database.TraceQuery(ctx, "orders.product_quantities", query)
	rows, err := r.pool.Query(ctx, query, domain.OrderStatusCancelled)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("sum product quantities: %w", err)
	}
	defer rows.Close()

	totals := make([]domain.ProductQuantity, 0)
	for rows.Next() {
		var pq domain.ProductQuantity
		if err := rows.Scan(&pq.ProductID, &pq.Quantity, &pq.OrderCount); err != nil {
			done(err)
			return nil, fmt.Errorf("scan product quantity: %w", err)
		}
		totals = append(totals, pq)
	}
	err = rows.Err()
	done(err)
	if err != nil {
		return nil, fmt.Errorf("iterate product quantities: %w", err)
	}
	return totals, nil
}
