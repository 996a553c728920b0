package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DevFusionist/dilse/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists an order and its line items atomically. A duplicate
// gateway order reference maps to domain.ErrDuplicateOrder.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		shipping, err := json.Marshal(order.Shipping)
		if err != nil {
			return fmt.Errorf("marshal shipping: %w", err)
		}

		const stmt = `
INSERT INTO orders (id, gateway_order_id, amount, currency, customer_name, customer_email, customer_phone, shipping, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

		_, err = r.exec(txCtx, stmt,
			order.ID, order.GatewayOrderID, order.Amount, order.Currency,
			order.CustomerName, order.CustomerEmail, order.CustomerPhone,
			shipping, order.Status, order.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateOrder
			}
			return fmt.Errorf("create order: %w", err)
		}

		for _, item := range order.Items {
			_, err := r.exec(txCtx, `
INSERT INTO order_items (order_id, product_ref, name, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)`,
				order.ID, item.ProductRef, item.Name, item.Quantity, item.UnitPrice,
			)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}
		return nil
	})
}

// GetByGatewayRef loads an order and its line items by gateway reference.
func (r *OrderRepository) GetByGatewayRef(ctx context.Context, gatewayOrderID string) (domain.Order, error) {
	const query = `
SELECT id, gateway_order_id, amount, currency, customer_name, customer_email, customer_phone, shipping, status, notification_status, created_at, updated_at
FROM orders
WHERE gateway_order_id = $1`

	var (
		o        domain.Order
		shipping []byte
		status   string
		notif    string
	)
	err := r.queryRow(ctx, query, gatewayOrderID).Scan(
		&o.ID, &o.GatewayOrderID, &o.Amount, &o.Currency,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&shipping, &status, &notif, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	o.Status = domain.OrderStatus(status)
	o.NotificationStatus = domain.NotificationStatus(notif)
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
			return domain.Order{}, fmt.Errorf("unmarshal shipping: %w", err)
		}
	}

	items, err := r.loadItems(ctx, o.ID)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items
	return o, nil
}

// AdvanceStatus attempts a guarded transition. The update only applies when
// the stored status is a legal source for target, in one atomic statement,
// so concurrent duplicate deliveries cannot move an order backwards. It
// returns whether the transition applied and the status now stored.
func (r *OrderRepository) AdvanceStatus(ctx context.Context, gatewayOrderID string, target domain.OrderStatus, now time.Time) (bool, domain.OrderStatus, error) {
	sources := domain.TransitionSources(target)
	from := make([]string, 0, len(sources))
	for _, s := range sources {
		from = append(from, string(s))
	}

	tag, err := r.exec(ctx, `
UPDATE orders
SET status = $2, updated_at = $3
WHERE gateway_order_id = $1 AND status = ANY($4)`,
		gatewayOrderID, target, now, from,
	)
	if err != nil {
		return false, "", fmt.Errorf("advance order status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, target, nil
	}

	var current string
	err = r.queryRow(ctx, `SELECT status FROM orders WHERE gateway_order_id = $1`, gatewayOrderID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, "", domain.ErrOrderNotFound
		}
		return false, "", fmt.Errorf("read order status: %w", err)
	}
	return false, domain.OrderStatus(current), nil
}

// SetNotificationStatus records the gateway's delivery report for the
// order's outbound notification.
func (r *OrderRepository) SetNotificationStatus(ctx context.Context, gatewayOrderID string, status domain.NotificationStatus, now time.Time) error {
	tag, err := r.exec(ctx, `
UPDATE orders SET notification_status = $2, updated_at = $3 WHERE gateway_order_id = $1`,
		gatewayOrderID, status, now,
	)
	if err != nil {
		return fmt.Errorf("set notification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// ListByStatus returns the most recent orders, optionally filtered by
// status. Line items are not loaded for listings.
func (r *OrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT id, gateway_order_id, amount, currency, customer_name, customer_email, status, notification_status, created_at, updated_at
FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			o     domain.Order
			st    string
			notif string
		)
		if err := rows.Scan(
			&o.ID, &o.GatewayOrderID, &o.Amount, &o.Currency,
			&o.CustomerName, &o.CustomerEmail, &st, &notif,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = domain.OrderStatus(st)
		o.NotificationStatus = domain.NotificationStatus(notif)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.query(ctx, `
SELECT product_ref, name, quantity, unit_price
FROM order_items
WHERE order_id = $1
ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductRef, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	return items, nil
}

func (r *OrderRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OrderRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *OrderRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
