package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DevFusionist/dilse/internal/domain"
)

type RefundRepository struct {
	pool *pgxpool.Pool
}

func NewRefundRepository(pool *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{pool: pool}
}

// Upsert writes a refund keyed by its gateway refund reference. Duplicate
// deliveries update the existing row in place; the bool reports whether a
// new row was created.
func (r *RefundRepository) Upsert(ctx context.Context, refund domain.Refund) (bool, error) {
	const stmt = `
INSERT INTO refunds (id, order_id, payment_id, gateway_payment_id, gateway_refund_id, amount, currency, status, speed, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (gateway_refund_id) DO UPDATE SET
	status = EXCLUDED.status,
	speed = EXCLUDED.speed,
	amount = EXCLUDED.amount,
	updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0)`

	var created bool
	err := r.queryRow(ctx, stmt,
		refund.ID, refund.OrderID, refund.PaymentID, refund.GatewayPaymentID,
		refund.GatewayRefundID, refund.Amount, refund.Currency, refund.Status,
		refund.Speed, refund.CreatedAt, refund.UpdatedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert refund: %w", err)
	}
	return created, nil
}

// GetByGatewayID loads a refund by gateway refund reference.
func (r *RefundRepository) GetByGatewayID(ctx context.Context, gatewayRefundID string) (domain.Refund, error) {
	const query = `
SELECT id, order_id, payment_id, gateway_payment_id, gateway_refund_id, amount, currency, status, speed, created_at, updated_at
FROM refunds
WHERE gateway_refund_id = $1`

	var (
		refund domain.Refund
		status string
	)
	err := r.queryRow(ctx, query, gatewayRefundID).Scan(
		&refund.ID, &refund.OrderID, &refund.PaymentID, &refund.GatewayPaymentID,
		&refund.GatewayRefundID, &refund.Amount, &refund.Currency, &status,
		&refund.Speed, &refund.CreatedAt, &refund.UpdatedAt,
	)
	if err != nil {
		return domain.Refund{}, fmt.Errorf("get refund: %w", err)
	}
	refund.Status = domain.RefundStatus(status)
	return refund, nil
}

// CountByGatewayID reports how many rows exist for a gateway refund
// reference. Used by idempotency tests; the unique index keeps this at most 1.
func (r *RefundRepository) CountByGatewayID(ctx context.Context, gatewayRefundID string) (int, error) {
	var n int
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM refunds WHERE gateway_refund_id = $1`, gatewayRefundID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count refunds: %w", err)
	}
	return n, nil
}

func (r *RefundRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
