package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DevFusionist/dilse/internal/domain"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Upsert writes a payment keyed by its gateway payment reference in a single
// atomic statement, so concurrent duplicate deliveries can never produce two
// rows. A captured status and the verified flag are sticky: a stale
// authorized duplicate cannot downgrade either. A partial unique index allows
// only one verified captured payment per order; writing a second one fails
// with domain.ErrPaymentConflict so the caller can take the review path.
// Returns the stored payment and whether a new row was created.
func (r *PaymentRepository) Upsert(ctx context.Context, p domain.Payment) (domain.Payment, bool, error) {
	const stmt = `
INSERT INTO payments (
	id, order_id, gateway_order_id, gateway_payment_id, amount, currency, status,
	method, bank, wallet, vpa, email, contact, fee, tax, verified,
	error_code, error_description, error_reason, review_required,
	created_at, updated_at, captured_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
ON CONFLICT (gateway_payment_id) DO UPDATE SET
	status = CASE WHEN payments.status = 'captured' THEN payments.status ELSE EXCLUDED.status END,
	method = COALESCE(NULLIF(EXCLUDED.method, ''), payments.method),
	bank = COALESCE(NULLIF(EXCLUDED.bank, ''), payments.bank),
	wallet = COALESCE(NULLIF(EXCLUDED.wallet, ''), payments.wallet),
	vpa = COALESCE(NULLIF(EXCLUDED.vpa, ''), payments.vpa),
	email = COALESCE(NULLIF(EXCLUDED.email, ''), payments.email),
	contact = COALESCE(NULLIF(EXCLUDED.contact, ''), payments.contact),
	fee = GREATEST(payments.fee, EXCLUDED.fee),
	tax = GREATEST(payments.tax, EXCLUDED.tax),
	verified = payments.verified OR EXCLUDED.verified,
	error_code = COALESCE(NULLIF(EXCLUDED.error_code, ''), payments.error_code),
	error_description = COALESCE(NULLIF(EXCLUDED.error_description, ''), payments.error_description),
	error_reason = COALESCE(NULLIF(EXCLUDED.error_reason, ''), payments.error_reason),
	review_required = payments.review_required OR EXCLUDED.review_required,
	captured_at = COALESCE(payments.captured_at, EXCLUDED.captured_at),
	updated_at = EXCLUDED.updated_at
RETURNING id, order_id, status, verified, review_required, created_at, updated_at, (xmax = 0)`

	var (
		stored  = p
		status  string
		created bool
	)
	err := r.queryRow(ctx, stmt,
		p.ID, p.OrderID, p.GatewayOrderID, p.GatewayPaymentID, p.Amount, p.Currency, p.Status,
		p.Method, p.Bank, p.Wallet, p.VPA, p.Email, p.Contact, p.Fee, p.Tax, p.Verified,
		p.ErrorCode, p.ErrorDescription, p.ErrorReason, p.ReviewRequired,
		p.CreatedAt, p.UpdatedAt, p.CapturedAt,
	).Scan(&stored.ID, &stored.OrderID, &status, &stored.Verified, &stored.ReviewRequired, &stored.CreatedAt, &stored.UpdatedAt, &created)
	if err != nil {
		if isConstraintViolation(err, "idx_payments_one_verified_capture") {
			return domain.Payment{}, false, domain.ErrPaymentConflict
		}
		return domain.Payment{}, false, fmt.Errorf("upsert payment: %w", err)
	}
	stored.Status = domain.PaymentStatus(status)
	return stored, created, nil
}

// GetByGatewayID loads a payment by gateway payment reference.
func (r *PaymentRepository) GetByGatewayID(ctx context.Context, gatewayPaymentID string) (domain.Payment, error) {
	const query = `
SELECT id, order_id, gateway_order_id, gateway_payment_id, amount, currency, status,
	method, bank, wallet, vpa, email, contact, fee, tax, verified,
	error_code, error_description, error_reason, dispute_status, refund_status,
	review_required, created_at, updated_at, captured_at
FROM payments
WHERE gateway_payment_id = $1`

	var (
		p      domain.Payment
		status string
	)
	err := r.queryRow(ctx, query, gatewayPaymentID).Scan(
		&p.ID, &p.OrderID, &p.GatewayOrderID, &p.GatewayPaymentID, &p.Amount, &p.Currency, &status,
		&p.Method, &p.Bank, &p.Wallet, &p.VPA, &p.Email, &p.Contact, &p.Fee, &p.Tax, &p.Verified,
		&p.ErrorCode, &p.ErrorDescription, &p.ErrorReason, &p.DisputeStatus, &p.RefundStatus,
		&p.ReviewRequired, &p.CreatedAt, &p.UpdatedAt, &p.CapturedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	p.Status = domain.PaymentStatus(status)
	return p, nil
}

// FindVerifiedCaptured returns the authoritative captured payment for an
// order, or nil when none exists yet.
func (r *PaymentRepository) FindVerifiedCaptured(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	const query = `
SELECT id, order_id, gateway_payment_id, amount, currency, verified
FROM payments
WHERE gateway_order_id = $1 AND status = 'captured' AND verified
ORDER BY created_at
LIMIT 1`

	var p domain.Payment
	p.GatewayOrderID = gatewayOrderID
	p.Status = domain.PaymentStatusCaptured
	err := r.queryRow(ctx, query, gatewayOrderID).Scan(
		&p.ID, &p.OrderID, &p.GatewayPaymentID, &p.Amount, &p.Currency, &p.Verified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find captured payment: %w", err)
	}
	return &p, nil
}

// SetDisputeStatus mirrors the latest dispute stage onto the payment row.
func (r *PaymentRepository) SetDisputeStatus(ctx context.Context, gatewayPaymentID, stage string, now time.Time) error {
	tag, err := r.exec(ctx, `
UPDATE payments SET dispute_status = $2, updated_at = $3 WHERE gateway_payment_id = $1`,
		gatewayPaymentID, stage, now,
	)
	if err != nil {
		return fmt.Errorf("set dispute status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// SetRefundStatus mirrors the latest refund state onto the payment row.
func (r *PaymentRepository) SetRefundStatus(ctx context.Context, gatewayPaymentID, status string, now time.Time) error {
	tag, err := r.exec(ctx, `
UPDATE payments SET refund_status = $2, updated_at = $3 WHERE gateway_payment_id = $1`,
		gatewayPaymentID, status, now,
	)
	if err != nil {
		return fmt.Errorf("set refund status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// ListRequiringReview returns payments flagged for manual review.
func (r *PaymentRepository) ListRequiringReview(ctx context.Context) ([]domain.Payment, error) {
	rows, err := r.query(ctx, `
SELECT id, order_id, gateway_order_id, gateway_payment_id, amount, currency, status, verified, created_at, updated_at
FROM payments
WHERE review_required
ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list payments for review: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		var (
			p      domain.Payment
			status string
		)
		if err := rows.Scan(
			&p.ID, &p.OrderID, &p.GatewayOrderID, &p.GatewayPaymentID,
			&p.Amount, &p.Currency, &status, &p.Verified, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Status = domain.PaymentStatus(status)
		p.ReviewRequired = true
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payments for review: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *PaymentRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *PaymentRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
