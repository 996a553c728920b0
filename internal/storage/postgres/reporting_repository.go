package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DevFusionist/dilse/internal/domain"
)

// ReportingRepository persists the gateway's secondary records: settlements,
// invoices, payment links and downtime windows. Each is upserted atomically
// by its own gateway reference; every method returns whether a new row was
// created.
type ReportingRepository struct {
	pool *pgxpool.Pool
}

func NewReportingRepository(pool *pgxpool.Pool) *ReportingRepository {
	return &ReportingRepository{pool: pool}
}

func (r *ReportingRepository) UpsertSettlement(ctx context.Context, s domain.Settlement) (bool, error) {
	const stmt = `
INSERT INTO settlements (id, gateway_settlement_id, amount, currency, status, utr, fees, tax, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (gateway_settlement_id) DO UPDATE SET
	amount = EXCLUDED.amount,
	status = EXCLUDED.status,
	utr = COALESCE(NULLIF(EXCLUDED.utr, ''), settlements.utr),
	fees = EXCLUDED.fees,
	tax = EXCLUDED.tax,
	updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0)`

	var created bool
	err := r.queryRow(ctx, stmt,
		s.ID, s.GatewaySettlementID, s.Amount, s.Currency, s.Status,
		s.UTR, s.Fees, s.Tax, s.CreatedAt, s.UpdatedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert settlement: %w", err)
	}
	return created, nil
}

func (r *ReportingRepository) UpsertInvoice(ctx context.Context, inv domain.Invoice) (bool, error) {
	const stmt = `
INSERT INTO invoices (id, gateway_invoice_id, gateway_order_id, invoice_number, amount, amount_paid, currency, status, customer_name, customer_email, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (gateway_invoice_id) DO UPDATE SET
	status = EXCLUDED.status,
	amount_paid = EXCLUDED.amount_paid,
	customer_name = COALESCE(NULLIF(EXCLUDED.customer_name, ''), invoices.customer_name),
	customer_email = COALESCE(NULLIF(EXCLUDED.customer_email, ''), invoices.customer_email),
	updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0)`

	var created bool
	err := r.queryRow(ctx, stmt,
		inv.ID, inv.GatewayInvoiceID, inv.GatewayOrderID, inv.InvoiceNumber,
		inv.Amount, inv.AmountPaid, inv.Currency, inv.Status,
		inv.CustomerName, inv.CustomerEmail, inv.CreatedAt, inv.UpdatedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert invoice: %w", err)
	}
	return created, nil
}

func (r *ReportingRepository) UpsertPaymentLink(ctx context.Context, link domain.PaymentLink) (bool, error) {
	const stmt = `
INSERT INTO payment_links (id, gateway_link_id, gateway_order_id, amount, amount_paid, currency, status, short_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (gateway_link_id) DO UPDATE SET
	status = EXCLUDED.status,
	amount_paid = EXCLUDED.amount_paid,
	short_url = COALESCE(NULLIF(EXCLUDED.short_url, ''), payment_links.short_url),
	updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0)`

	var created bool
	err := r.queryRow(ctx, stmt,
		link.ID, link.GatewayLinkID, link.GatewayOrderID, link.Amount,
		link.AmountPaid, link.Currency, link.Status, link.ShortURL,
		link.CreatedAt, link.UpdatedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert payment link: %w", err)
	}
	return created, nil
}

func (r *ReportingRepository) UpsertDowntime(ctx context.Context, d domain.Downtime) (bool, error) {
	const stmt = `
INSERT INTO downtimes (id, gateway_downtime_id, status, method, begin_at, end_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (gateway_downtime_id) DO UPDATE SET
	status = EXCLUDED.status,
	method = COALESCE(NULLIF(EXCLUDED.method, ''), downtimes.method),
	begin_at = COALESCE(EXCLUDED.begin_at, downtimes.begin_at),
	end_at = COALESCE(EXCLUDED.end_at, downtimes.end_at),
	updated_at = EXCLUDED.updated_at
RETURNING (xmax = 0)`

	var created bool
	err := r.queryRow(ctx, stmt,
		d.ID, d.GatewayDowntimeID, d.Status, d.Method,
		d.Begin, d.End, d.CreatedAt, d.UpdatedAt,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert downtime: %w", err)
	}
	return created, nil
}

func (r *ReportingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
