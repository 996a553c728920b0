package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DevFusionist/dilse/internal/domain"
)

type DisputeRepository struct {
	pool *pgxpool.Pool
}

func NewDisputeRepository(pool *pgxpool.Pool) *DisputeRepository {
	return &DisputeRepository{pool: pool}
}

// Upsert writes a dispute keyed by its gateway dispute reference. The stage
// is monotonic: the conflict clause refuses to lower stage_rank, so an
// out-of-order "created" after "won" leaves the row untouched. Returns
// whether the write (insert or stage advance) applied.
func (r *DisputeRepository) Upsert(ctx context.Context, d domain.Dispute) (bool, error) {
	const stmt = `
INSERT INTO disputes (id, payment_id, gateway_payment_id, gateway_dispute_id, stage, stage_rank, amount, reason, respond_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (gateway_dispute_id) DO UPDATE SET
	stage = EXCLUDED.stage,
	stage_rank = EXCLUDED.stage_rank,
	amount = EXCLUDED.amount,
	reason = COALESCE(NULLIF(EXCLUDED.reason, ''), disputes.reason),
	respond_by = COALESCE(EXCLUDED.respond_by, disputes.respond_by),
	updated_at = EXCLUDED.updated_at
WHERE disputes.stage_rank <= EXCLUDED.stage_rank`

	tag, err := r.exec(ctx, stmt,
		d.ID, d.PaymentID, d.GatewayPaymentID, d.GatewayDisputeID,
		d.Stage, domain.DisputeStageRank(d.Stage), d.Amount, d.Reason,
		d.RespondBy, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert dispute: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByGatewayID loads a dispute by gateway dispute reference.
func (r *DisputeRepository) GetByGatewayID(ctx context.Context, gatewayDisputeID string) (domain.Dispute, error) {
	const query = `
SELECT id, payment_id, gateway_payment_id, gateway_dispute_id, stage, stage_rank, amount, reason, respond_by, created_at, updated_at
FROM disputes
WHERE gateway_dispute_id = $1`

	var (
		d     domain.Dispute
		stage string
	)
	err := r.queryRow(ctx, query, gatewayDisputeID).Scan(
		&d.ID, &d.PaymentID, &d.GatewayPaymentID, &d.GatewayDisputeID,
		&stage, &d.StageRank, &d.Amount, &d.Reason, &d.RespondBy,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("get dispute: %w", err)
	}
	d.Stage = domain.DisputeStage(stage)
	return d, nil
}

func (r *DisputeRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *DisputeRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
