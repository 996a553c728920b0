package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DevFusionist/dilse/internal/domain"
	"github.com/DevFusionist/dilse/internal/testutil"
)

func TestReportingRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewReportingRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("UpsertSettlement creates then updates in place", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		s := domain.Settlement{
			ID:                  uuid.NewString(),
			GatewaySettlementID: "setl_A",
			Amount:              250000,
			Currency:            "INR",
			Status:              "processed",
			UTR:                 "UTR123",
			Fees:                5000,
			Tax:                 900,
			CreatedAt:           time.Now().UTC(),
			UpdatedAt:           time.Now().UTC(),
		}
		created, err := repo.UpsertSettlement(ctx, s)
		if err != nil {
			t.Fatalf("first upsert: %v", err)
		}
		if !created {
			t.Fatalf("expected first upsert to create a row")
		}

		dup := s
		dup.ID = uuid.NewString()
		dup.UTR = ""
		created, err = repo.UpsertSettlement(ctx, dup)
		if err != nil {
			t.Fatalf("second upsert: %v", err)
		}
		if created {
			t.Fatalf("expected second upsert to update in place")
		}

		var utr string
		if err := pool.QueryRow(ctx, `SELECT utr FROM settlements WHERE gateway_settlement_id = 'setl_A'`).Scan(&utr); err != nil {
			t.Fatalf("query settlement: %v", err)
		}
		if utr != "UTR123" {
			t.Fatalf("expected UTR to survive an empty duplicate, got %q", utr)
		}
	})

	t.Run("UpsertInvoice tracks status changes", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		inv := domain.Invoice{
			ID:               uuid.NewString(),
			GatewayInvoiceID: "inv_A",
			GatewayOrderID:   "order_A",
			InvoiceNumber:    "INV-001",
			Amount:           100000,
			AmountPaid:       40000,
			Currency:         "INR",
			Status:           "partially_paid",
			CustomerEmail:    "asha@example.com",
			CreatedAt:        time.Now().UTC(),
			UpdatedAt:        time.Now().UTC(),
		}
		if created, err := repo.UpsertInvoice(ctx, inv); err != nil || !created {
			t.Fatalf("first upsert: created=%v err=%v", created, err)
		}

		paid := inv
		paid.ID = uuid.NewString()
		paid.Status = "paid"
		paid.AmountPaid = 100000
		if created, err := repo.UpsertInvoice(ctx, paid); err != nil || created {
			t.Fatalf("second upsert: created=%v err=%v", created, err)
		}

		var status string
		var amountPaid int64
		if err := pool.QueryRow(ctx, `SELECT status, amount_paid FROM invoices WHERE gateway_invoice_id = 'inv_A'`).Scan(&status, &amountPaid); err != nil {
			t.Fatalf("query invoice: %v", err)
		}
		if status != "paid" || amountPaid != 100000 {
			t.Fatalf("unexpected invoice: %s/%d", status, amountPaid)
		}
	})

	t.Run("UpsertPaymentLink is keyed by gateway link reference", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		link := domain.PaymentLink{
			ID:            uuid.NewString(),
			GatewayLinkID: "plink_A",
			Amount:        50000,
			Currency:      "INR",
			Status:        "created",
			ShortURL:      "https://rzp.io/l/abc",
			CreatedAt:     time.Now().UTC(),
			UpdatedAt:     time.Now().UTC(),
		}
		if created, err := repo.UpsertPaymentLink(ctx, link); err != nil || !created {
			t.Fatalf("first upsert: created=%v err=%v", created, err)
		}

		cancelled := link
		cancelled.ID = uuid.NewString()
		cancelled.Status = "cancelled"
		if created, err := repo.UpsertPaymentLink(ctx, cancelled); err != nil || created {
			t.Fatalf("second upsert: created=%v err=%v", created, err)
		}

		var n int
		if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM payment_links`).Scan(&n); err != nil {
			t.Fatalf("count links: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 link row, got %d", n)
		}
	})

	t.Run("UpsertDowntime keeps the begin time across updates", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		begin := time.Now().UTC().Add(-10 * time.Minute)
		started := domain.Downtime{
			ID:                uuid.NewString(),
			GatewayDowntimeID: "down_A",
			Status:            "started",
			Method:            "upi",
			Begin:             &begin,
			CreatedAt:         time.Now().UTC(),
			UpdatedAt:         time.Now().UTC(),
		}
		if created, err := repo.UpsertDowntime(ctx, started); err != nil || !created {
			t.Fatalf("first upsert: created=%v err=%v", created, err)
		}

		end := time.Now().UTC()
		resolved := started
		resolved.ID = uuid.NewString()
		resolved.Status = "resolved"
		resolved.Begin = nil
		resolved.End = &end
		if created, err := repo.UpsertDowntime(ctx, resolved); err != nil || created {
			t.Fatalf("second upsert: created=%v err=%v", created, err)
		}

		var status string
		var storedBegin, storedEnd *time.Time
		if err := pool.QueryRow(ctx, `SELECT status, begin_at, end_at FROM downtimes WHERE gateway_downtime_id = 'down_A'`).Scan(&status, &storedBegin, &storedEnd); err != nil {
			t.Fatalf("query downtime: %v", err)
		}
		if status != "resolved" {
			t.Fatalf("expected resolved, got %s", status)
		}
		if storedBegin == nil || storedEnd == nil {
			t.Fatalf("expected both begin and end to be set: %v/%v", storedBegin, storedEnd)
		}
	})
}
