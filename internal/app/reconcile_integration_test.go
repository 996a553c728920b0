package app

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/DevFusionist/dilse/internal/clock"
	"github.com/DevFusionist/dilse/internal/domain"
	"github.com/DevFusionist/dilse/internal/signature"
	"github.com/DevFusionist/dilse/internal/storage/postgres"
	"github.com/DevFusionist/dilse/internal/testutil"
)

// End to end reconciliation against a real database. The webhook router and
// the checkout verifier share the repositories here, so convergence under
// duplicate and reordered deliveries is exercised through the actual upsert
// and guarded transition SQL instead of the in-memory fakes.
func TestReconciliation_Postgres(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)

	orders := postgres.NewOrderRepository(pool)
	payments := postgres.NewPaymentRepository(pool)
	refunds := postgres.NewRefundRepository(pool)
	disputes := postgres.NewDisputeRepository(pool)
	reporting := postgres.NewReportingRepository(pool)

	newServices := func() (*WebhookService, *VerificationService, *fakeDispatcher) {
		notifier := &fakeDispatcher{}
		clk := clock.NewSystem()
		hooks := NewWebhookService(orders, payments, refunds, disputes, reporting,
			notifier, webhookSecret, clk, zap.NewNop())
		checkout := NewVerificationService(orders, payments, notifier, checkoutSecret, clk, zap.NewNop())
		return hooks, checkout, notifier
	}

	deliver := func(t *testing.T, svc *WebhookService, body string) {
		t.Helper()
		raw := []byte(body)
		if err := svc.Process(ctx, raw, signature.Sign(raw, webhookSecret)); err != nil {
			t.Fatalf("process webhook: %v", err)
		}
	}

	paymentCount := func(t *testing.T, gatewayOrderID string) int {
		t.Helper()
		var n int
		if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE gateway_order_id = $1`, gatewayOrderID).Scan(&n); err != nil {
			t.Fatalf("count payments: %v", err)
		}
		return n
	}

	t.Run("webhook lifecycle converges under duplicates and reordering", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertOrder(t, ctx, pool, domain.Order{GatewayOrderID: "order_w1", Amount: 150050})
		hooks, _, notifier := newServices()

		deliver(t, hooks, paymentEvent("payment.authorized", "pay_w1", "order_w1", `"status":"authorized"`))
		deliver(t, hooks, paymentEvent("payment.captured", "pay_w1", "order_w1", `"status":"captured","method":"upi"`))
		// Redelivery and a late authorized must not move anything backwards.
		deliver(t, hooks, paymentEvent("payment.captured", "pay_w1", "order_w1", `"status":"captured","method":"upi"`))
		deliver(t, hooks, paymentEvent("payment.authorized", "pay_w1", "order_w1", `"status":"authorized"`))

		if got := testutil.OrderStatus(t, ctx, pool, "order_w1"); got != domain.OrderStatusPaid {
			t.Fatalf("expected order paid, got %s", got)
		}
		payment, err := payments.GetByGatewayID(ctx, "pay_w1")
		if err != nil {
			t.Fatalf("get payment: %v", err)
		}
		if payment.Status != domain.PaymentStatusCaptured || !payment.Verified {
			t.Fatalf("expected verified captured payment, got %+v", payment)
		}
		if n := paymentCount(t, "order_w1"); n != 1 {
			t.Fatalf("expected one payment row, got %d", n)
		}
		if len(notifier.sent) == 0 || notifier.sent[0].kind != "confirmation" {
			t.Fatalf("expected a confirmation, got %+v", notifier.sent)
		}
	})

	t.Run("checkout verification is idempotent under retries", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertOrder(t, ctx, pool, domain.Order{GatewayOrderID: "order_c1", Amount: 150050})
		_, checkout, _ := newServices()

		in := VerifyCheckoutInput{
			GatewayOrderID:   "order_c1",
			GatewayPaymentID: "pay_c1",
			Signature:        checkoutSig("order_c1", "pay_c1"),
		}
		for i := 0; i < 3; i++ {
			order, err := checkout.VerifyCheckout(ctx, in)
			if err != nil {
				t.Fatalf("verify attempt %d: %v", i, err)
			}
			if order.Status != domain.OrderStatusPaid {
				t.Fatalf("attempt %d: expected paid, got %s", i, order.Status)
			}
		}

		if n := paymentCount(t, "order_c1"); n != 1 {
			t.Fatalf("expected one payment row, got %d", n)
		}
	})

	t.Run("capture conflicting with a checkout-verified payment is flagged", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertOrder(t, ctx, pool, domain.Order{GatewayOrderID: "order_x1", Amount: 150050})
		hooks, checkout, _ := newServices()

		if _, err := checkout.VerifyCheckout(ctx, VerifyCheckoutInput{
			GatewayOrderID:   "order_x1",
			GatewayPaymentID: "pay_xa",
			Signature:        checkoutSig("order_x1", "pay_xa"),
		}); err != nil {
			t.Fatalf("verify: %v", err)
		}
		deliver(t, hooks, paymentEvent("payment.captured", "pay_xb", "order_x1", `"status":"captured"`))

		conflicting, err := payments.GetByGatewayID(ctx, "pay_xb")
		if err != nil {
			t.Fatalf("get conflicting payment: %v", err)
		}
		if !conflicting.ReviewRequired || conflicting.Verified {
			t.Fatalf("expected conflicting payment flagged unverified, got %+v", conflicting)
		}
		authoritative, err := payments.GetByGatewayID(ctx, "pay_xa")
		if err != nil {
			t.Fatalf("get authoritative payment: %v", err)
		}
		if authoritative.ReviewRequired || !authoritative.Verified {
			t.Fatalf("expected authoritative payment untouched, got %+v", authoritative)
		}
		if got := testutil.OrderStatus(t, ctx, pool, "order_x1"); got != domain.OrderStatusPaid {
			t.Fatalf("expected order to stay paid, got %s", got)
		}

		// A checkout attempt with yet another payment reference takes the
		// review path too instead of creating a second verified capture.
		if _, err := checkout.VerifyCheckout(ctx, VerifyCheckoutInput{
			GatewayOrderID:   "order_x1",
			GatewayPaymentID: "pay_xc",
			Signature:        checkoutSig("order_x1", "pay_xc"),
		}); err != nil {
			t.Fatalf("conflicting verify: %v", err)
		}
		late, err := payments.GetByGatewayID(ctx, "pay_xc")
		if err != nil {
			t.Fatalf("get late payment: %v", err)
		}
		if !late.ReviewRequired || late.Verified {
			t.Fatalf("expected late checkout payment flagged unverified, got %+v", late)
		}
	})

	t.Run("failed payment records the error and notifies", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertOrder(t, ctx, pool, domain.Order{GatewayOrderID: "order_f1", Amount: 150050})
		hooks, _, notifier := newServices()

		deliver(t, hooks, paymentEvent("payment.failed", "pay_f1", "order_f1",
			`"status":"failed","error_code":"BAD_REQUEST_ERROR","error_description":"Card declined"`))

		if got := testutil.OrderStatus(t, ctx, pool, "order_f1"); got != domain.OrderStatusFailed {
			t.Fatalf("expected order failed, got %s", got)
		}
		payment, err := payments.GetByGatewayID(ctx, "pay_f1")
		if err != nil {
			t.Fatalf("get payment: %v", err)
		}
		if payment.Status != domain.PaymentStatusFailed || payment.ErrorDescription != "Card declined" {
			t.Fatalf("expected failed payment with error, got %+v", payment)
		}
		if len(notifier.sent) != 1 || notifier.sent[0].kind != "failed" {
			t.Fatalf("expected one failure notification, got %+v", notifier.sent)
		}
	})

	t.Run("processed refund closes out a settled order", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertOrder(t, ctx, pool, domain.Order{GatewayOrderID: "order_r1", Amount: 150050})
		hooks, checkout, _ := newServices()

		if _, err := checkout.VerifyCheckout(ctx, VerifyCheckoutInput{
			GatewayOrderID:   "order_r1",
			GatewayPaymentID: "pay_r1",
			Signature:        checkoutSig("order_r1", "pay_r1"),
		}); err != nil {
			t.Fatalf("verify: %v", err)
		}
		deliver(t, hooks, `{"event":"refund.processed","payload":{"refund":{"entity":{"id":"rfnd_r1","payment_id":"pay_r1","amount":150050,"currency":"INR","status":"processed"}}}}`)

		if got := testutil.OrderStatus(t, ctx, pool, "order_r1"); got != domain.OrderStatusRefunded {
			t.Fatalf("expected order refunded, got %s", got)
		}
		payment, err := payments.GetByGatewayID(ctx, "pay_r1")
		if err != nil {
			t.Fatalf("get payment: %v", err)
		}
		if payment.RefundStatus != "processed" {
			t.Fatalf("expected refund status mirrored, got %q", payment.RefundStatus)
		}
	})
}
