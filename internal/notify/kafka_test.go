package notify

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DevFusionist/dilse/internal/clock"
	"github.com/DevFusionist/dilse/internal/domain"
)

func TestKafkaDispatcher_MessagesUseInjectedClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	d := NewKafkaDispatcher(zap.NewNop(), clock.NewFixed(now), nil, "order-notifications")

	order := domain.Order{
		ID:             "local-1",
		GatewayOrderID: "order_1",
		CustomerName:   "Asha",
		CustomerEmail:  "asha@example.com",
		Amount:         150050,
		Currency:       "INR",
	}

	msg := d.confirmation(order, domain.Payment{GatewayPaymentID: "pay_1"})
	if msg.OccurredAt != now.Format(time.RFC3339) {
		t.Fatalf("expected occurred_at from the clock, got %s", msg.OccurredAt)
	}
	if msg.Type != messageOrderConfirmation || msg.GatewayPaymentID != "pay_1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.MessageID == "" {
		t.Fatalf("expected a message id")
	}

	failed := d.failure(order, "Card declined")
	if failed.OccurredAt != now.Format(time.RFC3339) {
		t.Fatalf("expected occurred_at from the clock, got %s", failed.OccurredAt)
	}
	if failed.Type != messagePaymentFailed || failed.Reason != "Card declined" {
		t.Fatalf("unexpected message: %+v", failed)
	}
}
