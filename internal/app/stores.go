package app

import (
	"context"
	"time"

	"github.com/DevFusionist/dilse/internal/domain"
)

// Store interfaces are the slices of the postgres repositories the services
// depend on. Tests substitute hand-rolled fakes.

type OrderStore interface {
	Create(ctx context.Context, order domain.Order) error
	GetByGatewayRef(ctx context.Context, gatewayOrderID string) (domain.Order, error)
	AdvanceStatus(ctx context.Context, gatewayOrderID string, target domain.OrderStatus, now time.Time) (bool, domain.OrderStatus, error)
	SetNotificationStatus(ctx context.Context, gatewayOrderID string, status domain.NotificationStatus, now time.Time) error
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error)
}

type PaymentStore interface {
	// Upsert returns domain.ErrPaymentConflict when the write would produce
	// a second verified captured payment for the same order.
	Upsert(ctx context.Context, p domain.Payment) (domain.Payment, bool, error)
	GetByGatewayID(ctx context.Context, gatewayPaymentID string) (domain.Payment, error)
	FindVerifiedCaptured(ctx context.Context, gatewayOrderID string) (*domain.Payment, error)
	SetDisputeStatus(ctx context.Context, gatewayPaymentID, stage string, now time.Time) error
	SetRefundStatus(ctx context.Context, gatewayPaymentID, status string, now time.Time) error
	ListRequiringReview(ctx context.Context) ([]domain.Payment, error)
}

type RefundStore interface {
	Upsert(ctx context.Context, refund domain.Refund) (bool, error)
}

type DisputeStore interface {
	Upsert(ctx context.Context, d domain.Dispute) (bool, error)
}

type ReportingStore interface {
	UpsertSettlement(ctx context.Context, s domain.Settlement) (bool, error)
	UpsertInvoice(ctx context.Context, inv domain.Invoice) (bool, error)
	UpsertPaymentLink(ctx context.Context, link domain.PaymentLink) (bool, error)
	UpsertDowntime(ctx context.Context, d domain.Downtime) (bool, error)
}

type UserStore interface {
	Create(ctx context.Context, user domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
}
