package domain

import "time"

type RefundStatus string

const (
	RefundStatusCreated      RefundStatus = "created"
	RefundStatusProcessed    RefundStatus = "processed"
	RefundStatusFailed       RefundStatus = "failed"
	RefundStatusSpeedChanged RefundStatus = "speed_changed"
)

// Refund tracks a gateway refund, unique per gateway refund reference.
type Refund struct {
	ID               string
	OrderID          string
	PaymentID        string
	GatewayPaymentID string
	GatewayRefundID  string
	Amount           int64 // minor currency units
	Currency         string
	Status           RefundStatus
	Speed            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
