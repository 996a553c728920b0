package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// Payment is one gateway payment attempt against an order. Multiple attempts
// (including failures) may exist per order; at most one captured, verified
// payment is authoritative.
type Payment struct {
	ID               string
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Amount           int64 // minor currency units
	Currency         string
	Status           PaymentStatus
	Method           string
	Bank             string
	Wallet           string
	VPA              string
	Email            string
	Contact          string
	Fee              int64
	Tax              int64
	Verified         bool
	ErrorCode        string
	ErrorDescription string
	ErrorReason      string
	DisputeStatus    string
	RefundStatus     string
	// ReviewRequired flags a payment that reported success against an order
	// already paid by a different verified payment. Surfaced for manual
	// review instead of overwriting the authoritative payment.
	ReviewRequired bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CapturedAt     *time.Time
}
