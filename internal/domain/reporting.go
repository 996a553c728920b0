package domain

import "time"

// Settlement, Invoice, PaymentLink and Downtime are reporting records pushed
// by the gateway. Each is upserted independently, keyed by its own gateway
// reference; invoice and payment-link paid events may additionally mark the
// related order paid.

type Settlement struct {
	ID                  string
	GatewaySettlementID string
	Amount              int64
	Currency            string
	Status              string
	UTR                 string
	Fees                int64
	Tax                 int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Invoice struct {
	ID               string
	GatewayInvoiceID string
	GatewayOrderID   string
	InvoiceNumber    string
	Amount           int64
	AmountPaid       int64
	Currency         string
	Status           string
	CustomerName     string
	CustomerEmail    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type PaymentLink struct {
	ID             string
	GatewayLinkID  string
	GatewayOrderID string
	Amount         int64
	AmountPaid     int64
	Currency       string
	Status         string
	ShortURL       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Downtime struct {
	ID                string
	GatewayDowntimeID string
	Status            string
	Method            string
	Begin             *time.Time
	End               *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
