package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/DevFusionist/dilse/internal/domain"
)

// Handlers for the gateway's secondary record streams: refunds, disputes,
// invoices, payment links, settlements and downtime windows.

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Speed     string `json:"speed_processed"`
}

type disputeEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason_code"`
	RespondBy int64  `json:"respond_by"`
}

type invoiceEntity struct {
	ID              string `json:"id"`
	OrderID         string `json:"order_id"`
	InvoiceNumber   string `json:"invoice_number"`
	Amount          int64  `json:"amount"`
	AmountPaid      int64  `json:"amount_paid"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	CustomerDetails struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"customer_details"`
}

type paymentLinkEntity struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	ShortURL   string `json:"short_url"`
}

type settlementEntity struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	UTR      string `json:"utr"`
	Fees     int64  `json:"fees"`
	Tax      int64  `json:"tax"`
}

type downtimeEntity struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Method string `json:"method"`
	Begin  int64  `json:"begin"`
	End    int64  `json:"end"`
}

func (s *WebhookService) handleRefund(ctx context.Context, event string, e refundEntity) error {
	if e.ID == "" || e.PaymentID == "" {
		return domain.ErrMalformedEvent
	}

	payment, err := s.payments.GetByGatewayID(ctx, e.PaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			// Refund delivered before (or without) its payment. Ack so the
			// gateway stops retrying; the refund stream will replay state
			// changes if the payment ever lands.
			s.logger.Warn("refund event for unknown payment",
				zap.String("gateway_refund_id", e.ID),
				zap.String("gateway_payment_id", e.PaymentID),
			)
			return nil
		}
		return err
	}

	status := domain.RefundStatus(strings.TrimPrefix(event, "refund."))
	now := s.clock.Now()
	refund := domain.Refund{
		ID:               newID(),
		OrderID:          payment.OrderID,
		PaymentID:        payment.ID,
		GatewayPaymentID: e.PaymentID,
		GatewayRefundID:  e.ID,
		Amount:           e.Amount,
		Currency:         e.Currency,
		Status:           status,
		Speed:            e.Speed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.refunds.Upsert(ctx, refund); err != nil {
		return err
	}
	if err := s.payments.SetRefundStatus(ctx, e.PaymentID, string(status), now); err != nil {
		return err
	}

	if status == domain.RefundStatusProcessed {
		return s.advanceOrder(ctx, payment.GatewayOrderID, domain.OrderStatusRefunded)
	}
	return nil
}

func (s *WebhookService) handleDispute(ctx context.Context, event string, e disputeEntity) error {
	if e.ID == "" || e.PaymentID == "" {
		return domain.ErrMalformedEvent
	}

	payment, err := s.payments.GetByGatewayID(ctx, e.PaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			s.logger.Warn("dispute event for unknown payment",
				zap.String("gateway_dispute_id", e.ID),
				zap.String("gateway_payment_id", e.PaymentID),
			)
			return nil
		}
		return err
	}

	stage := domain.DisputeStage(strings.TrimPrefix(event, "payment.dispute."))
	now := s.clock.Now()
	dispute := domain.Dispute{
		ID:               newID(),
		PaymentID:        payment.ID,
		GatewayPaymentID: e.PaymentID,
		GatewayDisputeID: e.ID,
		Stage:            stage,
		Amount:           e.Amount,
		Reason:           e.Reason,
		RespondBy:        unixTime(e.RespondBy),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	applied, err := s.disputes.Upsert(ctx, dispute)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Debug("stale dispute stage ignored",
			zap.String("gateway_dispute_id", e.ID),
			zap.String("stage", string(stage)),
		)
		return nil
	}
	return s.payments.SetDisputeStatus(ctx, e.PaymentID, string(stage), now)
}

func (s *WebhookService) handleInvoice(ctx context.Context, e invoiceEntity) error {
	if e.ID == "" {
		return domain.ErrMalformedEvent
	}

	now := s.clock.Now()
	inv := domain.Invoice{
		ID:               newID(),
		GatewayInvoiceID: e.ID,
		GatewayOrderID:   e.OrderID,
		InvoiceNumber:    e.InvoiceNumber,
		Amount:           e.Amount,
		AmountPaid:       e.AmountPaid,
		Currency:         e.Currency,
		Status:           e.Status,
		CustomerName:     e.CustomerDetails.Name,
		CustomerEmail:    e.CustomerDetails.Email,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.reporting.UpsertInvoice(ctx, inv); err != nil {
		return err
	}

	if e.Status == "paid" && e.OrderID != "" {
		return s.advanceOrder(ctx, e.OrderID, domain.OrderStatusPaid)
	}
	return nil
}

func (s *WebhookService) handlePaymentLink(ctx context.Context, e paymentLinkEntity) error {
	if e.ID == "" {
		return domain.ErrMalformedEvent
	}

	now := s.clock.Now()
	link := domain.PaymentLink{
		ID:             newID(),
		GatewayLinkID:  e.ID,
		GatewayOrderID: e.OrderID,
		Amount:         e.Amount,
		AmountPaid:     e.AmountPaid,
		Currency:       e.Currency,
		Status:         e.Status,
		ShortURL:       e.ShortURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.reporting.UpsertPaymentLink(ctx, link); err != nil {
		return err
	}

	if e.Status == "paid" && e.OrderID != "" {
		return s.advanceOrder(ctx, e.OrderID, domain.OrderStatusPaid)
	}
	return nil
}

func (s *WebhookService) handleSettlement(ctx context.Context, e settlementEntity) error {
	if e.ID == "" {
		return domain.ErrMalformedEvent
	}

	now := s.clock.Now()
	_, err := s.reporting.UpsertSettlement(ctx, domain.Settlement{
		ID:                  newID(),
		GatewaySettlementID: e.ID,
		Amount:              e.Amount,
		Currency:            e.Currency,
		Status:              e.Status,
		UTR:                 e.UTR,
		Fees:                e.Fees,
		Tax:                 e.Tax,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	return err
}

func (s *WebhookService) handleDowntime(ctx context.Context, e downtimeEntity) error {
	if e.ID == "" {
		return domain.ErrMalformedEvent
	}

	now := s.clock.Now()
	_, err := s.reporting.UpsertDowntime(ctx, domain.Downtime{
		ID:                newID(),
		GatewayDowntimeID: e.ID,
		Status:            e.Status,
		Method:            e.Method,
		Begin:             unixTime(e.Begin),
		End:               unixTime(e.End),
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	return err
}
