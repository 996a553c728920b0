package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DevFusionist/dilse/internal/clock"
	"github.com/DevFusionist/dilse/internal/domain"
	"github.com/DevFusionist/dilse/internal/notify"
	"github.com/DevFusionist/dilse/internal/signature"
)

// WebhookService is the event router for the gateway's at-least-once,
// unordered webhook stream. Every handler is idempotent; duplicates and
// out-of-order deliveries converge on the same stored state. Unknown events
// and events referencing records we do not hold are acknowledged so the
// gateway stops retrying them.
type WebhookService struct {
	orders    OrderStore
	payments  PaymentStore
	refunds   RefundStore
	disputes  DisputeStore
	reporting ReportingStore
	notifier  notify.Dispatcher
	secret    string
	clock     clock.Clock
	logger    *zap.Logger
}

func NewWebhookService(
	orders OrderStore,
	payments PaymentStore,
	refunds RefundStore,
	disputes DisputeStore,
	reporting ReportingStore,
	notifier notify.Dispatcher,
	secret string,
	clk clock.Clock,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		orders:    orders,
		payments:  payments,
		refunds:   refunds,
		disputes:  disputes,
		reporting: reporting,
		notifier:  notifier,
		secret:    secret,
		clock:     clk,
		logger:    logger,
	}
}

type webhookEnvelope struct {
	Event   string         `json:"event"`
	Payload webhookPayload `json:"payload"`
}

type webhookPayload struct {
	Payment struct {
		Entity paymentEntity `json:"entity"`
	} `json:"payment"`
	Order struct {
		Entity orderEntity `json:"entity"`
	} `json:"order"`
	Refund struct {
		Entity refundEntity `json:"entity"`
	} `json:"refund"`
	Dispute struct {
		Entity disputeEntity `json:"entity"`
	} `json:"dispute"`
	Invoice struct {
		Entity invoiceEntity `json:"entity"`
	} `json:"invoice"`
	PaymentLink struct {
		Entity paymentLinkEntity `json:"entity"`
	} `json:"payment_link"`
	Settlement struct {
		Entity settlementEntity `json:"entity"`
	} `json:"settlement"`
	Downtime struct {
		Entity downtimeEntity `json:"entity"`
	} `json:"payment.downtime"`
}

type paymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	Bank             string `json:"bank"`
	Wallet           string `json:"wallet"`
	VPA              string `json:"vpa"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	Fee              int64  `json:"fee"`
	Tax              int64  `json:"tax"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	ErrorReason      string `json:"error_reason"`
}

type orderEntity struct {
	ID string `json:"id"`
}

// Process verifies the webhook signature over the exact raw bytes, decodes
// the envelope and routes it. It returns domain.ErrInvalidSignature or
// domain.ErrMalformedEvent for deliveries the gateway should not retry, and
// a wrapped storage error for ones it should.
func (s *WebhookService) Process(ctx context.Context, body []byte, sig string) error {
	if !signature.Verify(body, sig, s.secret) {
		return domain.ErrInvalidSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Event == "" {
		return domain.ErrMalformedEvent
	}

	s.logger.Debug("webhook received", zap.String("event", env.Event))

	switch env.Event {
	case "payment.authorized":
		return s.handlePaymentAuthorized(ctx, env.Payload.Payment.Entity)
	case "payment.captured":
		return s.handlePaymentCaptured(ctx, env.Payload.Payment.Entity)
	case "payment.failed":
		return s.handlePaymentFailed(ctx, env.Payload.Payment.Entity)
	case "order.paid":
		return s.advanceOrder(ctx, env.Payload.Order.Entity.ID, domain.OrderStatusPaid)
	case "order.notification.delivered":
		return s.handleNotificationReport(ctx, env.Payload.Order.Entity.ID, domain.NotificationDelivered)
	case "order.notification.failed":
		return s.handleNotificationReport(ctx, env.Payload.Order.Entity.ID, domain.NotificationFailed)
	case "refund.created", "refund.processed", "refund.failed", "refund.speed_changed":
		return s.handleRefund(ctx, env.Event, env.Payload.Refund.Entity)
	case "payment.dispute.created", "payment.dispute.under_review", "payment.dispute.action_required",
		"payment.dispute.won", "payment.dispute.lost", "payment.dispute.closed":
		return s.handleDispute(ctx, env.Event, env.Payload.Dispute.Entity)
	case "payment.downtime.started", "payment.downtime.updated", "payment.downtime.resolved":
		return s.handleDowntime(ctx, env.Payload.Downtime.Entity)
	case "invoice.paid", "invoice.partially_paid", "invoice.expired":
		return s.handleInvoice(ctx, env.Payload.Invoice.Entity)
	case "payment_link.paid", "payment_link.partially_paid", "payment_link.expired", "payment_link.cancelled":
		return s.handlePaymentLink(ctx, env.Payload.PaymentLink.Entity)
	case "settlement.processed":
		return s.handleSettlement(ctx, env.Payload.Settlement.Entity)
	default:
		s.logger.Info("ignoring unknown webhook event", zap.String("event", env.Event))
		return nil
	}
}

func (s *WebhookService) handlePaymentAuthorized(ctx context.Context, e paymentEntity) error {
	if e.ID == "" {
		return domain.ErrMalformedEvent
	}

	orderID, err := s.localOrderID(ctx, e.OrderID)
	if err != nil {
		return err
	}
	if orderID == "" {
		return nil
	}

	payment := s.paymentFromEntity(e, orderID)
	payment.Status = domain.PaymentStatusAuthorized
	if _, _, err := s.payments.Upsert(ctx, payment); err != nil {
		return err
	}
	return s.advanceOrder(ctx, e.OrderID, domain.OrderStatusAuthorized)
}

func (s *WebhookService) handlePaymentCaptured(ctx context.Context, e paymentEntity) error {
	if e.ID == "" {
		return domain.ErrMalformedEvent
	}

	orderID, err := s.localOrderID(ctx, e.OrderID)
	if err != nil {
		return err
	}
	if orderID == "" {
		return nil
	}

	// An order already paid under a different verified payment means a
	// double charge or a gateway mixup. Keep the authoritative payment,
	// store this one flagged for manual review.
	existing, err := s.payments.FindVerifiedCaptured(ctx, e.OrderID)
	if err != nil {
		return err
	}
	conflicting := existing != nil && existing.GatewayPaymentID != e.ID

	now := s.clock.Now()
	payment := s.paymentFromEntity(e, orderID)
	payment.Status = domain.PaymentStatusCaptured
	payment.Verified = !conflicting
	payment.ReviewRequired = conflicting
	payment.CapturedAt = &now

	stored, _, err := s.payments.Upsert(ctx, payment)
	if errors.Is(err, domain.ErrPaymentConflict) {
		// Another capture settled the order between the read above and
		// this write. The store allows only one verified capture per
		// order, so demote this one to the review path.
		conflicting = true
		payment.Verified = false
		payment.ReviewRequired = true
		stored, _, err = s.payments.Upsert(ctx, payment)
	}
	if err != nil {
		return err
	}

	if conflicting {
		s.logger.Warn("captured payment conflicts with authoritative payment, flagged for review",
			zap.String("gateway_order_id", e.OrderID),
			zap.String("gateway_payment_id", e.ID),
		)
		return nil
	}

	if err := s.advanceOrder(ctx, e.OrderID, domain.OrderStatusPaid); err != nil {
		return err
	}

	order, err := s.orders.GetByGatewayRef(ctx, e.OrderID)
	if err == nil {
		if err := s.notifier.SendOrderConfirmation(ctx, order, stored); err != nil {
			s.logger.Error("confirmation notification failed",
				zap.String("gateway_order_id", e.OrderID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *WebhookService) handlePaymentFailed(ctx context.Context, e paymentEntity) error {
	if e.ID == "" {
		return domain.ErrMalformedEvent
	}

	orderID, err := s.localOrderID(ctx, e.OrderID)
	if err != nil {
		return err
	}
	if orderID == "" {
		return nil
	}

	payment := s.paymentFromEntity(e, orderID)
	payment.Status = domain.PaymentStatusFailed
	if _, _, err := s.payments.Upsert(ctx, payment); err != nil {
		return err
	}
	if err := s.advanceOrder(ctx, e.OrderID, domain.OrderStatusFailed); err != nil {
		return err
	}

	order, err := s.orders.GetByGatewayRef(ctx, e.OrderID)
	if err == nil {
		reason := e.ErrorDescription
		if reason == "" {
			reason = e.ErrorReason
		}
		if err := s.notifier.SendPaymentFailed(ctx, order, reason); err != nil {
			s.logger.Error("failure notification failed",
				zap.String("gateway_order_id", e.OrderID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *WebhookService) handleNotificationReport(ctx context.Context, gatewayOrderID string, status domain.NotificationStatus) error {
	err := s.orders.SetNotificationStatus(ctx, gatewayOrderID, status, s.clock.Now())
	if errors.Is(err, domain.ErrOrderNotFound) {
		s.logger.Warn("notification report for unknown order",
			zap.String("gateway_order_id", gatewayOrderID),
		)
		return nil
	}
	return err
}

// advanceOrder attempts a guarded transition and acknowledges every
// non-infrastructure outcome. Stale duplicates are expected under
// at-least-once delivery; illegal transitions are logged and dropped.
func (s *WebhookService) advanceOrder(ctx context.Context, gatewayOrderID string, target domain.OrderStatus) error {
	applied, current, err := s.orders.AdvanceStatus(ctx, gatewayOrderID, target, s.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.Warn("transition for unknown order",
				zap.String("gateway_order_id", gatewayOrderID),
				zap.String("to", string(target)),
			)
			return nil
		}
		return err
	}
	if applied {
		return nil
	}
	if domain.IsStale(current, target) {
		s.logger.Debug("stale transition ignored",
			zap.String("gateway_order_id", gatewayOrderID),
			zap.String("stored", string(current)),
			zap.String("to", string(target)),
		)
	} else {
		s.logger.Warn("illegal transition refused",
			zap.String("gateway_order_id", gatewayOrderID),
			zap.String("stored", string(current)),
			zap.String("to", string(target)),
		)
	}
	return nil
}

// localOrderID resolves a gateway order reference to the local order id.
// An unknown reference is logged and acknowledged with an empty id.
func (s *WebhookService) localOrderID(ctx context.Context, gatewayOrderID string) (string, error) {
	order, err := s.orders.GetByGatewayRef(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.Warn("payment event for unknown order",
				zap.String("gateway_order_id", gatewayOrderID),
			)
			return "", nil
		}
		return "", err
	}
	return order.ID, nil
}

func (s *WebhookService) paymentFromEntity(e paymentEntity, orderID string) domain.Payment {
	now := s.clock.Now()
	return domain.Payment{
		ID:               newID(),
		OrderID:          orderID,
		GatewayOrderID:   e.OrderID,
		GatewayPaymentID: e.ID,
		Amount:           e.Amount,
		Currency:         e.Currency,
		Method:           e.Method,
		Bank:             e.Bank,
		Wallet:           e.Wallet,
		VPA:              e.VPA,
		Email:            e.Email,
		Contact:          e.Contact,
		Fee:              e.Fee,
		Tax:              e.Tax,
		ErrorCode:        e.ErrorCode,
		ErrorDescription: e.ErrorDescription,
		ErrorReason:      e.ErrorReason,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
