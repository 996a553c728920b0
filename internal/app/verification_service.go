package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DevFusionist/dilse/internal/clock"
	"github.com/DevFusionist/dilse/internal/domain"
	"github.com/DevFusionist/dilse/internal/notify"
	"github.com/DevFusionist/dilse/internal/signature"
)

// VerificationService handles the synchronous checkout callback: the client
// returns from the gateway with a payment reference and an HMAC over
// "orderRef|paymentRef", and the storefront asks us to settle the order
// immediately instead of waiting for the webhook.
type VerificationService struct {
	orders   OrderStore
	payments PaymentStore
	notifier notify.Dispatcher
	secret   string
	clock    clock.Clock
	logger   *zap.Logger
}

func NewVerificationService(orders OrderStore, payments PaymentStore, notifier notify.Dispatcher, secret string, clk clock.Clock, logger *zap.Logger) *VerificationService {
	return &VerificationService{
		orders:   orders,
		payments: payments,
		notifier: notifier,
		secret:   secret,
		clock:    clk,
		logger:   logger,
	}
}

type VerifyCheckoutInput struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

// VerifyCheckout reconciles a checkout callback. A valid signature records a
// verified captured payment and moves the order to paid; an invalid one
// records a failed, unverified attempt, moves the order to failed and returns
// domain.ErrInvalidSignature. A valid signature for an order already settled
// by a different payment stores the attempt flagged for review without
// touching the order. All paths are idempotent under retries.
func (s *VerificationService) VerifyCheckout(ctx context.Context, in VerifyCheckoutInput) (domain.Order, error) {
	order, err := s.orders.GetByGatewayRef(ctx, in.GatewayOrderID)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()
	if !signature.VerifyCheckout(in.GatewayOrderID, in.GatewayPaymentID, in.Signature, s.secret) {
		payment := domain.Payment{
			ID:               newID(),
			OrderID:          order.ID,
			GatewayOrderID:   in.GatewayOrderID,
			GatewayPaymentID: in.GatewayPaymentID,
			Amount:           order.Amount,
			Currency:         order.Currency,
			Status:           domain.PaymentStatusFailed,
			ErrorReason:      "signature_mismatch",
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if _, _, err := s.payments.Upsert(ctx, payment); err != nil {
			return domain.Order{}, err
		}
		if err := s.advance(ctx, &order, domain.OrderStatusFailed, now); err != nil {
			return domain.Order{}, err
		}
		s.dispatchFailure(ctx, order, "signature_mismatch")
		s.logger.Warn("checkout verification failed",
			zap.String("gateway_order_id", in.GatewayOrderID),
			zap.String("gateway_payment_id", in.GatewayPaymentID),
		)
		return order, domain.ErrInvalidSignature
	}

	payment := domain.Payment{
		ID:               newID(),
		OrderID:          order.ID,
		GatewayOrderID:   in.GatewayOrderID,
		GatewayPaymentID: in.GatewayPaymentID,
		Amount:           order.Amount,
		Currency:         order.Currency,
		Status:           domain.PaymentStatusCaptured,
		Verified:         true,
		CapturedAt:       &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	stored, _, err := s.payments.Upsert(ctx, payment)
	if errors.Is(err, domain.ErrPaymentConflict) {
		// The order was already settled by a different payment. Store
		// this attempt flagged for manual review and leave the order and
		// its authoritative payment alone.
		payment.Verified = false
		payment.ReviewRequired = true
		if _, _, err := s.payments.Upsert(ctx, payment); err != nil {
			return domain.Order{}, err
		}
		s.logger.Warn("checkout payment conflicts with settled payment, flagged for review",
			zap.String("gateway_order_id", in.GatewayOrderID),
			zap.String("gateway_payment_id", in.GatewayPaymentID),
		)
		return order, nil
	}
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.advance(ctx, &order, domain.OrderStatusPaid, now); err != nil {
		return domain.Order{}, err
	}

	if err := s.notifier.SendOrderConfirmation(ctx, order, stored); err != nil {
		s.logger.Error("confirmation notification failed",
			zap.String("gateway_order_id", order.GatewayOrderID),
			zap.Error(err),
		)
	}
	return order, nil
}

func (s *VerificationService) advance(ctx context.Context, order *domain.Order, target domain.OrderStatus, now time.Time) error {
	applied, current, err := s.orders.AdvanceStatus(ctx, order.GatewayOrderID, target, now)
	if err != nil {
		return err
	}
	order.Status = current
	if !applied && !domain.IsStale(current, target) {
		s.logger.Warn("checkout transition refused",
			zap.String("gateway_order_id", order.GatewayOrderID),
			zap.String("from", string(current)),
			zap.String("to", string(target)),
		)
	}
	return nil
}

func (s *VerificationService) dispatchFailure(ctx context.Context, order domain.Order, reason string) {
	if err := s.notifier.SendPaymentFailed(ctx, order, reason); err != nil {
		s.logger.Error("failure notification failed",
			zap.String("gateway_order_id", order.GatewayOrderID),
			zap.Error(err),
		)
	}
}
