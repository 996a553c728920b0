// Package notify is the boundary to the outbound notification system. The
// engine fires confirmation/failure notifications after reconciling a
// payment; delivery is best effort and a failure here must never fail the
// request that triggered it.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/DevFusionist/dilse/internal/domain"
)

// Dispatcher sends customer-facing notifications. Implementations must be
// safe for concurrent use.
type Dispatcher interface {
	SendOrderConfirmation(ctx context.Context, order domain.Order, payment domain.Payment) error
	SendPaymentFailed(ctx context.Context, order domain.Order, reason string) error
}

// LogDispatcher records notifications in the log only. Used when no broker
// is configured, and as a stand-in in tests.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) SendOrderConfirmation(_ context.Context, order domain.Order, payment domain.Payment) error {
	d.logger.Info("order confirmation notification",
		zap.String("order_id", order.ID),
		zap.String("gateway_order_id", order.GatewayOrderID),
		zap.String("gateway_payment_id", payment.GatewayPaymentID),
		zap.String("email", order.CustomerEmail),
	)
	return nil
}

func (d *LogDispatcher) SendPaymentFailed(_ context.Context, order domain.Order, reason string) error {
	d.logger.Info("payment failed notification",
		zap.String("order_id", order.ID),
		zap.String("gateway_order_id", order.GatewayOrderID),
		zap.String("email", order.CustomerEmail),
		zap.String("reason", reason),
	)
	return nil
}
