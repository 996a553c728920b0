package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/DevFusionist/dilse/internal/clock"
	"github.com/DevFusionist/dilse/internal/domain"
)

const (
	messageOrderConfirmation = "order.confirmation"
	messagePaymentFailed     = "payment.failed"
)

// KafkaDispatcher publishes notification requests to a topic consumed by the
// external mailer. Messages are keyed by order id so retries for one order
// stay in partition order.
type KafkaDispatcher struct {
	logger *zap.Logger
	writer *kafka.Writer
	topic  string
	clock  clock.Clock
}

func NewKafkaDispatcher(logger *zap.Logger, clk clock.Clock, brokers []string, topic string) *KafkaDispatcher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaDispatcher{
		logger: logger,
		writer: writer,
		topic:  topic,
		clock:  clk,
	}
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

type notificationMessage struct {
	MessageID        string `json:"message_id"`
	Type             string `json:"type"`
	OccurredAt       string `json:"occurred_at"`
	OrderID          string `json:"order_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	CustomerName     string `json:"customer_name"`
	CustomerEmail    string `json:"customer_email"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Reason           string `json:"reason,omitempty"`
}

func (d *KafkaDispatcher) SendOrderConfirmation(ctx context.Context, order domain.Order, payment domain.Payment) error {
	return d.publish(ctx, d.confirmation(order, payment))
}

func (d *KafkaDispatcher) SendPaymentFailed(ctx context.Context, order domain.Order, reason string) error {
	return d.publish(ctx, d.failure(order, reason))
}

func (d *KafkaDispatcher) confirmation(order domain.Order, payment domain.Payment) notificationMessage {
	return notificationMessage{
		MessageID:        uuid.New().String(),
		Type:             messageOrderConfirmation,
		OccurredAt:       d.clock.Now().Format(time.RFC3339),
		OrderID:          order.ID,
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: payment.GatewayPaymentID,
		CustomerName:     order.CustomerName,
		CustomerEmail:    order.CustomerEmail,
		Amount:           order.Amount,
		Currency:         order.Currency,
	}
}

func (d *KafkaDispatcher) failure(order domain.Order, reason string) notificationMessage {
	return notificationMessage{
		MessageID:      uuid.New().String(),
		Type:           messagePaymentFailed,
		OccurredAt:     d.clock.Now().Format(time.RFC3339),
		OrderID:        order.ID,
		GatewayOrderID: order.GatewayOrderID,
		CustomerName:   order.CustomerName,
		CustomerEmail:  order.CustomerEmail,
		Amount:         order.Amount,
		Currency:       order.Currency,
		Reason:         reason,
	}
}

func (d *KafkaDispatcher) publish(ctx context.Context, msg notificationMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.OrderID),
		Value: value,
	})
	if err != nil {
		d.logger.Error("failed to publish notification",
			zap.Error(err),
			zap.String("topic", d.topic),
			zap.String("type", msg.Type),
			zap.String("order_id", msg.OrderID),
		)
		return err
	}

	d.logger.Info("notification published",
		zap.String("topic", d.topic),
		zap.String("type", msg.Type),
		zap.String("order_id", msg.OrderID),
	)
	return nil
}
