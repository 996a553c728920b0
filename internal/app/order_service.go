package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/DevFusionist/dilse/internal/clock"
	"github.com/DevFusionist/dilse/internal/domain"
	"github.com/DevFusionist/dilse/internal/gateway"
)

// OrderGateway creates the order on the payment gateway's side ahead of
// checkout. Satisfied by gateway.Client.
type OrderGateway interface {
	CreateOrder(ctx context.Context, in gateway.CreateOrderInput) (gateway.Order, error)
}

type OrderService struct {
	orders  OrderStore
	gateway OrderGateway
	clock   clock.Clock
	logger  *zap.Logger
}

func NewOrderService(orders OrderStore, gw OrderGateway, clk clock.Clock, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:  orders,
		gateway: gw,
		clock:   clk,
		logger:  logger,
	}
}

// CreateOrderItemInput is one line item as the storefront submits it.
// Prices arrive in major currency units.
type CreateOrderItemInput struct {
	ProductRef string  `json:"product_ref"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}

type CreateOrderInput struct {
	Amount        float64                `json:"amount"` // major currency units
	Currency      string                 `json:"currency"`
	Items         []CreateOrderItemInput `json:"items"`
	CustomerName  string                 `json:"customer_name"`
	CustomerEmail string                 `json:"customer_email"`
	CustomerPhone string                 `json:"customer_phone"`
	Shipping      domain.ShippingAddress `json:"shipping"`
}

// CreateOrder registers an order with the gateway and persists it locally in
// the created state. Amounts are converted to minor units exactly once here.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if in.Amount <= 0 {
		return domain.Order{}, domain.ErrInvalidAmount
	}
	if len(in.Items) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 || item.ProductRef == "" {
			return domain.Order{}, domain.ErrItemsRequired
		}
	}

	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = "INR"
	}

	id := newID()
	amount := domain.MinorUnits(in.Amount)

	gwOrder, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderInput{
		Amount:   amount,
		Currency: currency,
		Receipt:  id,
	})
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:             id,
		GatewayOrderID: gwOrder.ID,
		Amount:         amount,
		Currency:       currency,
		CustomerName:   in.CustomerName,
		CustomerEmail:  in.CustomerEmail,
		CustomerPhone:  in.CustomerPhone,
		Shipping:       in.Shipping,
		Status:         domain.OrderStatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, item := range in.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductRef: item.ProductRef,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  domain.MinorUnits(item.UnitPrice),
		})
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return domain.Order{}, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("gateway_order_id", order.GatewayOrderID),
		zap.Int64("amount", order.Amount),
		zap.String("currency", order.Currency),
	)
	return order, nil
}
