// Package gateway is a minimal HTTP client for the payment gateway's orders
// API. The client is constructed once at startup and injected; nothing in the
// engine talks to the gateway through ambient globals.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Order is the gateway's view of an order created ahead of checkout.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor currency units, gateway wire format
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrderInput carries the fields the gateway requires. Amount is in
// minor units; the caller converts exactly once at the API boundary.
type CreateOrderInput struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Client struct {
	logger    *zap.Logger
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func NewClient(logger *zap.Logger, baseURL, keyID, keySecret string) *Client {
	return &Client{
		logger:    logger,
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateOrder registers an order with the gateway and returns its reference.
func (c *Client) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return Order{}, fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, fmt.Errorf("create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return Order{}, fmt.Errorf("gateway create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("gateway rejected order creation",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return Order{}, fmt.Errorf("gateway create order: status %d", resp.StatusCode)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return Order{}, fmt.Errorf("decode gateway order: %w", err)
	}
	if order.ID == "" {
		return Order{}, fmt.Errorf("gateway order response missing id")
	}
	return order, nil
}
