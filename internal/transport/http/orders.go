package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DevFusionist/dilse/internal/app"
	"github.com/DevFusionist/dilse/internal/domain"
)

// OrderCreator is the minimal interface needed to create orders.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
}

// HandleCreateOrder returns the handler for storefront order creation.
// Mounted behind Authenticated.
func HandleCreateOrder(svc OrderCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req app.CreateOrderInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		order, err := svc.CreateOrder(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidAmount):
				writeError(w, http.StatusBadRequest, codeInvalidAmount, "amount must be greater than zero")
			case errors.Is(err, domain.ErrItemsRequired):
				writeError(w, http.StatusBadRequest, codeItemsRequired, "at least one valid line item is required")
			case errors.Is(err, domain.ErrDuplicateOrder):
				writeError(w, http.StatusConflict, codeDuplicateOrder, "order already exists")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, orderResponse{
			ID:             order.ID,
			GatewayOrderID: order.GatewayOrderID,
			Amount:         order.Amount,
			Currency:       order.Currency,
			Status:         string(order.Status),
			CreatedAt:      order.CreatedAt,
		})
	}
}

type orderResponse struct {
	ID             string    `json:"id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	Amount         int64     `json:"amount"` // minor currency units
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
