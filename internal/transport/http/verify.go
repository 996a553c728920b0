package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DevFusionist/dilse/internal/app"
	"github.com/DevFusionist/dilse/internal/domain"
)

// CheckoutVerifier is the minimal interface needed for the synchronous
// checkout callback.
type CheckoutVerifier interface {
	VerifyCheckout(ctx context.Context, in app.VerifyCheckoutInput) (domain.Order, error)
}

// HandleVerifyPayment returns the handler for the client's post-checkout
// verification call.
func HandleVerifyPayment(svc CheckoutVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req app.VerifyCheckoutInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "gateway_order_id, gateway_payment_id and signature are required")
			return
		}

		order, err := svc.VerifyCheckout(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidSignature):
				writeError(w, http.StatusBadRequest, codeInvalidSignature, "signature verification failed")
			case errors.Is(err, domain.ErrOrderNotFound):
				writeError(w, http.StatusNotFound, codeOrderNotFound, "order not found")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, verifyResponse{
			OrderID:        order.ID,
			GatewayOrderID: order.GatewayOrderID,
			Status:         string(order.Status),
			Verified:       true,
		})
	}
}

type verifyResponse struct {
	OrderID        string `json:"order_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	Status         string `json:"status"`
	Verified       bool   `json:"verified"`
}
