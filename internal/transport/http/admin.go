package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/DevFusionist/dilse/internal/domain"
)

// AdminReportingService is the minimal interface needed for the back-office
// endpoints.
type AdminReportingService interface {
	ListOrders(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error)
	ListPaymentsForReview(ctx context.Context) ([]domain.Payment, error)
}

// HandleAdminOrders returns the handler for listing orders, optionally
// filtered by ?status=. Mounted behind Authenticated.
func HandleAdminOrders(svc AdminReportingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		orders, err := svc.ListOrders(r.Context(), domain.OrderStatus(r.URL.Query().Get("status")), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		resp := make([]adminOrderResponse, 0, len(orders))
		for _, o := range orders {
			resp = append(resp, adminOrderResponse{
				ID:                 o.ID,
				GatewayOrderID:     o.GatewayOrderID,
				Amount:             o.Amount,
				Currency:           o.Currency,
				CustomerEmail:      o.CustomerEmail,
				Status:             string(o.Status),
				NotificationStatus: string(o.NotificationStatus),
				CreatedAt:          o.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleAdminPaymentsReview returns the handler for listing payments flagged
// during reconciliation. Mounted behind Authenticated.
func HandleAdminPaymentsReview(svc AdminReportingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		payments, err := svc.ListPaymentsForReview(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		resp := make([]adminPaymentResponse, 0, len(payments))
		for _, p := range payments {
			resp = append(resp, adminPaymentResponse{
				ID:               p.ID,
				GatewayOrderID:   p.GatewayOrderID,
				GatewayPaymentID: p.GatewayPaymentID,
				Amount:           p.Amount,
				Currency:         p.Currency,
				Status:           string(p.Status),
				Verified:         p.Verified,
				CreatedAt:        p.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type adminOrderResponse struct {
	ID                 string    `json:"id"`
	GatewayOrderID     string    `json:"gateway_order_id"`
	Amount             int64     `json:"amount"`
	Currency           string    `json:"currency"`
	CustomerEmail      string    `json:"customer_email"`
	Status             string    `json:"status"`
	NotificationStatus string    `json:"notification_status,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type adminPaymentResponse struct {
	ID               string    `json:"id"`
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	Verified         bool      `json:"verified"`
	CreatedAt        time.Time `json:"created_at"`
}
