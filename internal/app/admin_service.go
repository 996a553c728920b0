package app

import (
	"context"

	"github.com/DevFusionist/dilse/internal/domain"
)

// AdminService backs the back-office reporting endpoints.
type AdminService struct {
	orders   OrderStore
	payments PaymentStore
}

func NewAdminService(orders OrderStore, payments PaymentStore) *AdminService {
	return &AdminService{
		orders:   orders,
		payments: payments,
	}
}

// ListOrders returns recent orders, optionally filtered by status.
func (s *AdminService) ListOrders(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	return s.orders.ListByStatus(ctx, status, limit)
}

// ListPaymentsForReview returns payments flagged as anomalous during
// reconciliation, newest first.
func (s *AdminService) ListPaymentsForReview(ctx context.Context) ([]domain.Payment, error) {
	return s.payments.ListRequiringReview(ctx)
}
