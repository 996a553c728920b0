package app

import (
	"context"
	"sort"
	"time"

	"github.com/DevFusionist/dilse/internal/domain"
	"github.com/DevFusionist/dilse/internal/gateway"
)

// In-memory fakes mirroring the postgres repositories' semantics: keyed by
// gateway reference, upserts merge monotonic fields, transitions guarded.

type fakeOrderStore struct {
	orders    map[string]domain.Order // by gateway order id
	createErr error
}

func newFakeOrderStore(orders ...domain.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: make(map[string]domain.Order)}
	for _, o := range orders {
		if o.Status == "" {
			o.Status = domain.OrderStatusCreated
		}
		s.orders[o.GatewayOrderID] = o
	}
	return s
}

func (f *fakeOrderStore) Create(_ context.Context, order domain.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.orders[order.GatewayOrderID]; exists {
		return domain.ErrDuplicateOrder
	}
	f.orders[order.GatewayOrderID] = order
	return nil
}

func (f *fakeOrderStore) GetByGatewayRef(_ context.Context, gatewayOrderID string) (domain.Order, error) {
	order, ok := f.orders[gatewayOrderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderStore) AdvanceStatus(_ context.Context, gatewayOrderID string, target domain.OrderStatus, now time.Time) (bool, domain.OrderStatus, error) {
	order, ok := f.orders[gatewayOrderID]
	if !ok {
		return false, "", domain.ErrOrderNotFound
	}
	if !domain.CanTransition(order.Status, target) {
		return false, order.Status, nil
	}
	order.Status = target
	order.UpdatedAt = now
	f.orders[gatewayOrderID] = order
	return true, target, nil
}

func (f *fakeOrderStore) SetNotificationStatus(_ context.Context, gatewayOrderID string, status domain.NotificationStatus, now time.Time) error {
	order, ok := f.orders[gatewayOrderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.NotificationStatus = status
	order.UpdatedAt = now
	f.orders[gatewayOrderID] = order
	return nil
}

func (f *fakeOrderStore) ListByStatus(_ context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	out := make([]domain.Order, 0)
	for _, o := range f.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GatewayOrderID < out[j].GatewayOrderID })
	return out, nil
}

type fakePaymentStore struct {
	payments map[string]domain.Payment // by gateway payment id
	upserts  int
	// hideVerifiedCaptured makes FindVerifiedCaptured report nothing,
	// reproducing the window where a concurrent capture has not yet been
	// observed by the pre-write read.
	hideVerifiedCaptured bool
}

func newFakePaymentStore(payments ...domain.Payment) *fakePaymentStore {
	s := &fakePaymentStore{payments: make(map[string]domain.Payment)}
	for _, p := range payments {
		s.payments[p.GatewayPaymentID] = p
	}
	return s
}

func (f *fakePaymentStore) Upsert(_ context.Context, p domain.Payment) (domain.Payment, bool, error) {
	f.upserts++
	existing, ok := f.payments[p.GatewayPaymentID]
	if !ok {
		if p.Status == domain.PaymentStatusCaptured && p.Verified && f.otherVerifiedCapture(p) {
			return domain.Payment{}, false, domain.ErrPaymentConflict
		}
		f.payments[p.GatewayPaymentID] = p
		return p, true, nil
	}
	if existing.Status != domain.PaymentStatusCaptured {
		existing.Status = p.Status
	}
	existing.Verified = existing.Verified || p.Verified
	existing.ReviewRequired = existing.ReviewRequired || p.ReviewRequired
	if existing.CapturedAt == nil {
		existing.CapturedAt = p.CapturedAt
	}
	if p.ErrorReason != "" {
		existing.ErrorReason = p.ErrorReason
	}
	existing.UpdatedAt = p.UpdatedAt
	if existing.Status == domain.PaymentStatusCaptured && existing.Verified && f.otherVerifiedCapture(existing) {
		return domain.Payment{}, false, domain.ErrPaymentConflict
	}
	f.payments[p.GatewayPaymentID] = existing
	return existing, false, nil
}

// otherVerifiedCapture mirrors the partial unique index: true when a
// different payment for the same order is already captured and verified.
func (f *fakePaymentStore) otherVerifiedCapture(p domain.Payment) bool {
	for _, other := range f.payments {
		if other.GatewayPaymentID != p.GatewayPaymentID &&
			other.GatewayOrderID == p.GatewayOrderID &&
			other.Status == domain.PaymentStatusCaptured && other.Verified {
			return true
		}
	}
	return false
}

func (f *fakePaymentStore) GetByGatewayID(_ context.Context, gatewayPaymentID string) (domain.Payment, error) {
	p, ok := f.payments[gatewayPaymentID]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakePaymentStore) FindVerifiedCaptured(_ context.Context, gatewayOrderID string) (*domain.Payment, error) {
	if f.hideVerifiedCaptured {
		return nil, nil
	}
	for _, p := range f.payments {
		if p.GatewayOrderID == gatewayOrderID && p.Status == domain.PaymentStatusCaptured && p.Verified {
			copy := p
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentStore) SetDisputeStatus(_ context.Context, gatewayPaymentID, stage string, _ time.Time) error {
	p, ok := f.payments[gatewayPaymentID]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.DisputeStatus = stage
	f.payments[gatewayPaymentID] = p
	return nil
}

func (f *fakePaymentStore) SetRefundStatus(_ context.Context, gatewayPaymentID, status string, _ time.Time) error {
	p, ok := f.payments[gatewayPaymentID]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.RefundStatus = status
	f.payments[gatewayPaymentID] = p
	return nil
}

func (f *fakePaymentStore) ListRequiringReview(_ context.Context) ([]domain.Payment, error) {
	out := make([]domain.Payment, 0)
	for _, p := range f.payments {
		if p.ReviewRequired {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeRefundStore struct {
	refunds map[string]domain.Refund // by gateway refund id
}

func newFakeRefundStore() *fakeRefundStore {
	return &fakeRefundStore{refunds: make(map[string]domain.Refund)}
}

func (f *fakeRefundStore) Upsert(_ context.Context, refund domain.Refund) (bool, error) {
	_, exists := f.refunds[refund.GatewayRefundID]
	f.refunds[refund.GatewayRefundID] = refund
	return !exists, nil
}

type fakeDisputeStore struct {
	disputes map[string]domain.Dispute // by gateway dispute id
}

func newFakeDisputeStore() *fakeDisputeStore {
	return &fakeDisputeStore{disputes: make(map[string]domain.Dispute)}
}

func (f *fakeDisputeStore) Upsert(_ context.Context, d domain.Dispute) (bool, error) {
	existing, ok := f.disputes[d.GatewayDisputeID]
	if ok && domain.DisputeStageRank(existing.Stage) > domain.DisputeStageRank(d.Stage) {
		return false, nil
	}
	f.disputes[d.GatewayDisputeID] = d
	return true, nil
}

type fakeReportingStore struct {
	settlements map[string]domain.Settlement
	invoices    map[string]domain.Invoice
	links       map[string]domain.PaymentLink
	downtimes   map[string]domain.Downtime
}

func newFakeReportingStore() *fakeReportingStore {
	return &fakeReportingStore{
		settlements: make(map[string]domain.Settlement),
		invoices:    make(map[string]domain.Invoice),
		links:       make(map[string]domain.PaymentLink),
		downtimes:   make(map[string]domain.Downtime),
	}
}

func (f *fakeReportingStore) UpsertSettlement(_ context.Context, s domain.Settlement) (bool, error) {
	_, exists := f.settlements[s.GatewaySettlementID]
	f.settlements[s.GatewaySettlementID] = s
	return !exists, nil
}

func (f *fakeReportingStore) UpsertInvoice(_ context.Context, inv domain.Invoice) (bool, error) {
	_, exists := f.invoices[inv.GatewayInvoiceID]
	f.invoices[inv.GatewayInvoiceID] = inv
	return !exists, nil
}

func (f *fakeReportingStore) UpsertPaymentLink(_ context.Context, link domain.PaymentLink) (bool, error) {
	_, exists := f.links[link.GatewayLinkID]
	f.links[link.GatewayLinkID] = link
	return !exists, nil
}

func (f *fakeReportingStore) UpsertDowntime(_ context.Context, d domain.Downtime) (bool, error) {
	_, exists := f.downtimes[d.GatewayDowntimeID]
	f.downtimes[d.GatewayDowntimeID] = d
	return !exists, nil
}

type fakeUserStore struct {
	users map[string]domain.User // by id
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]domain.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user domain.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

type fakeGateway struct {
	lastInput gateway.CreateOrderInput
	err       error
}

func (f *fakeGateway) CreateOrder(_ context.Context, in gateway.CreateOrderInput) (gateway.Order, error) {
	if f.err != nil {
		return gateway.Order{}, f.err
	}
	f.lastInput = in
	return gateway.Order{
		ID:       "order_" + in.Receipt,
		Amount:   in.Amount,
		Currency: in.Currency,
		Receipt:  in.Receipt,
		Status:   "created",
	}, nil
}

type notification struct {
	kind   string // "confirmation" or "failed"
	order  domain.Order
	reason string
}

type fakeDispatcher struct {
	sent []notification
	err  error
}

func (f *fakeDispatcher) SendOrderConfirmation(_ context.Context, order domain.Order, _ domain.Payment) error {
	f.sent = append(f.sent, notification{kind: "confirmation", order: order})
	return f.err
}

func (f *fakeDispatcher) SendPaymentFailed(_ context.Context, order domain.Order, reason string) error {
	f.sent = append(f.sent, notification{kind: "failed", order: order, reason: reason})
	return f.err
}
