package domain

import "time"

type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "created"
	OrderStatusAuthorized OrderStatus = "authorized"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

type NotificationStatus string

const (
	NotificationDelivered NotificationStatus = "delivered"
	NotificationFailed    NotificationStatus = "failed"
)

// Order is the aggregate root for a purchase. It is created once in
// OrderStatusCreated and mutated only through guarded status transitions;
// rows are never deleted.
type Order struct {
	ID                 string
	GatewayOrderID     string
	Amount             int64 // minor currency units
	Currency           string
	Items              []OrderItem
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      string
	Shipping           ShippingAddress
	Status             OrderStatus
	NotificationStatus NotificationStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// OrderItem captures a line item with the unit price frozen at order time.
type OrderItem struct {
	ProductRef string `json:"product_ref"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"` // minor currency units
}

type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// statusRank orders statuses by how far the lifecycle has progressed.
// A stored status with rank >= the target's rank means an incoming
// transition is a stale duplicate, not a conflict.
var statusRank = map[OrderStatus]int{
	OrderStatusCreated:    0,
	OrderStatusAuthorized: 1,
	OrderStatusFailed:     2,
	OrderStatusCancelled:  2,
	OrderStatusPaid:       3,
	OrderStatusRefunded:   4,
}

// transitionSources lists the statuses a target may legally be reached from.
// paid is reachable from failed so a successful retry attempt recovers an
// order a previous attempt failed.
var transitionSources = map[OrderStatus][]OrderStatus{
	OrderStatusAuthorized: {OrderStatusCreated},
	OrderStatusPaid:       {OrderStatusCreated, OrderStatusAuthorized, OrderStatusFailed},
	OrderStatusFailed:     {OrderStatusCreated, OrderStatusAuthorized},
	OrderStatusCancelled:  {OrderStatusCreated, OrderStatusAuthorized},
	OrderStatusRefunded:   {OrderStatusPaid, OrderStatusAuthorized},
}

// TransitionSources returns the statuses from which target may be reached.
// The returned slice must not be mutated.
func TransitionSources(target OrderStatus) []OrderStatus {
	return transitionSources[target]
}

// CanTransition reports whether moving from -> to is a legal lifecycle step.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range transitionSources[to] {
		if s == from {
			return true
		}
	}
	return false
}

// StatusRank returns the lifecycle progress rank of a status. Unknown
// statuses rank lowest.
func StatusRank(s OrderStatus) int {
	return statusRank[s]
}

// IsStale reports whether an event targeting `target` is a stale duplicate
// given the currently stored status: the order already is at, or beyond,
// where the event would move it.
func IsStale(current, target OrderStatus) bool {
	return StatusRank(current) >= StatusRank(target)
}
