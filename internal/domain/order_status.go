package domain

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	// OrderStatusPending is the initial state for orders awaiting online payment.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPendingCOD is the initial state for cash-on-delivery orders.
	OrderStatusPendingCOD OrderStatus = "pending_cod"
	// OrderStatusPaid marks an order whose payment was confirmed.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusProcessing marks an order being prepared for shipment.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped marks an order handed to the carrier.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered marks an order received by the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled is terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusReturned is terminal; the order came back after delivery.
	OrderStatusReturned OrderStatus = "returned"
)

// orderTransitions is the closed transition table. Transitions not listed here
// are rejected, including self-transitions.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPendingCOD, OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusPendingCOD: {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusReturned},
	OrderStatusDelivered:  {OrderStatusReturned},
	OrderStatusCancelled:  {},
	OrderStatusReturned:   {},
}

// AllOrderStatuses lists every status in workflow order.
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusPendingCOD,
		OrderStatusPaid,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusReturned,
	}
}

// ValidOrderStatus reports whether status belongs to the closed set.
func ValidOrderStatus(status OrderStatus) bool {
	_, ok := orderTransitions[status]
	return ok
}

// CanTransition reports whether the order workflow permits moving from one
// status to another. Identical statuses are never a valid transition.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable in one step from the given
// status. The returned slice is a copy.
func AllowedTransitions(from OrderStatus) []OrderStatus {
	next := orderTransitions[from]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// IsTerminalOrderStatus reports whether no transition leaves the status.
func IsTerminalOrderStatus(status OrderStatus) bool {
	return ValidOrderStatus(status) && len(orderTransitions[status]) == 0
}
