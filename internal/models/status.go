package models

// OrderStatus is an order's fulfillment stage
type OrderStatus string

const (
	OrderStatusPending                OrderStatus = "Pending"
	OrderStatusCallingForConfirmation OrderStatus = "Calling for Confirmation"
	OrderStatusConfirmed              OrderStatus = "Confirmed"
	OrderStatusPacking                OrderStatus = "Packing"
	OrderStatusOutForDelivery         OrderStatus = "Out for Delivery"
	OrderStatusDelivered              OrderStatus = "Delivered"
)

// OrderStatuses is the fixed progression shown to customers. The order only
// drives progress rendering; status updates are not constrained by it.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusCallingForConfirmation,
	OrderStatusConfirmed,
	OrderStatusPacking,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// Index returns the position of s in OrderStatuses, or -1
func (s OrderStatus) Index() int {
	for i, known := range OrderStatuses {
		if known == s {
			return i
		}
	}
	return -1
}

// IsKnown reports whether s is one of OrderStatuses
func (s OrderStatus) IsKnown() bool {
	return s.Index() >= 0
}

// StatusStep is one row of a tracking progress view
type StatusStep struct {
	Status  OrderStatus `json:"status"`
	Reached bool        `json:"reached"`
	Current bool        `json:"current"`
}

// StatusSteps renders the progression for an order currently at s. An unknown
// status reaches no step.
func StatusSteps(s OrderStatus) []StatusStep {
	current := s.Index()
	steps := make([]StatusStep, len(OrderStatuses))

	for i, status := range OrderStatuses {
		steps[i] = StatusStep{
			Status:  status,
			Reached: current >= 0 && i <= current,
			Current: i == current,
		}
	}

	return steps
}
