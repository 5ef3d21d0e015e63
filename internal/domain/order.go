package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusDraft          OrderStatus = "DRAFT"
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusPacked         OrderStatus = "PACKED"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusRefunded       OrderStatus = "REFUNDED"
	OrderStatusReturned       OrderStatus = "RETURNED"
	OrderStatusFailed         OrderStatus = "FAILED"
)

// statusTransitions is the full directed transition graph for order statuses.
// CANCELLED and REFUNDED are terminal.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:          {OrderStatusPending, OrderStatusCancelled},
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusPacked, OrderStatusCancelled},
	OrderStatusPacked:         {OrderStatusShipped},
	OrderStatusShipped:        {OrderStatusOutForDelivery},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusFailed},
	OrderStatusDelivered:      {OrderStatusReturned},
	OrderStatusReturned:       {OrderStatusRefunded},
	OrderStatusFailed:         {OrderStatusCancelled, OrderStatusPending},
	OrderStatusCancelled:      {},
	OrderStatusRefunded:       {},
}

func IsValidStatus(s OrderStatus) bool {
	_, ok := statusTransitions[s]
	return ok
}

func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsCancellable reports whether an order in the given status may still be
// cancelled with stock compensation.
func IsCancellable(s OrderStatus) bool {
	switch s {
	case OrderStatusDraft, OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	}
	return false
}

// OrderItem is an immutable price/quantity snapshot taken from a CustomerItem
// at order-creation time. It is never recomputed after the order is persisted.
type OrderItem struct {
	ID       string
	OrderID  string
	ItemID   string
	Name     string
	Price    float64
	Quantity int
	Subtotal float64
}

type Order struct {
	ID          string
	CustomerID  string
	TenantID    string
	OrderNumber string
	Status      OrderStatus
	Items       []OrderItem
	Subtotal    float64
	Tax         float64
	Shipping    float64
	Discount    float64
	TotalAmount float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const taxRate = 0.10

// ShippingCost applies the fixed banded rule: orders of at least 100 ship
// free, at least 50 ship for a flat 5, anything below for a flat 10.
func ShippingCost(subtotal float64) float64 {
	switch {
	case subtotal >= 100:
		return 0
	case subtotal >= 50:
		return 5
	default:
		return 10
	}
}

// ComputeTotals fills Subtotal, Tax, Shipping and TotalAmount from the order's
// item snapshots. Called once at creation; totals are never recomputed on
// later updates.
func (o *Order) ComputeTotals() {
	var subtotal float64
	for i := range o.Items {
		o.Items[i].Subtotal = o.Items[i].Price * float64(o.Items[i].Quantity)
		subtotal += o.Items[i].Subtotal
	}
	o.Subtotal = subtotal
	o.Tax = subtotal * taxRate
	o.Shipping = ShippingCost(subtotal)
	o.TotalAmount = o.Subtotal + o.Tax + o.Shipping - o.Discount
}

// TransitionTo moves the order along the status graph, rejecting any pair not
// present in the transition table with an error naming both states.
func (o *Order) TransitionTo(to OrderStatus) error {
	if !IsValidStatus(to) {
		return fmt.Errorf("unknown order status %q", to)
	}
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("illegal status transition from %s to %s", o.Status, to)
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}
