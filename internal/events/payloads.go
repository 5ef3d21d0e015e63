package events

// Per-event-type payload structs. Creation payloads carry the entity id
// pre-assigned by the API layer so redelivered create events are detected by
// unique-constraint conflict instead of producing duplicate rows.

type CreateCustomerPayload struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

type UpdateCustomerPayload struct {
	ID      string  `json:"id"`
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type DeleteCustomerPayload struct {
	ID string `json:"id"`
}

type CreateItemPayload struct {
	ID         string  `json:"id"`
	TenantID   string  `json:"tenantId,omitempty"`
	CustomerID string  `json:"customerId"`
	Name       string  `json:"name"`
	Category   string  `json:"category,omitempty"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

type UpdateItemPayload struct {
	ID       string   `json:"id"`
	Name     *string  `json:"name,omitempty"`
	Category *string  `json:"category,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

type DeleteItemPayload struct {
	ID string `json:"id"`
}

// AdjustItemQuantityPayload is a relative stock adjustment; a negative delta
// that would take the quantity below zero fails the whole adjustment.
type AdjustItemQuantityPayload struct {
	ID    string `json:"id"`
	Delta int    `json:"delta"`
}

type OrderItemRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type CreateOrderPayload struct {
	ID         string             `json:"id"`
	TenantID   string             `json:"tenantId,omitempty"`
	CustomerID string             `json:"customerId"`
	Items      []OrderItemRequest `json:"items"`
	Discount   float64            `json:"discount,omitempty"`
}

// UpdateOrderPayload applies only the provided fields. Status changes go
// through the order status transition table; financial totals are never
// client-updatable.
type UpdateOrderPayload struct {
	ID     string  `json:"id"`
	Status *string `json:"status,omitempty"`
}

type CancelOrderPayload struct {
	ID string `json:"id"`
}
