package domain

import (
	"errors"
	"time"
)

// CustomerItem is an inventory line owned by a single customer. Quantity must
// never go negative; decrements are guarded at the repository level so that
// concurrent adjustments cannot oversell.
type CustomerItem struct {
	ID         string
	CustomerID string
	TenantID   string
	Name       string
	Category   string
	Price      float64
	Quantity   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewCustomerItem(id, customerID, tenantID, name, category string, price float64, quantity int) (*CustomerItem, error) {
	if id == "" || customerID == "" || name == "" {
		return nil, errors.New("invalid item data: id, customer id and name are required")
	}
	if price < 0 {
		return nil, errors.New("invalid item data: price must not be negative")
	}
	if quantity < 0 {
		return nil, errors.New("invalid item data: quantity must not be negative")
	}
	now := time.Now()
	return &CustomerItem{
		ID:         id,
		CustomerID: customerID,
		TenantID:   tenantID,
		Name:       name,
		Category:   category,
		Price:      price,
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
