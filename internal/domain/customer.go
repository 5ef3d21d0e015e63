package domain

import (
	"errors"
	"strings"
	"time"
)

type Customer struct {
	ID        string
	TenantID  string
	Name      string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewCustomer(id, tenantID, name, email, phone, address string) (*Customer, error) {
	if id == "" || name == "" || email == "" {
		return nil, errors.New("invalid customer data: id, name and email are required")
	}
	if !strings.Contains(email, "@") {
		return nil, errors.New("invalid customer data: malformed email")
	}
	now := time.Now()
	return &Customer{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
