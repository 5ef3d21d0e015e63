package domain

import "errors"

var (
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateEmail    = errors.New("customer with this email already exists")
	ErrDuplicateID       = errors.New("entity with this id already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemNotOwned      = errors.New("item does not belong to customer")
)
