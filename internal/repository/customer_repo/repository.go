package customer_repo

import (
	"context"

	"ordercore/internal/domain"
)

type ListParams struct {
	Page   int
	Limit  int
	Search string
}

func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	List(ctx context.Context, params ListParams) ([]*domain.Customer, int, error)
	Update(ctx context.Context, customer *domain.Customer) error
	// Delete removes the customer and every item the customer owns in one
	// transaction, returning the ids of the removed items.
	Delete(ctx context.Context, id string) ([]string, error)
}
