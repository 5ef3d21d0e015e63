package item_repo

import (
	"context"
	"database/sql"

	"ordercore/internal/domain"
)

type ListParams struct {
	Page       int
	Limit      int
	Search     string
	Category   string
	CustomerID string
}

func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type ItemRepository interface {
	Create(ctx context.Context, item *domain.CustomerItem) error
	GetByID(ctx context.Context, id string) (*domain.CustomerItem, error)
	List(ctx context.Context, params ListParams) ([]*domain.CustomerItem, int, error)
	Update(ctx context.Context, item *domain.CustomerItem) error
	Delete(ctx context.Context, id string) error
	AdjustQuantity(ctx context.Context, id string, delta int) (*domain.CustomerItem, error)

	// Tx variants invoked inside an order transaction.
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*domain.CustomerItem, error)
	AdjustQuantityTx(ctx context.Context, tx *sql.Tx, id string, delta int) error
}
