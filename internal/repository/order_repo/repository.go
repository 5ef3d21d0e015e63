package order_repo

import (
	"context"
	"database/sql"

	"ordercore/internal/domain"
)

type ListParams struct {
	Page       int
	Limit      int
	Status     string
	CustomerID string
}

func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type OrderRepository interface {
	CreateTx(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*domain.Order, error)
	List(ctx context.Context, params ListParams) ([]*domain.Order, int, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.OrderStatus) error
}
