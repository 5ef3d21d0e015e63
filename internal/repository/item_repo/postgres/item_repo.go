package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"ordercore/internal/domain"
	"ordercore/internal/repository/item_repo"
)

const uniqueViolation = "23505"

type pgItemRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewItemRepository(db *sql.DB, l *zap.Logger) item_repo.ItemRepository {
	return &pgItemRepository{db: db, logger: l}
}

const itemColumns = `id, customer_id, tenant_id, name, category, price, quantity, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*domain.CustomerItem, error) {
	item := &domain.CustomerItem{}
	err := row.Scan(&item.ID, &item.CustomerID, &item.TenantID, &item.Name,
		&item.Category, &item.Price, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *pgItemRepository) Create(ctx context.Context, item *domain.CustomerItem) error {
	query := `INSERT INTO customer_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.CustomerID, item.TenantID, item.Name, item.Category,
		item.Price, item.Quantity, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return domain.ErrDuplicateID
		}
		r.logger.Error("Failed to create item", zap.String("item_id", item.ID), zap.Error(err))
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *pgItemRepository) GetByID(ctx context.Context, id string) (*domain.CustomerItem, error) {
	query := `SELECT ` + itemColumns + ` FROM customer_items WHERE id = $1`
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		r.logger.Error("Failed to get item by ID", zap.String("item_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get item by ID %s: %w", id, err)
	}
	return item, nil
}

func (r *pgItemRepository) List(ctx context.Context, params item_repo.ListParams) ([]*domain.CustomerItem, int, error) {
	search := "%" + params.Search + "%"

	var total int
	countQuery := `SELECT COUNT(*) FROM customer_items
		WHERE ($1 = '' OR customer_id = $1)
		  AND ($2 = '' OR category = $2)
		  AND ($3 = '%%' OR name ILIKE $3)`
	if err := r.db.QueryRowContext(ctx, countQuery, params.CustomerID, params.Category, search).Scan(&total); err != nil {
		r.logger.Error("Failed to count items", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	query := `SELECT ` + itemColumns + ` FROM customer_items
		WHERE ($1 = '' OR customer_id = $1)
		  AND ($2 = '' OR category = $2)
		  AND ($3 = '%%' OR name ILIKE $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`
	rows, err := r.db.QueryContext(ctx, query, params.CustomerID, params.Category, search, params.Limit, params.Offset())
	if err != nil {
		r.logger.Error("Failed to query items", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*domain.CustomerItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return items, total, nil
}

func (r *pgItemRepository) Update(ctx context.Context, item *domain.CustomerItem) error {
	query := `UPDATE customer_items SET name = $2, category = $3, price = $4, updated_at = $5
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Category, item.Price, item.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update item", zap.String("item_id", item.ID), zap.Error(err))
		return fmt.Errorf("failed to update item %s: %w", item.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *pgItemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customer_items WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete item", zap.String("item_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// AdjustQuantity applies a relative quantity change. The WHERE clause
// enforces non-negativity in the same statement, so a concurrent decrement
// can never drive the quantity below zero.
func (r *pgItemRepository) AdjustQuantity(ctx context.Context, id string, delta int) (*domain.CustomerItem, error) {
	query := `UPDATE customer_items
		SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING ` + itemColumns
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id, delta))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the item is missing or the guard rejected the delta.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, domain.ErrInsufficientStock
		}
		r.logger.Error("Failed to adjust item quantity",
			zap.String("item_id", id), zap.Int("delta", delta), zap.Error(err))
		return nil, fmt.Errorf("failed to adjust quantity for item %s: %w", id, err)
	}
	return item, nil
}

func (r *pgItemRepository) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*domain.CustomerItem, error) {
	query := `SELECT ` + itemColumns + ` FROM customer_items WHERE id = $1 FOR UPDATE`
	item, err := scanItem(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to lock item %s: %w", id, err)
	}
	return item, nil
}

func (r *pgItemRepository) AdjustQuantityTx(ctx context.Context, tx *sql.Tx, id string, delta int) error {
	query := `UPDATE customer_items
		SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1 AND quantity + $2 >= 0`
	res, err := tx.ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust quantity for item %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check adjust result: %w", err)
	}
	if affected == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}
