package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"ordercore/internal/domain"
	"ordercore/internal/repository/order_repo"
)

const uniqueViolation = "23505"

type pgOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRepository(db *sql.DB, l *zap.Logger) order_repo.OrderRepository {
	return &pgOrderRepository{db: db, logger: l}
}

const orderColumns = `id, customer_id, tenant_id, order_number, status, subtotal, tax, shipping, discount, total_amount, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(&order.ID, &order.CustomerID, &order.TenantID, &order.OrderNumber,
		&order.Status, &order.Subtotal, &order.Tax, &order.Shipping, &order.Discount,
		&order.TotalAmount, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CreateTx inserts the order and its item snapshots inside the caller's
// transaction, so a failure on any line leaves zero rows behind.
func (r *pgOrderRepository) CreateTx(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	orderQuery := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := tx.ExecContext(ctx, orderQuery,
		order.ID, order.CustomerID, order.TenantID, order.OrderNumber, order.Status,
		order.Subtotal, order.Tax, order.Shipping, order.Discount, order.TotalAmount,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return domain.ErrDuplicateID
		}
		return fmt.Errorf("tx failed to create order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (id, order_id, item_id, name, price, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			item.ID, order.ID, item.ItemID, item.Name, item.Price, item.Quantity, item.Subtotal); err != nil {
			return fmt.Errorf("tx failed to create order item: %w", err)
		}
	}
	return nil
}

func (r *pgOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		r.logger.Error("Failed to get order by ID", zap.String("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	items, err := r.loadItems(ctx, r.db.QueryContext, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// GetByIDTx locks the order row for the duration of the transaction.
func (r *pgOrderRepository) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	order, err := scanOrder(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order %s: %w", id, err)
	}
	items, err := r.loadItems(ctx, tx.QueryContext, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (r *pgOrderRepository) loadItems(ctx context.Context, query queryFunc, orderID string) ([]domain.OrderItem, error) {
	rows, err := query(ctx, `SELECT id, order_id, item_id, name, price, quantity, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ItemID, &item.Name,
			&item.Price, &item.Quantity, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func (r *pgOrderRepository) List(ctx context.Context, params order_repo.ListParams) ([]*domain.Order, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM orders
		WHERE ($1 = '' OR customer_id = $1) AND ($2 = '' OR status = $2)`
	if err := r.db.QueryRowContext(ctx, countQuery, params.CustomerID, params.Status).Scan(&total); err != nil {
		r.logger.Error("Failed to count orders", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1 = '' OR customer_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, params.CustomerID, params.Status, params.Limit, params.Offset())
	if err != nil {
		r.logger.Error("Failed to query orders", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	for _, order := range orders {
		items, err := r.loadItems(ctx, r.db.QueryContext, order.ID)
		if err != nil {
			return nil, 0, err
		}
		order.Items = items
	}
	return orders, total, nil
}

func (r *pgOrderRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.OrderStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update status for order %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
