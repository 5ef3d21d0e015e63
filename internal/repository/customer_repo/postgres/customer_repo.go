package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"ordercore/internal/domain"
	"ordercore/internal/infrastructure/database"
	"ordercore/internal/repository/customer_repo"
)

const uniqueViolation = "23505"

type pgCustomerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewCustomerRepository(db *sql.DB, l *zap.Logger) customer_repo.CustomerRepository {
	return &pgCustomerRepository{db: db, logger: l}
}

func (r *pgCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `INSERT INTO customers (id, tenant_id, name, email, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		customer.ID, customer.TenantID, customer.Name, customer.Email,
		customer.Phone, customer.Address, customer.CreatedAt, customer.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			// Redelivered create events with a pre-assigned id land here.
			if pqErr.Constraint == "customers_pkey" {
				return domain.ErrDuplicateID
			}
			return domain.ErrDuplicateEmail
		}
		r.logger.Error("Failed to create customer", zap.String("customer_id", customer.ID), zap.Error(err))
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (r *pgCustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	customer := &domain.Customer{}
	query := `SELECT id, tenant_id, name, email, phone, address, created_at, updated_at
		FROM customers WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID, &customer.TenantID, &customer.Name, &customer.Email,
		&customer.Phone, &customer.Address, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		r.logger.Error("Failed to get customer by ID", zap.String("customer_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get customer by ID %s: %w", id, err)
	}
	return customer, nil
}

func (r *pgCustomerRepository) List(ctx context.Context, params customer_repo.ListParams) ([]*domain.Customer, int, error) {
	search := "%" + params.Search + "%"

	var total int
	countQuery := `SELECT COUNT(*) FROM customers WHERE ($1 = '%%' OR name ILIKE $1 OR email ILIKE $1)`
	if err := r.db.QueryRowContext(ctx, countQuery, search).Scan(&total); err != nil {
		r.logger.Error("Failed to count customers", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	query := `SELECT id, tenant_id, name, email, phone, address, created_at, updated_at
		FROM customers
		WHERE ($1 = '%%' OR name ILIKE $1 OR email ILIKE $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, search, params.Limit, params.Offset())
	if err != nil {
		r.logger.Error("Failed to query customers", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		customer := &domain.Customer{}
		if err := rows.Scan(
			&customer.ID, &customer.TenantID, &customer.Name, &customer.Email,
			&customer.Phone, &customer.Address, &customer.CreatedAt, &customer.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer row: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return customers, total, nil
}

func (r *pgCustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	query := `UPDATE customers SET name = $2, email = $3, phone = $4, address = $5, updated_at = $6
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		customer.ID, customer.Name, customer.Email, customer.Phone, customer.Address, customer.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return domain.ErrDuplicateEmail
		}
		r.logger.Error("Failed to update customer", zap.String("customer_id", customer.ID), zap.Error(err))
		return fmt.Errorf("failed to update customer %s: %w", customer.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

// Delete removes the customer's items and the customer row inside one
// transaction. The removed item ids are collected first so callers can evict
// each item's cache entry; a cascade would delete them silently instead.
func (r *pgCustomerRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var itemIDs []string
	err := database.RunInTransaction(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`DELETE FROM customer_items WHERE customer_id = $1 RETURNING id`, id)
		if err != nil {
			return fmt.Errorf("failed to delete customer items: %w", err)
		}
		for rows.Next() {
			var itemID string
			if err := rows.Scan(&itemID); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan deleted item id: %w", err)
			}
			itemIDs = append(itemIDs, itemID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("failed to read deleted item ids: %w", err)
		}
		rows.Close()

		res, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete customer %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check delete result: %w", err)
		}
		if affected == 0 {
			return domain.ErrCustomerNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrCustomerNotFound) {
			r.logger.Error("Failed to delete customer", zap.String("customer_id", id), zap.Error(err))
		}
		return nil, err
	}
	return itemIDs, nil
}
