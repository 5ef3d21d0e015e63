package customers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"ordercore/internal/cache"
	"ordercore/internal/domain"
	"ordercore/internal/events"
	"ordercore/internal/repository/customer_repo"
)

type TTLs struct {
	Entity time.Duration
	List   time.Duration
}

type CustomerService interface {
	Create(ctx context.Context, payload events.CreateCustomerPayload) (*CustomerResponse, error)
	Update(ctx context.Context, payload events.UpdateCustomerPayload) (*CustomerResponse, error)
	// Delete removes the customer and their items, returning the removed
	// item ids so the caller can invalidate each item's cache entry.
	Delete(ctx context.Context, id string) ([]string, error)
	Get(ctx context.Context, id string) (*CustomerResponse, bool, error)
	List(ctx context.Context, query ListQuery) (*CustomerListResponse, bool, error)
}

type customerService struct {
	repo   customer_repo.CustomerRepository
	cache  *cache.Cache
	ttls   TTLs
	logger *zap.Logger
}

func NewCustomerService(repo customer_repo.CustomerRepository, c *cache.Cache, ttls TTLs, logger *zap.Logger) CustomerService {
	return &customerService{repo: repo, cache: c, ttls: ttls, logger: logger}
}

func (s *customerService) Create(ctx context.Context, payload events.CreateCustomerPayload) (*CustomerResponse, error) {
	customer, err := domain.NewCustomer(payload.ID, payload.TenantID, payload.Name, payload.Email, payload.Phone, payload.Address)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	s.logger.Info("Customer created", zap.String("customer_id", customer.ID))
	return mapCustomerToResponse(customer), nil
}

func (s *customerService) Update(ctx context.Context, payload events.UpdateCustomerPayload) (*CustomerResponse, error) {
	customer, err := s.repo.GetByID(ctx, payload.ID)
	if err != nil {
		return nil, err
	}

	if payload.Name != nil {
		customer.Name = *payload.Name
	}
	if payload.Email != nil {
		customer.Email = *payload.Email
	}
	if payload.Phone != nil {
		customer.Phone = *payload.Phone
	}
	if payload.Address != nil {
		customer.Address = *payload.Address
	}
	customer.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, err
	}
	s.logger.Info("Customer updated", zap.String("customer_id", customer.ID))
	return mapCustomerToResponse(customer), nil
}

func (s *customerService) Delete(ctx context.Context, id string) ([]string, error) {
	itemIDs, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Customer deleted",
		zap.String("customer_id", id),
		zap.Int("items_removed", len(itemIDs)))
	return itemIDs, nil
}

// Get is the cache-first read path: on hit the cached value is returned
// immediately, on miss the store is queried and the cache populated. The
// second return reports whether the response was served from cache.
func (s *customerService) Get(ctx context.Context, id string) (*CustomerResponse, bool, error) {
	key := cache.EntityKey(cache.EntityCustomer, id)

	var cached CustomerResponse
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, true, nil
	}

	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	res := mapCustomerToResponse(customer)
	s.cache.SetJSON(ctx, key, res, s.ttls.Entity)
	return res, false, nil
}

func (s *customerService) List(ctx context.Context, query ListQuery) (*CustomerListResponse, bool, error) {
	key := cache.ListKey(cache.EntityCustomer, "", map[string]string{
		"page":   strconv.Itoa(query.Page),
		"limit":  strconv.Itoa(query.Limit),
		"search": query.Search,
	})

	var cached CustomerListResponse
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, true, nil
	}

	list, total, err := s.repo.List(ctx, customer_repo.ListParams{
		Page:   query.Page,
		Limit:  query.Limit,
		Search: query.Search,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to list customers: %w", err)
	}

	res := &CustomerListResponse{
		Customers: make([]*CustomerResponse, 0, len(list)),
		Total:     total,
		Page:      query.Page,
		Limit:     query.Limit,
	}
	for _, c := range list {
		res.Customers = append(res.Customers, mapCustomerToResponse(c))
	}
	s.cache.SetJSON(ctx, key, res, s.ttls.List)
	return res, false, nil
}
