package items

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"ordercore/internal/cache"
	"ordercore/internal/domain"
	"ordercore/internal/events"
	"ordercore/internal/repository/item_repo"
)

type TTLs struct {
	Entity time.Duration
	List   time.Duration
}

type ItemService interface {
	Create(ctx context.Context, payload events.CreateItemPayload) (*ItemResponse, error)
	Update(ctx context.Context, payload events.UpdateItemPayload) (*ItemResponse, error)
	Delete(ctx context.Context, id string) error
	AdjustQuantity(ctx context.Context, payload events.AdjustItemQuantityPayload) (*ItemResponse, error)
	Get(ctx context.Context, id string) (*ItemResponse, bool, error)
	List(ctx context.Context, query ListQuery) (*ItemListResponse, bool, error)
}

type itemService struct {
	repo   item_repo.ItemRepository
	cache  *cache.Cache
	ttls   TTLs
	logger *zap.Logger
}

func NewItemService(repo item_repo.ItemRepository, c *cache.Cache, ttls TTLs, logger *zap.Logger) ItemService {
	return &itemService{repo: repo, cache: c, ttls: ttls, logger: logger}
}

func (s *itemService) Create(ctx context.Context, payload events.CreateItemPayload) (*ItemResponse, error) {
	item, err := domain.NewCustomerItem(payload.ID, payload.CustomerID, payload.TenantID,
		payload.Name, payload.Category, payload.Price, payload.Quantity)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("Item created",
		zap.String("item_id", item.ID),
		zap.String("customer_id", item.CustomerID))
	return mapItemToResponse(item), nil
}

func (s *itemService) Update(ctx context.Context, payload events.UpdateItemPayload) (*ItemResponse, error) {
	item, err := s.repo.GetByID(ctx, payload.ID)
	if err != nil {
		return nil, err
	}

	if payload.Name != nil {
		item.Name = *payload.Name
	}
	if payload.Category != nil {
		item.Category = *payload.Category
	}
	if payload.Price != nil {
		if *payload.Price < 0 {
			return nil, fmt.Errorf("item price must not be negative")
		}
		item.Price = *payload.Price
	}
	item.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("Item updated", zap.String("item_id", item.ID))
	return mapItemToResponse(item), nil
}

func (s *itemService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Item deleted", zap.String("item_id", id))
	return nil
}

// AdjustQuantity applies a relative stock change; deltas that would drive the
// quantity negative fail with ErrInsufficientStock and change nothing.
func (s *itemService) AdjustQuantity(ctx context.Context, payload events.AdjustItemQuantityPayload) (*ItemResponse, error) {
	item, err := s.repo.AdjustQuantity(ctx, payload.ID, payload.Delta)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Item quantity adjusted",
		zap.String("item_id", item.ID),
		zap.Int("delta", payload.Delta),
		zap.Int("quantity", item.Quantity))
	return mapItemToResponse(item), nil
}

func (s *itemService) Get(ctx context.Context, id string) (*ItemResponse, bool, error) {
	key := cache.EntityKey(cache.EntityItem, id)

	var cached ItemResponse
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, true, nil
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	res := mapItemToResponse(item)
	s.cache.SetJSON(ctx, key, res, s.ttls.Entity)
	return res, false, nil
}

func (s *itemService) List(ctx context.Context, query ListQuery) (*ItemListResponse, bool, error) {
	key := cache.ListKey(cache.EntityItem, query.CustomerID, map[string]string{
		"page":     strconv.Itoa(query.Page),
		"limit":    strconv.Itoa(query.Limit),
		"search":   query.Search,
		"category": query.Category,
	})

	var cached ItemListResponse
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, true, nil
	}

	list, total, err := s.repo.List(ctx, item_repo.ListParams{
		Page:       query.Page,
		Limit:      query.Limit,
		Search:     query.Search,
		Category:   query.Category,
		CustomerID: query.CustomerID,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to list items: %w", err)
	}

	res := &ItemListResponse{
		Items: make([]*ItemResponse, 0, len(list)),
		Total: total,
		Page:  query.Page,
		Limit: query.Limit,
	}
	for _, i := range list {
		res.Items = append(res.Items, mapItemToResponse(i))
	}
	s.cache.SetJSON(ctx, key, res, s.ttls.List)
	return res, false, nil
}
