package orders

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"ordercore/internal/cache"
	"ordercore/internal/domain"
	"ordercore/internal/events"
	"ordercore/internal/infrastructure/database"
	"ordercore/internal/repository/item_repo"
	"ordercore/internal/repository/order_repo"
)

type TTLs struct {
	Entity time.Duration
	List   time.Duration
}

type OrderService interface {
	Create(ctx context.Context, payload events.CreateOrderPayload) (*OrderResponse, error)
	Update(ctx context.Context, payload events.UpdateOrderPayload) (*OrderResponse, error)
	Cancel(ctx context.Context, id string) (*OrderResponse, error)
	Get(ctx context.Context, id string) (*OrderResponse, bool, error)
	List(ctx context.Context, query ListQuery) (*OrderListResponse, bool, error)
}

type orderService struct {
	db        *sql.DB
	orderRepo order_repo.OrderRepository
	itemRepo  item_repo.ItemRepository
	cache     *cache.Cache
	ttls      TTLs
	logger    *zap.Logger
}

func NewOrderService(
	db *sql.DB,
	orderRepo order_repo.OrderRepository,
	itemRepo item_repo.ItemRepository,
	c *cache.Cache,
	ttls TTLs,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		db:        db,
		orderRepo: orderRepo,
		itemRepo:  itemRepo,
		cache:     c,
		ttls:      ttls,
		logger:    logger,
	}
}

// Create validates ownership and stock for every requested line, decrements
// each item's quantity and inserts the order with its snapshots, all inside
// one transaction. Any failure rolls the whole thing back.
func (s *orderService) Create(ctx context.Context, payload events.CreateOrderPayload) (*OrderResponse, error) {
	var order *domain.Order

	err := database.RunInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		// Lock items in a stable order so concurrent creations cannot deadlock.
		ids := make([]string, 0, len(payload.Items))
		for _, line := range payload.Items {
			ids = append(ids, line.ItemID)
		}
		sort.Strings(ids)

		locked := make(map[string]*domain.CustomerItem, len(ids))
		for _, id := range ids {
			if _, seen := locked[id]; seen {
				return fmt.Errorf("duplicate item %s in order request", id)
			}
			item, err := s.itemRepo.GetForUpdateTx(ctx, tx, id)
			if err != nil {
				return fmt.Errorf("item %s: %w", id, err)
			}
			locked[id] = item
		}

		built, err := buildOrder(payload, locked)
		if err != nil {
			return err
		}

		for _, line := range built.Items {
			if err := s.itemRepo.AdjustQuantityTx(ctx, tx, line.ItemID, -line.Quantity); err != nil {
				return fmt.Errorf("item %s: %w", line.ItemID, err)
			}
		}
		if err := s.orderRepo.CreateTx(ctx, tx, built); err != nil {
			return err
		}
		order = built
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total_amount", order.TotalAmount))
	return mapOrderToResponse(order), nil
}

// Update applies only the provided fields. A status change goes through the
// transition table; a disallowed pair fails with an error naming both states
// and leaves the stored status untouched. A transition to CANCELLED from a
// cancellable state runs the stock compensation.
func (s *orderService) Update(ctx context.Context, payload events.UpdateOrderPayload) (*OrderResponse, error) {
	if payload.Status == nil {
		order, err := s.orderRepo.GetByID(ctx, payload.ID)
		if err != nil {
			return nil, err
		}
		return mapOrderToResponse(order), nil
	}

	target := domain.OrderStatus(*payload.Status)
	if target == domain.OrderStatusCancelled {
		return s.Cancel(ctx, payload.ID)
	}

	var order *domain.Order
	err := database.RunInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		current, err := s.orderRepo.GetByIDTx(ctx, tx, payload.ID)
		if err != nil {
			return err
		}
		if err := current.TransitionTo(target); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateStatusTx(ctx, tx, current.ID, current.Status); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", order.ID),
		zap.String("new_status", string(order.Status)))
	return mapOrderToResponse(order), nil
}

// Cancel moves the order to CANCELLED and restores each line's quantity to
// the owning item inside the same transaction: a saga-style compensation,
// atomic within the store's transaction boundary.
func (s *orderService) Cancel(ctx context.Context, id string) (*OrderResponse, error) {
	var order *domain.Order

	err := database.RunInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		current, err := s.orderRepo.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !domain.IsCancellable(current.Status) {
			return fmt.Errorf("order in status %s cannot be cancelled", current.Status)
		}
		for _, line := range current.Items {
			if err := s.itemRepo.AdjustQuantityTx(ctx, tx, line.ItemID, line.Quantity); err != nil {
				return fmt.Errorf("failed to restore stock for item %s: %w", line.ItemID, err)
			}
		}
		if err := current.TransitionTo(domain.OrderStatusCancelled); err != nil {
			return err
		}
		if err := s.orderRepo.UpdateStatusTx(ctx, tx, current.ID, current.Status); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled with stock compensation",
		zap.String("order_id", order.ID),
		zap.Int("lines_restored", len(order.Items)))
	return mapOrderToResponse(order), nil
}

func (s *orderService) Get(ctx context.Context, id string) (*OrderResponse, bool, error) {
	key := cache.EntityKey(cache.EntityOrder, id)

	var cached OrderResponse
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, true, nil
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	res := mapOrderToResponse(order)
	s.cache.SetJSON(ctx, key, res, s.ttls.Entity)
	return res, false, nil
}

func (s *orderService) List(ctx context.Context, query ListQuery) (*OrderListResponse, bool, error) {
	key := cache.ListKey(cache.EntityOrder, query.CustomerID, map[string]string{
		"page":   strconv.Itoa(query.Page),
		"limit":  strconv.Itoa(query.Limit),
		"status": query.Status,
	})

	var cached OrderListResponse
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, true, nil
	}

	list, total, err := s.orderRepo.List(ctx, order_repo.ListParams{
		Page:       query.Page,
		Limit:      query.Limit,
		Status:     query.Status,
		CustomerID: query.CustomerID,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to list orders: %w", err)
	}

	res := &OrderListResponse{
		Orders: make([]*OrderResponse, 0, len(list)),
		Total:  total,
		Page:   query.Page,
		Limit:  query.Limit,
	}
	for _, o := range list {
		res.Orders = append(res.Orders, mapOrderToResponse(o))
	}
	s.cache.SetJSON(ctx, key, res, s.ttls.List)
	return res, false, nil
}
