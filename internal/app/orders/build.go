package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"ordercore/internal/domain"
	"ordercore/internal/events"
)

// buildOrder derives a fully-formed order from the request payload and the
// locked inventory items. Any invalid line aborts the whole build so partial
// orders are never constructed, let alone persisted. Totals are always
// server-computed; nothing financial is taken from the client.
func buildOrder(payload events.CreateOrderPayload, items map[string]*domain.CustomerItem) (*domain.Order, error) {
	if payload.ID == "" || payload.CustomerID == "" {
		return nil, fmt.Errorf("invalid order data: id and customer id are required")
	}
	if len(payload.Items) == 0 {
		return nil, fmt.Errorf("invalid order data: order must contain at least one item")
	}
	if payload.Discount < 0 {
		return nil, fmt.Errorf("invalid order data: discount must not be negative")
	}

	now := time.Now()
	order := &domain.Order{
		ID:          payload.ID,
		TenantID:    payload.TenantID,
		CustomerID:  payload.CustomerID,
		OrderNumber: generateOrderNumber(payload.ID, now),
		Status:      domain.OrderStatusPending,
		Discount:    payload.Discount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, line := range payload.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for item %s", line.Quantity, line.ItemID)
		}
		item, ok := items[line.ItemID]
		if !ok {
			return nil, fmt.Errorf("item %s: %w", line.ItemID, domain.ErrItemNotFound)
		}
		if item.CustomerID != payload.CustomerID {
			return nil, fmt.Errorf("item %s: %w", line.ItemID, domain.ErrItemNotOwned)
		}
		if item.Quantity < line.Quantity {
			return nil, fmt.Errorf("item %s has %d in stock, %d requested: %w",
				item.ID, item.Quantity, line.Quantity, domain.ErrInsufficientStock)
		}
		order.Items = append(order.Items, domain.OrderItem{
			ID:       uuid.NewString(),
			OrderID:  order.ID,
			ItemID:   item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: line.Quantity,
		})
	}

	order.ComputeTotals()
	return order, nil
}

func generateOrderNumber(orderID string, now time.Time) string {
	short := orderID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("ORD-%d-%s", now.Unix(), short)
}
