package orders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordercore/internal/domain"
	"ordercore/internal/events"
)

func stockedItems() map[string]*domain.CustomerItem {
	return map[string]*domain.CustomerItem{
		"i-1": {ID: "i-1", CustomerID: "c-1", Name: "Widget", Price: 10.00, Quantity: 5},
		"i-2": {ID: "i-2", CustomerID: "c-1", Name: "Gadget", Price: 40.00, Quantity: 2},
		"i-3": {ID: "i-3", CustomerID: "c-other", Name: "Gizmo", Price: 7.50, Quantity: 100},
	}
}

func TestBuildOrder(t *testing.T) {
	t.Parallel()

	t.Run("computes totals from snapshots", func(t *testing.T) {
		t.Parallel()
		payload := events.CreateOrderPayload{
			ID:         "o-1",
			CustomerID: "c-1",
			Items:      []events.OrderItemRequest{{ItemID: "i-1", Quantity: 2}},
		}
		order, err := buildOrder(payload, stockedItems())
		require.NoError(t, err)

		assert.Equal(t, domain.OrderStatusPending, order.Status)
		require.Len(t, order.Items, 1)
		assert.Equal(t, "Widget", order.Items[0].Name)
		assert.Equal(t, 10.00, order.Items[0].Price)
		assert.InDelta(t, 20.00, order.Subtotal, 1e-9)
		assert.InDelta(t, 2.00, order.Tax, 1e-9)
		assert.InDelta(t, 10.00, order.Shipping, 1e-9)
		assert.InDelta(t, 32.00, order.TotalAmount, 1e-9)
		assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	})

	t.Run("insufficient stock aborts the whole build", func(t *testing.T) {
		t.Parallel()
		payload := events.CreateOrderPayload{
			ID:         "o-1",
			CustomerID: "c-1",
			Items: []events.OrderItemRequest{
				{ItemID: "i-1", Quantity: 1},
				{ItemID: "i-2", Quantity: 3},
			},
		}
		order, err := buildOrder(payload, stockedItems())
		require.ErrorIs(t, err, domain.ErrInsufficientStock)
		assert.Contains(t, err.Error(), "item i-2 has 2 in stock, 3 requested")
		assert.Nil(t, order)
	})

	t.Run("item owned by another customer is rejected", func(t *testing.T) {
		t.Parallel()
		payload := events.CreateOrderPayload{
			ID:         "o-1",
			CustomerID: "c-1",
			Items:      []events.OrderItemRequest{{ItemID: "i-3", Quantity: 1}},
		}
		_, err := buildOrder(payload, stockedItems())
		assert.ErrorIs(t, err, domain.ErrItemNotOwned)
	})

	t.Run("unknown item is rejected", func(t *testing.T) {
		t.Parallel()
		payload := events.CreateOrderPayload{
			ID:         "o-1",
			CustomerID: "c-1",
			Items:      []events.OrderItemRequest{{ItemID: "i-missing", Quantity: 1}},
		}
		_, err := buildOrder(payload, stockedItems())
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
	})

	t.Run("zero or negative quantities are rejected", func(t *testing.T) {
		t.Parallel()
		for _, qty := range []int{0, -1} {
			payload := events.CreateOrderPayload{
				ID:         "o-1",
				CustomerID: "c-1",
				Items:      []events.OrderItemRequest{{ItemID: "i-1", Quantity: qty}},
			}
			_, err := buildOrder(payload, stockedItems())
			assert.Error(t, err, "quantity %d should be rejected", qty)
		}
	})

	t.Run("empty order is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := buildOrder(events.CreateOrderPayload{ID: "o-1", CustomerID: "c-1"}, stockedItems())
		assert.Error(t, err)
	})

	t.Run("negative discount is rejected", func(t *testing.T) {
		t.Parallel()
		payload := events.CreateOrderPayload{
			ID:         "o-1",
			CustomerID: "c-1",
			Discount:   -1,
			Items:      []events.OrderItemRequest{{ItemID: "i-1", Quantity: 1}},
		}
		_, err := buildOrder(payload, stockedItems())
		assert.Error(t, err)
	})
}
