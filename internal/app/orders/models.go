package orders

import (
	"time"

	"ordercore/internal/domain"
)

type OrderItemResponse struct {
	ID       string  `json:"id"`
	ItemID   string  `json:"itemId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

type OrderResponse struct {
	ID          string              `json:"id"`
	CustomerID  string              `json:"customerId"`
	OrderNumber string              `json:"orderNumber"`
	Status      string              `json:"status"`
	Items       []OrderItemResponse `json:"items"`
	Subtotal    float64             `json:"subtotal"`
	Tax         float64             `json:"tax"`
	Shipping    float64             `json:"shipping"`
	Discount    float64             `json:"discount"`
	TotalAmount float64             `json:"totalAmount"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type ListQuery struct {
	Page       int
	Limit      int
	Status     string
	CustomerID string
}

type OrderListResponse struct {
	Orders []*OrderResponse `json:"orders"`
	Total  int              `json:"total"`
	Page   int              `json:"page"`
	Limit  int              `json:"limit"`
}

func mapOrderToResponse(o *domain.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ID:       item.ID,
			ItemID:   item.ItemID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Subtotal: item.Subtotal,
		})
	}
	return &OrderResponse{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		Items:       items,
		Subtotal:    o.Subtotal,
		Tax:         o.Tax,
		Shipping:    o.Shipping,
		Discount:    o.Discount,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
