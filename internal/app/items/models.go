package items

import (
	"time"

	"ordercore/internal/domain"
)

type ItemResponse struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	Name       string    `json:"name"`
	Category   string    `json:"category,omitempty"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type ListQuery struct {
	Page       int
	Limit      int
	Search     string
	Category   string
	CustomerID string
}

type ItemListResponse struct {
	Items []*ItemResponse `json:"items"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func mapItemToResponse(i *domain.CustomerItem) *ItemResponse {
	return &ItemResponse{
		ID:         i.ID,
		CustomerID: i.CustomerID,
		Name:       i.Name,
		Category:   i.Category,
		Price:      i.Price,
		Quantity:   i.Quantity,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}
