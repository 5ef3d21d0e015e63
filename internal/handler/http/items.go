package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ordercore/internal/app/items"
	"ordercore/internal/domain"
	"ordercore/internal/events"
)

type ItemHandler struct {
	publisher Publisher
	service   items.ItemService
	logger    *zap.Logger
}

func NewItemHandler(p Publisher, s items.ItemService, l *zap.Logger) *ItemHandler {
	return &ItemHandler{publisher: p, service: s, logger: l}
}

type createItemRequest struct {
	CustomerID string  `json:"customerId"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

func (req createItemRequest) validate() []string {
	var errs []string
	if strings.TrimSpace(req.CustomerID) == "" {
		errs = append(errs, "customerId is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, "name is required")
	}
	if req.Price < 0 {
		errs = append(errs, "price must not be negative")
	}
	if req.Quantity < 0 {
		errs = append(errs, "quantity must not be negative")
	}
	return errs
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationErrors(w, []string{"invalid request body"})
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	payload := events.CreateItemPayload{
		ID:         uuid.NewString(),
		TenantID:   r.Header.Get("X-Tenant-ID"),
		CustomerID: req.CustomerID,
		Name:       req.Name,
		Category:   req.Category,
		Price:      req.Price,
		Quantity:   req.Quantity,
	}
	correlationID, err := publishRequest(r.Context(), h.publisher,
		events.ItemCreateRequested, payload, requestMetadata(r, payload.ID))
	if err != nil {
		h.logger.Error("Failed to publish item create event", zap.Error(err))
		writeServiceUnavailable(w, "event pipeline unavailable")
		return
	}
	writeAccepted(w, payload.ID, correlationID, "item creation accepted")
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemID")

	var payload events.UpdateItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeValidationErrors(w, []string{"invalid request body"})
		return
	}
	payload.ID = id
	if payload.Price != nil && *payload.Price < 0 {
		writeValidationErrors(w, []string{"price must not be negative"})
		return
	}

	correlationID, err := publishRequest(r.Context(), h.publisher,
		events.ItemUpdateRequested, payload, requestMetadata(r, id))
	if err != nil {
		h.logger.Error("Failed to publish item update event", zap.Error(err))
		writeServiceUnavailable(w, "event pipeline unavailable")
		return
	}
	writeAccepted(w, id, correlationID, "item update accepted")
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemID")

	correlationID, err := publishRequest(r.Context(), h.publisher,
		events.ItemDeleteRequested, events.DeleteItemPayload{ID: id}, requestMetadata(r, id))
	if err != nil {
		h.logger.Error("Failed to publish item delete event", zap.Error(err))
		writeServiceUnavailable(w, "event pipeline unavailable")
		return
	}
	writeAccepted(w, id, correlationID, "item deletion accepted")
}

type adjustQuantityRequest struct {
	Delta int `json:"delta"`
}

// AdjustQuantity publishes a relative stock change. Keyed by item id, so two
// rapid adjustments to the same item are applied in publish order.
func (h *ItemHandler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemID")

	var req adjustQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationErrors(w, []string{"invalid request body"})
		return
	}
	if req.Delta == 0 {
		writeValidationErrors(w, []string{"delta must be non-zero"})
		return
	}

	payload := events.AdjustItemQuantityPayload{ID: id, Delta: req.Delta}
	correlationID, err := publishRequest(r.Context(), h.publisher,
		events.ItemQuantityAdjustRequested, payload, requestMetadata(r, id))
	if err != nil {
		h.logger.Error("Failed to publish item quantity adjust event", zap.Error(err))
		writeServiceUnavailable(w, "event pipeline unavailable")
		return
	}
	writeAccepted(w, id, correlationID, "quantity adjustment accepted")
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id := chi.URLParam(r, "itemID")

	res, cacheHit, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			writeNotFound(w, "item not found", started)
			return
		}
		h.logger.Error("Failed to get item", zap.String("item_id", id), zap.Error(err))
		writeInternalError(w)
		return
	}
	writeRead(w, res, cacheHit, started)
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	res, cacheHit, err := h.service.List(r.Context(), items.ListQuery{
		Page:       queryInt(r, "page", 1),
		Limit:      queryInt(r, "limit", 20),
		Search:     r.URL.Query().Get("search"),
		Category:   r.URL.Query().Get("category"),
		CustomerID: r.URL.Query().Get("customerId"),
	})
	if err != nil {
		h.logger.Error("Failed to list items", zap.Error(err))
		writeInternalError(w)
		return
	}
	writeRead(w, res, cacheHit, started)
}
