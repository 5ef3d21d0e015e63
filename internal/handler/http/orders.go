package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ordercore/internal/app/orders"
	"ordercore/internal/domain"
	"ordercore/internal/events"
)

type OrderHandler struct {
	publisher Publisher
	service   orders.OrderService
	logger    *zap.Logger
}

func NewOrderHandler(p Publisher, s orders.OrderService, l *zap.Logger) *OrderHandler {
	return &OrderHandler{publisher: p, service: s, logger: l}
}

type createOrderRequest struct {
	CustomerID string                    `json:"customerId"`
	Items      []events.OrderItemRequest `json:"items"`
	Discount   float64                   `json:"discount"`
}

func (req createOrderRequest) validate() []string {
	var errs []string
	if strings.TrimSpace(req.CustomerID) == "" {
		errs = append(errs, "customerId is required")
	}
	if len(req.Items) == 0 {
		errs = append(errs, "items must contain at least one entry")
	}
	for i, line := range req.Items {
		if strings.TrimSpace(line.ItemID) == "" {
			errs = append(errs, fmt.Sprintf("items[%d].itemId is required", i))
		}
		if line.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("items[%d].quantity must be positive", i))
		}
	}
	if req.Discount < 0 {
		errs = append(errs, "discount must not be negative")
	}
	return errs
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationErrors(w, []string{"invalid request body"})
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	payload := events.CreateOrderPayload{
		ID:         uuid.NewString(),
		TenantID:   r.Header.Get("X-Tenant-ID"),
		CustomerID: req.CustomerID,
		Items:      req.Items,
		Discount:   req.Discount,
	}
	correlationID, err := publishRequest(r.Context(), h.publisher,
		events.OrderCreateRequested, payload, requestMetadata(r, payload.ID))
	if err != nil {
		h.logger.Error("Failed to publish order create event", zap.Error(err))
		writeServiceUnavailable(w, "event pipeline unavailable")
		return
	}
	writeAccepted(w, payload.ID, correlationID, "order creation accepted")
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")

	var payload events.UpdateOrderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeValidationErrors(w, []string{"invalid request body"})
		return
	}
	payload.ID = id
	if payload.Status != nil && !domain.IsValidStatus(domain.OrderStatus(*payload.Status)) {
		writeValidationErrors(w, []string{"unknown order status " + *payload.Status})
		return
	}

	correlationID, err := publishRequest(r.Context(), h.publisher,
		events.OrderUpdateRequested, payload, requestMetadata(r, id))
	if err != nil {
		h.logger.Error("Failed to publish order update event", zap.Error(err))
		writeServiceUnavailable(w, "event pipeline unavailable")
		return
	}
	writeAccepted(w, id, correlationID, "order update accepted")
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")

	correlationID, err := publishRequest(r.Context(), h.publisher,
		events.OrderCancelRequested, events.CancelOrderPayload{ID: id}, requestMetadata(r, id))
	if err != nil {
		h.logger.Error("Failed to publish order cancel event", zap.Error(err))
		writeServiceUnavailable(w, "event pipeline unavailable")
		return
	}
	writeAccepted(w, id, correlationID, "order cancellation accepted")
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id := chi.URLParam(r, "orderID")

	res, cacheHit, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeNotFound(w, "order not found", started)
			return
		}
		h.logger.Error("Failed to get order", zap.String("order_id", id), zap.Error(err))
		writeInternalError(w)
		return
	}
	writeRead(w, res, cacheHit, started)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	res, cacheHit, err := h.service.List(r.Context(), orders.ListQuery{
		Page:       queryInt(r, "page", 1),
		Limit:      queryInt(r, "limit", 20),
		Status:     r.URL.Query().Get("status"),
		CustomerID: r.URL.Query().Get("customerId"),
	})
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		writeInternalError(w)
		return
	}
	writeRead(w, res, cacheHit, started)
}
