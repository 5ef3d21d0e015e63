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

	"ordercore/internal/app/customers"
	"ordercore/internal/domain"
	"ordercore/internal/events"
)

type CustomerHandler struct {
	publisher Publisher
	service   customers.CustomerService
	logger    *zap.Logger
}

func NewCustomerHandler(p Publisher, s customers.CustomerService, l *zap.Logger) *CustomerHandler {
	return &CustomerHandler{publisher: p, service: s, logger: l}
}

type createCustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (req createCustomerRequest) validate() []string {
	var errs []string
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		errs = append(errs, "email is required")
	} else if !strings.Contains(req.Email, "@") {
		errs = append(errs, "email is malformed")
	}
	return errs
}

// Create validates the request, pre-assigns the customer id and publishes a
// create event. The caller gets a 202 and subscribes for the outcome.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationErrors(w, []string{"invalid request body"})
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	payload := events.CreateCustomerPayload{
		ID:       uuid.NewString(),
		TenantID: r.Header.Get("X-Tenant-ID"),
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
	}
	correlationID, err := publishRequest(r.Context(), h.publisher,
		events.CustomerCreateRequested, payload, requestMetadata(r, payload.ID))
	if err != nil {
		h.logger.Error("Failed to publish customer create event", zap.Error(err))
		writeServiceUnavailable(w, "event pipeline unavailable")
		return
	}
	writeAccepted(w, payload.ID, correlationID, "customer creation accepted")
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "customerID")

	var payload events.UpdateCustomerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeValidationErrors(w, []string{"invalid request body"})
		return
	}
	payload.ID = id
	if payload.Email != nil && !strings.Contains(*payload.Email, "@") {
		writeValidationErrors(w, []string{"email is malformed"})
		return
	}

	correlationID, err := publishRequest(r.Context(), h.publisher,
		events.CustomerUpdateRequested, payload, requestMetadata(r, id))
	if err != nil {
		h.logger.Error("Failed to publish customer update event", zap.Error(err))
		writeServiceUnavailable(w, "event pipeline unavailable")
		return
	}
	writeAccepted(w, id, correlationID, "customer update accepted")
}

func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "customerID")

	correlationID, err := publishRequest(r.Context(), h.publisher,
		events.CustomerDeleteRequested, events.DeleteCustomerPayload{ID: id}, requestMetadata(r, id))
	if err != nil {
		h.logger.Error("Failed to publish customer delete event", zap.Error(err))
		writeServiceUnavailable(w, "event pipeline unavailable")
		return
	}
	writeAccepted(w, id, correlationID, "customer deletion accepted")
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id := chi.URLParam(r, "customerID")

	res, cacheHit, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			writeNotFound(w, "customer not found", started)
			return
		}
		h.logger.Error("Failed to get customer", zap.String("customer_id", id), zap.Error(err))
		writeInternalError(w)
		return
	}
	writeRead(w, res, cacheHit, started)
}

func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	res, cacheHit, err := h.service.List(r.Context(), customers.ListQuery{
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 20),
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		h.logger.Error("Failed to list customers", zap.Error(err))
		writeInternalError(w)
		return
	}
	writeRead(w, res, cacheHit, started)
}
