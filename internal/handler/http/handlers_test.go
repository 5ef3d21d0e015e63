package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ordercore/internal/app/customers"
	"ordercore/internal/app/items"
	"ordercore/internal/app/orders"
	"ordercore/internal/domain"
	"ordercore/internal/events"
)

type capturedPublish struct {
	topic string
	env   events.Envelope
}

type fakePublisher struct {
	published []capturedPublish
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, env events.Envelope) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, capturedPublish{topic: topic, env: env})
	return nil
}

type fakeCustomerService struct {
	customers.CustomerService
	customer *customers.CustomerResponse
	cacheHit bool
	err      error
}

func (f *fakeCustomerService) Get(context.Context, string) (*customers.CustomerResponse, bool, error) {
	return f.customer, f.cacheHit, f.err
}

type fakeItemService struct {
	items.ItemService
}

type fakeOrderService struct {
	orders.OrderService
}

type testEnv struct {
	publisher *fakePublisher
	customers *fakeCustomerService
	router    http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		publisher: &fakePublisher{},
		customers: &fakeCustomerService{},
	}
	logger := zap.NewNop()
	env.router = NewRouter(Handlers{
		Customers: NewCustomerHandler(env.publisher, env.customers, logger),
		Items:     NewItemHandler(env.publisher, &fakeItemService{}, logger),
		Orders:    NewOrderHandler(env.publisher, &fakeOrderService{}, logger),
		Health:    NewHealthHandler(nil, nil, nil, nil),
		Realtime:  http.NotFoundHandler(),
	})
	return env
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestCustomerCreate(t *testing.T) {
	t.Parallel()

	t.Run("valid request is accepted and published", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		rec, resp := doJSON(t, env.router, http.MethodPost, "/api/customers",
			map[string]string{"name": "Ada", "email": "ada@example.com"},
			map[string]string{"X-Tenant-ID": "tenant-1", "X-User-ID": "user-1"})

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.True(t, resp.Success)

		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		assert.NotEmpty(t, data["id"])
		assert.NotEmpty(t, data["correlationId"])

		require.Len(t, env.publisher.published, 1)
		published := env.publisher.published[0]
		assert.Equal(t, events.TopicCustomerEvents, published.topic)
		assert.Equal(t, events.CustomerCreateRequested, published.env.EventType)
		assert.Equal(t, data["id"], published.env.Metadata.PartitionKey,
			"the pre-assigned entity id keys the message")
		assert.Equal(t, data["correlationId"], published.env.Metadata.CorrelationID)
		assert.Equal(t, "tenant-1", published.env.Metadata.TenantID)
		assert.Equal(t, "user-1", published.env.Metadata.UserID)
		assert.Equal(t, events.SourceAPI, published.env.Metadata.Source)
	})

	t.Run("missing fields produce field errors", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		rec, resp := doJSON(t, env.router, http.MethodPost, "/api/customers",
			map[string]string{"email": "not-an-email"}, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Errors, "name is required")
		assert.Contains(t, resp.Errors, "email is malformed")
		assert.Empty(t, env.publisher.published, "invalid requests never reach the broker")
	})

	t.Run("broker failure yields 503", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.publisher.err = errors.New("kafka down")
		rec, resp := doJSON(t, env.router, http.MethodPost, "/api/customers",
			map[string]string{"name": "Ada", "email": "ada@example.com"}, nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.False(t, resp.Success)
	})
}

func TestCustomerGet(t *testing.T) {
	t.Parallel()

	t.Run("cache hit is reported in read metadata", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.customers.customer = &customers.CustomerResponse{ID: "c-1", Name: "Ada"}
		env.customers.cacheHit = true

		rec, resp := doJSON(t, env.router, http.MethodGet, "/api/customers/c-1", nil, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, resp.Metadata)
		assert.True(t, resp.Metadata.CacheHit)
		assert.Equal(t, "cache", resp.Metadata.Source)
		assert.NotEmpty(t, resp.Metadata.ResponseTime)
	})

	t.Run("database read is reported as such", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.customers.customer = &customers.CustomerResponse{ID: "c-1", Name: "Ada"}

		rec, resp := doJSON(t, env.router, http.MethodGet, "/api/customers/c-1", nil, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, resp.Metadata)
		assert.False(t, resp.Metadata.CacheHit)
		assert.Equal(t, "database", resp.Metadata.Source)
	})

	t.Run("unknown customer is 404 with database-sourced metadata", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.customers.err = domain.ErrCustomerNotFound

		rec, resp := doJSON(t, env.router, http.MethodGet, "/api/customers/nope", nil, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Metadata, "the not-found path reports read metadata too")
		assert.False(t, resp.Metadata.CacheHit)
		assert.Equal(t, "database", resp.Metadata.Source)
		assert.NotEmpty(t, resp.Metadata.ResponseTime)
	})
}

func TestItemAdjustQuantity(t *testing.T) {
	t.Parallel()

	t.Run("non-zero delta is accepted", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		rec, _ := doJSON(t, env.router, http.MethodPatch, "/api/items/i-1/quantity",
			map[string]int{"delta": -3}, nil)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		require.Len(t, env.publisher.published, 1)
		published := env.publisher.published[0]
		assert.Equal(t, events.TopicItemEvents, published.topic)
		assert.Equal(t, events.ItemQuantityAdjustRequested, published.env.EventType)
		assert.Equal(t, "i-1", published.env.Metadata.PartitionKey)

		payload, err := events.DecodePayload[events.AdjustItemQuantityPayload](published.env)
		require.NoError(t, err)
		assert.Equal(t, -3, payload.Delta)
	})

	t.Run("zero delta is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		rec, resp := doJSON(t, env.router, http.MethodPatch, "/api/items/i-1/quantity",
			map[string]int{"delta": 0}, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, resp.Errors, "delta must be non-zero")
	})
}

func TestOrderEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("cancel publishes keyed by order id", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		rec, _ := doJSON(t, env.router, http.MethodPost, "/api/orders/o-1/cancel", nil, nil)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		require.Len(t, env.publisher.published, 1)
		published := env.publisher.published[0]
		assert.Equal(t, events.TopicOrderEvents, published.topic)
		assert.Equal(t, events.OrderCancelRequested, published.env.EventType)
		assert.Equal(t, "o-1", published.env.Metadata.PartitionKey)
	})

	t.Run("update with unknown status is rejected up front", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		rec, resp := doJSON(t, env.router, http.MethodPut, "/api/orders/o-1",
			map[string]string{"status": "TELEPORTED"}, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, resp.Errors, "unknown order status TELEPORTED")
		assert.Empty(t, env.publisher.published)
	})

	t.Run("create without items lists every violation", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		rec, resp := doJSON(t, env.router, http.MethodPost, "/api/orders",
			map[string]any{"discount": -2}, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, resp.Errors, "customerId is required")
		assert.Contains(t, resp.Errors, "items must contain at least one entry")
		assert.Contains(t, resp.Errors, "discount must not be negative")
	})
}
