package processor

import (
	"context"
	"errors"
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

type publishedEvent struct {
	topic string
	env   events.Envelope
}

type fakeBroker struct {
	published []publishedEvent
	handlers  map[string]func(ctx context.Context, env events.Envelope) error
	consuming bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]func(ctx context.Context, env events.Envelope) error)}
}

func (b *fakeBroker) Publish(_ context.Context, topic string, env events.Envelope) error {
	b.published = append(b.published, publishedEvent{topic: topic, env: env})
	return nil
}

func (b *fakeBroker) Subscribe(topic string, handler func(ctx context.Context, env events.Envelope) error) error {
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) StartConsuming(context.Context) error {
	b.consuming = true
	return nil
}

type invalidation struct {
	entityType string
	id         string
}

// fakeInvalidator records invalidations and how many outcome events had been
// published when each one landed, so ordering is assertable.
type fakeInvalidator struct {
	broker *fakeBroker
	calls  []invalidation
	before []int
}

func (f *fakeInvalidator) InvalidateEntity(_ context.Context, entityType, id string) {
	f.calls = append(f.calls, invalidation{entityType: entityType, id: id})
	f.before = append(f.before, len(f.broker.published))
}

type fakeCustomerService struct {
	customers.CustomerService
	createErr      error
	created        []events.CreateCustomerPayload
	panicOn        bool
	deletedItemIDs []string
	deleteErr      error
}

func (f *fakeCustomerService) Delete(_ context.Context, id string) ([]string, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return f.deletedItemIDs, nil
}

func (f *fakeCustomerService) Create(_ context.Context, payload events.CreateCustomerPayload) (*customers.CustomerResponse, error) {
	if f.panicOn {
		panic("boom")
	}
	f.created = append(f.created, payload)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &customers.CustomerResponse{ID: payload.ID, Name: payload.Name, Email: payload.Email}, nil
}

type fakeItemService struct {
	items.ItemService
	adjustErr error
}

func (f *fakeItemService) AdjustQuantity(_ context.Context, payload events.AdjustItemQuantityPayload) (*items.ItemResponse, error) {
	if f.adjustErr != nil {
		return nil, f.adjustErr
	}
	return &items.ItemResponse{ID: payload.ID, Quantity: 5 + payload.Delta}, nil
}

type fakeOrderService struct {
	orders.OrderService
	cancelResult *orders.OrderResponse
	cancelErr    error
}

func (f *fakeOrderService) Cancel(_ context.Context, id string) (*orders.OrderResponse, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return f.cancelResult, nil
}

type fixture struct {
	broker      *fakeBroker
	invalidator *fakeInvalidator
	customers   *fakeCustomerService
	items       *fakeItemService
	orders      *fakeOrderService
	processor   *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	broker := newFakeBroker()
	f := &fixture{
		broker:      broker,
		invalidator: &fakeInvalidator{broker: broker},
		customers:   &fakeCustomerService{},
		items:       &fakeItemService{},
		orders:      &fakeOrderService{},
	}
	f.processor = New(broker, f.invalidator, f.customers, f.items, f.orders, zap.NewNop())
	require.NoError(t, f.processor.Start(context.Background()))
	f.broker.published = nil
	return f
}

func requestEnvelope(t *testing.T, eventType events.EventType, payload any) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope(eventType, payload, events.Metadata{
		CorrelationID: "corr-1",
		PartitionKey:  "entity-1",
		TenantID:      "tenant-1",
		Source:        events.SourceAPI,
	})
	require.NoError(t, err)
	return env
}

func decodeOutcome(t *testing.T, env events.Envelope) events.Outcome {
	t.Helper()
	outcome, err := events.DecodePayload[events.Outcome](env)
	require.NoError(t, err)
	return outcome
}

func TestProcessorStart(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	assert.True(t, f.processor.Running())
	assert.True(t, f.broker.consuming)
	for _, topic := range events.RequestTopics() {
		assert.Contains(t, f.broker.handlers, topic)
	}
	for _, topic := range events.OutcomeTopics() {
		assert.NotContains(t, f.broker.handlers, topic)
	}

	f.processor.Stop()
	assert.False(t, f.processor.Running())
}

func TestProcessorSuccessOutcome(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	env := requestEnvelope(t, events.CustomerCreateRequested, events.CreateCustomerPayload{
		ID: "c-1", Name: "Ada", Email: "ada@example.com",
	})
	require.NoError(t, f.broker.handlers[events.TopicCustomerEvents](context.Background(), env))

	require.Len(t, f.broker.published, 1)
	published := f.broker.published[0]
	assert.Equal(t, events.TopicCustomerUpdates, published.topic)
	assert.Equal(t, events.CustomerCreateSuccess, published.env.EventType)
	assert.Equal(t, "corr-1", published.env.Metadata.CorrelationID)

	outcome := decodeOutcome(t, published.env)
	assert.True(t, outcome.Success)
	assert.Equal(t, env.EventID, outcome.OriginalEvent.EventID)

	require.Len(t, f.invalidator.calls, 1)
	assert.Equal(t, invalidation{"customer", "c-1"}, f.invalidator.calls[0])
}

func TestProcessorFailureOutcome(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.customers.createErr = domain.ErrDuplicateEmail

	env := requestEnvelope(t, events.CustomerCreateRequested, events.CreateCustomerPayload{
		ID: "c-1", Name: "Ada", Email: "taken@example.com",
	})
	require.NoError(t, f.broker.handlers[events.TopicCustomerEvents](context.Background(), env))

	require.Len(t, f.broker.published, 1, "a failed operation still gets exactly one outcome")
	assert.Equal(t, events.CustomerCreateFailed, f.broker.published[0].env.EventType)

	outcome := decodeOutcome(t, f.broker.published[0].env)
	assert.False(t, outcome.Success)
	assert.Equal(t, domain.ErrDuplicateEmail.Error(), outcome.Error)

	assert.Empty(t, f.invalidator.calls, "failed operations do not invalidate the cache")
}

func TestProcessorDuplicateRedelivery(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	env := requestEnvelope(t, events.CustomerCreateRequested, events.CreateCustomerPayload{
		ID: "c-1", Name: "Ada", Email: "ada@example.com",
	})
	require.NoError(t, f.broker.handlers[events.TopicCustomerEvents](context.Background(), env))

	// Redelivery of the same create hits the unique constraint.
	f.customers.createErr = domain.ErrDuplicateID
	require.NoError(t, f.broker.handlers[events.TopicCustomerEvents](context.Background(), env))

	require.Len(t, f.broker.published, 2)
	assert.Equal(t, events.CustomerCreateSuccess, f.broker.published[0].env.EventType)
	assert.Equal(t, events.CustomerCreateFailed, f.broker.published[1].env.EventType)
}

func TestProcessorUnknownEventTypeDropped(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	env := requestEnvelope(t, "CUSTOMER_EXPLODE_REQUESTED", map[string]string{"id": "c-1"})
	require.NoError(t, f.broker.handlers[events.TopicCustomerEvents](context.Background(), env))

	assert.Empty(t, f.broker.published, "unknown event types are dropped with no outcome")
	assert.Empty(t, f.invalidator.calls)
}

func TestProcessorPanicBecomesFailureOutcome(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.customers.panicOn = true

	env := requestEnvelope(t, events.CustomerCreateRequested, events.CreateCustomerPayload{
		ID: "c-1", Name: "Ada", Email: "ada@example.com",
	})
	require.NoError(t, f.broker.handlers[events.TopicCustomerEvents](context.Background(), env))

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, events.CustomerCreateFailed, f.broker.published[0].env.EventType)

	outcome := decodeOutcome(t, f.broker.published[0].env)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "internal error processing CUSTOMER_CREATE_REQUESTED")
}

func TestProcessorInvalidatesBeforePublishing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	env := requestEnvelope(t, events.ItemQuantityAdjustRequested, events.AdjustItemQuantityPayload{
		ID: "i-1", Delta: -2,
	})
	require.NoError(t, f.broker.handlers[events.TopicItemEvents](context.Background(), env))

	require.Len(t, f.invalidator.calls, 1)
	assert.Equal(t, invalidation{"item", "i-1"}, f.invalidator.calls[0])
	assert.Equal(t, 0, f.invalidator.before[0],
		"cache invalidation must land before the outcome is published")
	require.Len(t, f.broker.published, 1)
	assert.Equal(t, events.ItemQuantityAdjustSuccess, f.broker.published[0].env.EventType)
}

func TestProcessorInsufficientStockAdjustment(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.items.adjustErr = domain.ErrInsufficientStock

	env := requestEnvelope(t, events.ItemQuantityAdjustRequested, events.AdjustItemQuantityPayload{
		ID: "i-1", Delta: -99,
	})
	require.NoError(t, f.broker.handlers[events.TopicItemEvents](context.Background(), env))

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, events.TopicItemUpdates, f.broker.published[0].topic)
	assert.Equal(t, events.ItemQuantityAdjustFailed, f.broker.published[0].env.EventType)
	assert.Empty(t, f.invalidator.calls)
}

func TestProcessorCustomerDeleteInvalidatesOwnedItems(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.customers.deletedItemIDs = []string{"i-1", "i-2"}

	env := requestEnvelope(t, events.CustomerDeleteRequested, events.DeleteCustomerPayload{ID: "c-1"})
	require.NoError(t, f.broker.handlers[events.TopicCustomerEvents](context.Background(), env))

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, events.CustomerDeleteSuccess, f.broker.published[0].env.EventType)

	// The delete removed the customer's items, so each one's cache entry
	// (and the item list patterns) must be evicted alongside the customer.
	assert.ElementsMatch(t, []invalidation{
		{"customer", "c-1"}, {"item", "i-1"}, {"item", "i-2"},
	}, f.invalidator.calls)
}

func TestProcessorOrderCancelInvalidatesItems(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.orders.cancelResult = &orders.OrderResponse{
		ID:     "o-1",
		Status: string(domain.OrderStatusCancelled),
		Items: []orders.OrderItemResponse{
			{ItemID: "i-1", Quantity: 2},
			{ItemID: "i-2", Quantity: 1},
		},
	}

	env := requestEnvelope(t, events.OrderCancelRequested, events.CancelOrderPayload{ID: "o-1"})
	require.NoError(t, f.broker.handlers[events.TopicOrderEvents](context.Background(), env))

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, events.OrderCancelSuccess, f.broker.published[0].env.EventType)

	// Cancellation restores stock, so the order and every line item go stale.
	assert.ElementsMatch(t, []invalidation{
		{"order", "o-1"}, {"item", "i-1"}, {"item", "i-2"},
	}, f.invalidator.calls)
}

func TestProcessorOrderCancelRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.orders.cancelErr = errors.New("order in status SHIPPED cannot be cancelled")

	env := requestEnvelope(t, events.OrderCancelRequested, events.CancelOrderPayload{ID: "o-1"})
	require.NoError(t, f.broker.handlers[events.TopicOrderEvents](context.Background(), env))

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, events.OrderCancelFailed, f.broker.published[0].env.EventType)
	outcome := decodeOutcome(t, f.broker.published[0].env)
	assert.Contains(t, outcome.Error, "cannot be cancelled")
	assert.Empty(t, f.invalidator.calls)
}

func TestProcessorMalformedPayloadFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	env := requestEnvelope(t, events.OrderCreateRequested, "just a string")
	env.Payload = []byte(`{"items": "not-an-array"}`)
	require.NoError(t, f.broker.handlers[events.TopicOrderEvents](context.Background(), env))

	require.Len(t, f.broker.published, 1,
		"a recognized type with a bad payload is a failure of a known request")
	assert.Equal(t, events.OrderCreateFailed, f.broker.published[0].env.EventType)
}
