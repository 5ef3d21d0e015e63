package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeTypeFor(t *testing.T) {
	t.Parallel()

	t.Run("every request type has both outcome types", func(t *testing.T) {
		t.Parallel()
		requests := []EventType{
			CustomerCreateRequested, CustomerUpdateRequested, CustomerDeleteRequested,
			ItemCreateRequested, ItemUpdateRequested, ItemDeleteRequested, ItemQuantityAdjustRequested,
			OrderCreateRequested, OrderUpdateRequested, OrderCancelRequested,
		}
		seen := make(map[EventType]bool)
		for _, req := range requests {
			success, ok := OutcomeTypeFor(req, true)
			require.True(t, ok, "%s has no success outcome", req)
			failure, ok := OutcomeTypeFor(req, false)
			require.True(t, ok, "%s has no failure outcome", req)

			assert.NotEqual(t, success, failure)
			assert.False(t, seen[success], "outcome %s paired with two requests", success)
			assert.False(t, seen[failure], "outcome %s paired with two requests", failure)
			seen[success] = true
			seen[failure] = true
		}
	})

	t.Run("outcome types are not request types", func(t *testing.T) {
		t.Parallel()
		_, ok := OutcomeTypeFor(OrderCreateSuccess, true)
		assert.False(t, ok)
		_, ok = OutcomeTypeFor("SOMETHING_ELSE", true)
		assert.False(t, ok)
	})
}

func TestTopicPairing(t *testing.T) {
	t.Parallel()

	for _, requestTopic := range RequestTopics() {
		outcomeTopic, err := OutcomeTopicFor(requestTopic)
		require.NoError(t, err)
		assert.Contains(t, OutcomeTopics(), outcomeTopic)
	}

	_, err := OutcomeTopicFor(TopicOrderUpdates)
	assert.Error(t, err, "outcome topics have no further pairing")

	assert.Len(t, AllTopics(), len(RequestTopics())+len(OutcomeTopics()))
}

func TestRequestTopicFor(t *testing.T) {
	t.Parallel()

	topic, err := RequestTopicFor(ItemQuantityAdjustRequested)
	require.NoError(t, err)
	assert.Equal(t, TopicItemEvents, topic)

	topic, err = RequestTopicFor(OrderCancelRequested)
	require.NoError(t, err)
	assert.Equal(t, TopicOrderEvents, topic)

	_, err = RequestTopicFor(OrderCancelSuccess)
	assert.Error(t, err)
}

func TestEnvelopeKey(t *testing.T) {
	t.Parallel()

	env, err := NewEnvelope(CustomerCreateRequested, CreateCustomerPayload{ID: "c-1", Name: "Ada", Email: "ada@example.com"},
		Metadata{CorrelationID: "corr-1", PartitionKey: "c-1", Source: SourceAPI})
	require.NoError(t, err)
	assert.Equal(t, "c-1", env.Key())
	assert.NotEmpty(t, env.EventID)

	env.Metadata.PartitionKey = ""
	assert.Equal(t, env.EventID, env.Key(), "without a partition key the event id is the key")
}

func TestDecodePayload(t *testing.T) {
	t.Parallel()

	delta := -3
	env, err := NewEnvelope(ItemQuantityAdjustRequested,
		AdjustItemQuantityPayload{ID: "i-1", Delta: delta},
		Metadata{CorrelationID: "corr-2", PartitionKey: "i-1", Source: SourceAPI})
	require.NoError(t, err)

	decoded, err := DecodePayload[AdjustItemQuantityPayload](env)
	require.NoError(t, err)
	assert.Equal(t, "i-1", decoded.ID)
	assert.Equal(t, delta, decoded.Delta)

	env.Payload = []byte(`{not json`)
	_, err = DecodePayload[AdjustItemQuantityPayload](env)
	assert.Error(t, err)
}

func TestNewOutcomeEnvelope(t *testing.T) {
	t.Parallel()

	request, err := NewEnvelope(OrderCreateRequested,
		CreateOrderPayload{ID: "o-1", CustomerID: "c-1"},
		Metadata{CorrelationID: "corr-3", PartitionKey: "o-1", TenantID: "t-1", UserID: "u-1", Source: SourceAPI})
	require.NoError(t, err)

	t.Run("success outcome carries data and correlation", func(t *testing.T) {
		t.Parallel()
		env, err := NewOutcomeEnvelope(request, map[string]string{"id": "o-1"}, nil)
		require.NoError(t, err)

		assert.Equal(t, OrderCreateSuccess, env.EventType)
		assert.Equal(t, "corr-3", env.Metadata.CorrelationID)
		assert.Equal(t, "o-1", env.Metadata.PartitionKey)
		assert.Equal(t, "t-1", env.Metadata.TenantID)
		assert.Equal(t, SourceProcessor, env.Metadata.Source)
		assert.NotEqual(t, request.EventID, env.EventID)

		outcome, err := DecodePayload[Outcome](env)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Empty(t, outcome.Error)
		assert.JSONEq(t, `{"id":"o-1"}`, string(outcome.Data))
		assert.Equal(t, request.EventID, outcome.OriginalEvent.EventID)
		assert.Equal(t, OrderCreateRequested, outcome.OriginalEvent.EventType)
		assert.Equal(t, "corr-3", outcome.OriginalEvent.CorrelationID)
	})

	t.Run("failure outcome carries the error and no data", func(t *testing.T) {
		t.Parallel()
		env, err := NewOutcomeEnvelope(request, nil, errors.New("insufficient stock"))
		require.NoError(t, err)

		assert.Equal(t, OrderCreateFailed, env.EventType)
		outcome, err := DecodePayload[Outcome](env)
		require.NoError(t, err)
		assert.False(t, outcome.Success)
		assert.Equal(t, "insufficient stock", outcome.Error)
		assert.Empty(t, outcome.Data)
	})

	t.Run("non-request envelope is rejected", func(t *testing.T) {
		t.Parallel()
		bad := request
		bad.EventType = OrderCreateSuccess
		_, err := NewOutcomeEnvelope(bad, nil, nil)
		assert.Error(t, err)
	})
}
