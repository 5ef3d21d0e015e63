package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Source string

const (
	SourceAPI         Source = "API"
	SourceProcessor   Source = "PROCESSOR"
	SourceBroadcaster Source = "BROADCASTER"
)

// Metadata carries correlation context across every hop of the pipeline.
// CorrelationID is stable across a request/outcome pair and is the join key
// callers use to match an "accepted" acknowledgment to its eventual outcome.
// PartitionKey is the affected entity's id; the broker client uses it as the
// message key so same-entity events land on the same partition in order.
type Metadata struct {
	CorrelationID string `json:"correlationId"`
	PartitionKey  string `json:"partitionKey,omitempty"`
	UserID        string `json:"userId,omitempty"`
	TenantID      string `json:"tenantId,omitempty"`
	Source        Source `json:"source"`
	RetryCount    int    `json:"retryCount,omitempty"`
}

// Envelope is the message shape every event on the broker is wrapped in.
// EventID is globally unique per publish and never mutated after creation.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType EventType       `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Metadata  Metadata        `json:"metadata"`
}

// NewEnvelope wraps a typed payload into an envelope with a fresh event id.
func NewEnvelope(eventType EventType, payload any, meta Metadata) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
		Metadata:  meta,
	}, nil
}

// Key returns the Kafka message key for the envelope: the partition key when
// the producer set one, otherwise the event id.
func (e Envelope) Key() string {
	if e.Metadata.PartitionKey != "" {
		return e.Metadata.PartitionKey
	}
	return e.EventID
}

// DecodePayload unmarshals the envelope payload into the event type's struct.
func DecodePayload[T any](e Envelope) (T, error) {
	var v T
	if err := json.Unmarshal(e.Payload, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s payload: %w", e.EventType, err)
	}
	return v, nil
}
