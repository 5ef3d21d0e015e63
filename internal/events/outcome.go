package events

import (
	"encoding/json"
	"fmt"
)

// OriginalEvent identifies the request event an outcome answers.
type OriginalEvent struct {
	EventID       string    `json:"eventId"`
	EventType     EventType `json:"eventType"`
	CorrelationID string    `json:"correlationId"`
}

// Outcome is the payload of every event published to an outcome topic:
// exactly one per recognized request event, success or failure.
type Outcome struct {
	Success       bool            `json:"success"`
	Data          json.RawMessage `json:"data,omitempty"`
	Error         string          `json:"error,omitempty"`
	OriginalEvent OriginalEvent   `json:"originalEvent"`
}

// NewOutcomeEnvelope builds the outcome envelope answering a request envelope.
// The correlation id and partition key are carried over so callers can join
// the pair and per-entity ordering holds on the outcome topic too.
func NewOutcomeEnvelope(request Envelope, data any, opErr error) (Envelope, error) {
	outcomeType, ok := OutcomeTypeFor(request.EventType, opErr == nil)
	if !ok {
		return Envelope{}, fmt.Errorf("no outcome type paired with %q", request.EventType)
	}

	outcome := Outcome{
		Success: opErr == nil,
		OriginalEvent: OriginalEvent{
			EventID:       request.EventID,
			EventType:     request.EventType,
			CorrelationID: request.Metadata.CorrelationID,
		},
	}
	if opErr != nil {
		outcome.Error = opErr.Error()
	} else if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Envelope{}, fmt.Errorf("failed to marshal outcome data: %w", err)
		}
		outcome.Data = raw
	}

	meta := Metadata{
		CorrelationID: request.Metadata.CorrelationID,
		PartitionKey:  request.Metadata.PartitionKey,
		UserID:        request.Metadata.UserID,
		TenantID:      request.Metadata.TenantID,
		Source:        SourceProcessor,
	}
	return NewEnvelope(outcomeType, outcome, meta)
}
