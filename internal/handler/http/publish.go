package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"ordercore/internal/events"
)

// Publisher is the slice of the Kafka client the write endpoints need.
type Publisher interface {
	Publish(ctx context.Context, topic string, env events.Envelope) error
}

// requestMetadata builds envelope metadata for one incoming write: a fresh
// correlation id, the affected entity id as partition key, and caller
// identity from headers.
func requestMetadata(r *http.Request, partitionKey string) events.Metadata {
	return events.Metadata{
		CorrelationID: uuid.NewString(),
		PartitionKey:  partitionKey,
		UserID:        r.Header.Get("X-User-ID"),
		TenantID:      r.Header.Get("X-Tenant-ID"),
		Source:        events.SourceAPI,
	}
}

// publishRequest wraps the payload and publishes it to the event type's
// request topic, returning the correlation id the caller joins on.
func publishRequest(ctx context.Context, p Publisher, eventType events.EventType, payload any, meta events.Metadata) (string, error) {
	topic, err := events.RequestTopicFor(eventType)
	if err != nil {
		return "", err
	}
	env, err := events.NewEnvelope(eventType, payload, meta)
	if err != nil {
		return "", err
	}
	if err := p.Publish(ctx, topic, env); err != nil {
		return "", err
	}
	return meta.CorrelationID, nil
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}
