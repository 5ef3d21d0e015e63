package broadcast

import (
	"encoding/json"
	"time"
)

const (
	ClientSubscribe   = "SUBSCRIBE"
	ClientUnsubscribe = "UNSUBSCRIBE"
	ClientPing        = "PING"

	ServerConnectionAck   = "CONNECTION_ACK"
	ServerSubscriptionAck = "SUBSCRIPTION_ACK"
	ServerEventUpdate     = "EVENT_UPDATE"
	ServerError           = "ERROR"
	ServerPong            = "PONG"
)

type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type SubscribeData struct {
	EventTypes []string `json:"eventTypes,omitempty"`
	Channels   []string `json:"channels"`
}

type ServerMessage struct {
	Type          string    `json:"type"`
	Data          any       `json:"data,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// Subscription is one additive filter held by a connection: delivery
// requires a channel match and, when EventTypes is non-empty, an event type
// match. Tenant isolation is enforced per connection, not per subscription.
type Subscription struct {
	EventTypes map[string]struct{}
	Channels   map[string]struct{}
}

func newSubscription(data SubscribeData) Subscription {
	sub := Subscription{
		EventTypes: make(map[string]struct{}, len(data.EventTypes)),
		Channels:   make(map[string]struct{}, len(data.Channels)),
	}
	for _, t := range data.EventTypes {
		sub.EventTypes[t] = struct{}{}
	}
	for _, c := range data.Channels {
		sub.Channels[c] = struct{}{}
	}
	return sub
}

func (s Subscription) matches(channel, eventType string) bool {
	if _, ok := s.Channels[channel]; !ok {
		return false
	}
	if len(s.EventTypes) == 0 {
		return true
	}
	_, ok := s.EventTypes[eventType]
	return ok
}
