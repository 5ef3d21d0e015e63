package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ordercore/internal/events"
)

// Broker is the slice of the Kafka client the hub needs to consume outcome
// topics.
type Broker interface {
	Subscribe(topic string, handler func(ctx context.Context, env events.Envelope) error) error
}

// Hub fans outcome events out to every live connection whose subscriptions
// match. The per-event work is a full scan over open connections, which is
// bounded by concurrency, not entity volume.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*Connection
}

func NewHub(l *zap.Logger) *Hub {
	return &Hub{
		logger: l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*Connection),
	}
}

// Start registers the hub as a consumer of every outcome topic. The broker
// client begins delivering once consumption starts.
func (h *Hub) Start(broker Broker) error {
	for _, topic := range events.OutcomeTopics() {
		topic := topic
		err := broker.Subscribe(topic, func(ctx context.Context, env events.Envelope) error {
			h.Broadcast(topic, env)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe hub to %s: %w", topic, err)
		}
	}
	return nil
}

// ServeHTTP upgrades the request to a websocket connection, assigns it an id
// and acknowledges with the list of available channels.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &Connection{
		id:       uuid.NewString(),
		tenantID: r.URL.Query().Get("tenantId"),
		userID:   r.URL.Query().Get("userId"),
		ws:       ws,
		send:     make(chan []byte, sendBuffer),
		hub:      h,
		logger:   h.logger,
	}

	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()

	h.logger.Info("Websocket connection established",
		zap.String("connection_id", conn.id),
		zap.String("tenant_id", conn.tenantID))

	conn.enqueue(ServerMessage{
		Type: ServerConnectionAck,
		Data: map[string]any{
			"connectionId": conn.id,
			"channels":     events.OutcomeTopics(),
		},
		Timestamp: time.Now().UTC(),
	})

	go conn.writePump()
	go conn.readPump()
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	_, ok := h.conns[c.id]
	if ok {
		delete(h.conns, c.id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	c.closeSend()
	h.logger.Info("Websocket connection closed", zap.String("connection_id", c.id))
}

// Broadcast delivers one outcome event to every matching connection. A
// failed delivery prunes that connection and never aborts delivery to the
// rest.
func (h *Hub) Broadcast(channel string, env events.Envelope) {
	msg := ServerMessage{
		Type: ServerEventUpdate,
		Data: map[string]any{
			"channel":   channel,
			"eventType": env.EventType,
			"eventId":   env.EventID,
			"payload":   json.RawMessage(env.Payload),
		},
		Timestamp:     time.Now().UTC(),
		CorrelationID: env.Metadata.CorrelationID,
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal event update", zap.Error(err))
		return
	}

	h.mu.RLock()
	matched := make([]*Connection, 0)
	for _, conn := range h.conns {
		if conn.wants(channel, string(env.EventType), env.Metadata.TenantID) {
			matched = append(matched, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range matched {
		if !conn.enqueueRaw(raw) {
			h.logger.Warn("Pruning slow websocket connection",
				zap.String("connection_id", conn.id))
			h.unregister(conn)
			conn.ws.Close()
		}
	}

	if len(matched) > 0 {
		h.logger.Debug("Outcome event fanned out",
			zap.String("channel", channel),
			zap.String("event_type", string(env.EventType)),
			zap.Int("recipients", len(matched)))
	}
}

// ConnectionCount is used by the readiness endpoint.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close force-closes every live connection during shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]*Connection)
	h.mu.Unlock()

	for _, c := range conns {
		c.closeSend()
		c.ws.Close()
	}
}
