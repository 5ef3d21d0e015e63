package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Connection is one live client. Subscriptions are additive; delivery to a
// slow connection that has filled its send buffer prunes the connection
// rather than blocking the fan-out.
type Connection struct {
	id       string
	tenantID string
	userID   string
	ws       *websocket.Conn
	send     chan []byte
	hub      *Hub
	logger   *zap.Logger

	mu     sync.Mutex
	subs   []Subscription
	closed bool
}

func (c *Connection) addSubscription(data SubscribeData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, newSubscription(data))
}

// removeSubscription narrows the connection's filters: the named channels
// and event types are removed from every record, and records left with no
// channels are dropped.
func (c *Connection) removeSubscription(data SubscribeData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.subs[:0]
	for _, sub := range c.subs {
		for _, ch := range data.Channels {
			delete(sub.Channels, ch)
		}
		for _, t := range data.EventTypes {
			delete(sub.EventTypes, t)
		}
		if len(sub.Channels) > 0 {
			kept = append(kept, sub)
		}
	}
	c.subs = kept
}

// wants reports whether any of the connection's subscriptions match the
// outcome, honoring tenant isolation.
func (c *Connection) wants(channel, eventType, tenantID string) bool {
	if c.tenantID != "" && tenantID != "" && c.tenantID != tenantID {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		if sub.matches(channel, eventType) {
			return true
		}
	}
	return false
}

func (c *Connection) enqueue(msg ServerMessage) bool {
	raw, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal server message", zap.Error(err))
		return true
	}
	return c.enqueueRaw(raw)
}

// enqueueRaw never sends on a closed connection: a broadcast racing an
// unregister sees the closed flag under the mutex and skips the delivery.
func (c *Connection) enqueueRaw(raw []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- raw:
		return true
	default:
		return false
	}
}

// closeSend marks the connection closed and releases its writer. Idempotent,
// so racing unregister paths cannot double-close the channel.
func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Connection) readPump() {
	defer c.hub.unregister(c)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("Unexpected websocket close",
					zap.String("connection_id", c.id), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.enqueue(ServerMessage{
				Type:      ServerError,
				Data:      map[string]string{"error": "malformed message"},
				Timestamp: time.Now().UTC(),
			})
			continue
		}
		c.handleClientMessage(msg)
	}
}

func (c *Connection) handleClientMessage(msg ClientMessage) {
	switch msg.Type {
	case ClientSubscribe:
		var data SubscribeData
		if err := json.Unmarshal(msg.Data, &data); err != nil || len(data.Channels) == 0 {
			c.enqueue(ServerMessage{
				Type:      ServerError,
				Data:      map[string]string{"error": "subscribe requires at least one channel"},
				Timestamp: time.Now().UTC(),
			})
			return
		}
		c.addSubscription(data)
		c.enqueue(ServerMessage{
			Type:      ServerSubscriptionAck,
			Data:      data,
			Timestamp: time.Now().UTC(),
		})

	case ClientUnsubscribe:
		var data SubscribeData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		c.removeSubscription(data)
		c.enqueue(ServerMessage{
			Type:      ServerSubscriptionAck,
			Data:      data,
			Timestamp: time.Now().UTC(),
		})

	case ClientPing:
		c.enqueue(ServerMessage{Type: ServerPong, Timestamp: time.Now().UTC()})

	default:
		c.enqueue(ServerMessage{
			Type:      ServerError,
			Data:      map[string]string{"error": "unknown message type " + msg.Type},
			Timestamp: time.Now().UTC(),
		})
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.logger.Debug("Websocket write failed",
					zap.String("connection_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
