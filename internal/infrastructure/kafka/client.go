package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"ordercore/internal/events"
)

// MessageHandler is invoked once per consumed message. A handler error is
// logged and the poll loop advances to the next message; at-least-once
// delivery means redelivery only happens via the broker on crash.
type MessageHandler = func(ctx context.Context, env events.Envelope) error

// Client wraps producer and consumer-group sessions over Kafka. One client
// per process: the processor subscribes the request topics, the broadcaster
// the outcome topics, all within the same consumer group.
type Client struct {
	brokers []string
	groupID string
	logger  *zap.Logger

	writer *kafka.Writer

	mu        sync.Mutex
	handlers  map[string]MessageHandler
	readers   []*kafka.Reader
	consuming bool
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewClient(brokers []string, groupID string, l *zap.Logger) *Client {
	return &Client{
		brokers:  brokers,
		groupID:  groupID,
		logger:   l,
		handlers: make(map[string]MessageHandler),
	}
}

// Connect establishes the producer session with bounded exponential backoff
// and provisions all required topics. Exhausting the retries is fatal to the
// caller.
func (c *Client) Connect(ctx context.Context, maxRetries int, backoff time.Duration) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := c.ensureTopics(ctx); err != nil {
			lastErr = err
			c.logger.Warn("Failed to connect to Kafka",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxRetries),
				zap.Duration("retry_in", backoff),
				zap.Error(err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
			continue
		}

		c.writer = &kafka.Writer{
			Addr:         kafka.TCP(c.brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Logger:       zap.NewStdLog(c.logger.With(zap.String("kafka_component", "producer"))),
		}

		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()

		c.logger.Info("Connected to Kafka and provisioned topics",
			zap.Strings("brokers", c.brokers),
			zap.Strings("topics", events.AllTopics()))
		return nil
	}
	return fmt.Errorf("failed to connect to Kafka after %d attempts: %w", maxRetries, lastErr)
}

// ensureTopics creates every request and outcome topic through the cluster
// controller, ignoring "already exists".
func (c *Client) ensureTopics(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", c.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial broker %s: %w", c.brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to resolve cluster controller: %w", err)
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial controller: %w", err)
	}
	defer controllerConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(events.AllTopics()))
	for _, topic := range events.AllTopics() {
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		})
	}
	if err := controllerConn.CreateTopics(configs...); err != nil &&
		!errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	return nil
}

// Publish writes one envelope to the topic and awaits the broker ack. The
// message key is the envelope's partition key so same-entity events route to
// the same partition, preserving per-entity ordering. Failures propagate to
// the caller.
func (c *Client) Publish(ctx context.Context, topic string, env events.Envelope) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return errors.New("kafka client is not connected")
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope %s: %w", env.EventID, err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(env.Key()),
		Value: raw,
	}
	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to produce message to Kafka topic",
			zap.String("topic", topic),
			zap.String("event_id", env.EventID),
			zap.String("event_type", string(env.EventType)),
			zap.Error(err))
		return fmt.Errorf("failed to produce message: %w", err)
	}
	c.logger.Debug("Produced message to topic",
		zap.String("topic", topic),
		zap.String("event_id", env.EventID),
		zap.String("event_type", string(env.EventType)))
	return nil
}

// Subscribe registers the handler invoked for every message consumed from the
// topic. Must be called before StartConsuming.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consuming {
		return fmt.Errorf("cannot subscribe to %s: consumption already started", topic)
	}
	if _, exists := c.handlers[topic]; exists {
		return fmt.Errorf("handler already registered for topic %s", topic)
	}
	c.handlers[topic] = handler
	return nil
}

// StartConsuming begins one poll loop per subscribed topic. Calling it twice
// is a warn-level no-op.
func (c *Client) StartConsuming(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consuming {
		c.logger.Warn("StartConsuming called twice, ignoring")
		return nil
	}
	if !c.connected {
		return errors.New("kafka client is not connected")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	for topic, handler := range c.handlers {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.brokers,
			Topic:    topic,
			GroupID:  c.groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
			Logger:   zap.NewStdLog(c.logger.With(zap.String("kafka_component", "consumer"))),
		})
		c.readers = append(c.readers, reader)

		c.wg.Add(1)
		go c.consumeLoop(loopCtx, reader, topic, handler)

		c.logger.Info("Kafka consumer started",
			zap.String("topic", topic),
			zap.String("group_id", c.groupID))
	}

	c.consuming = true
	return nil
}

func (c *Client) consumeLoop(ctx context.Context, reader *kafka.Reader, topic string, handler MessageHandler) {
	defer c.wg.Done()
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			c.logger.Error("Error fetching message from Kafka",
				zap.String("topic", topic),
				zap.Error(err))
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		var env events.Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			c.logger.Error("Dropping message with malformed envelope",
				zap.String("topic", topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		} else if err := handler(ctx, env); err != nil {
			// Handler errors never crash the loop; the handler itself is
			// responsible for surfacing failure through an outcome event.
			c.logger.Error("Error handling Kafka message",
				zap.String("topic", topic),
				zap.String("event_id", env.EventID),
				zap.String("event_type", string(env.EventType)),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}

		if err := reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("Failed to commit offset for message",
				zap.String("topic", topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}
	}
}

// Disconnect stops the poll loops, drains in-flight handler invocations
// within the context deadline, then closes readers and writer.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	readers := c.readers
	c.readers = nil
	c.consuming = false
	c.connected = false
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("Timed out waiting for in-flight handlers to drain")
	}

	var closeErr error
	for _, r := range readers {
		if err := r.Close(); err != nil {
			c.logger.Error("Failed to close Kafka consumer", zap.Error(err))
			closeErr = err
		}
	}
	if c.writer != nil {
		if err := c.writer.Close(); err != nil {
			c.logger.Error("Failed to close Kafka producer", zap.Error(err))
			closeErr = err
		}
	}
	c.logger.Info("Kafka client disconnected.")
	return closeErr
}

// Healthy reports whether the client is connected and consuming.
func (c *Client) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && c.consuming
}
