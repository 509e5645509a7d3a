package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/codementor/internal/domain"
)

// DefaultQueueName is the durable queue wizard events are sent to
const DefaultQueueName = "codementor.events"

// eventTTL bounds how long unconsumed events are kept
const eventTTL = 24 * time.Hour

// Envelope is the wire format of one wizard event
type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	SessionID  uuid.UUID       `json:"session_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a domain event for publishing
func NewEnvelope(e domain.Event) (*Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.EventType(), err)
	}
	return &Envelope{
		ID:         e.EventID(),
		Type:       e.EventType(),
		SessionID:  e.SessionID(),
		OccurredAt: e.OccurredAt(),
		Payload:    payload,
	}, nil
}

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	url        string
	queue      string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// NewConnection dials RabbitMQ and declares the events queue. An empty
// queue name uses DefaultQueueName.
func NewConnection(url, queue string) (*Connection, error) {
	if queue == "" {
		queue = DefaultQueueName
	}
	c := &Connection{
		url:   url,
		queue: queue,
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

// Queue returns the name of the declared events queue
func (c *Connection) Queue() string {
	return c.queue
}

// connect establishes connection and channel
func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := c.declareQueue(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	go c.handleReconnect(c.conn)

	slog.Info("connected to RabbitMQ", "url", sanitizeURL(c.url), "queue", c.queue)
	return nil
}

func (c *Connection) declareQueue() error {
	_, err := c.channel.QueueDeclare(
		c.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": int32(eventTTL / time.Millisecond),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare events queue: %w", err)
	}
	return nil
}

// handleReconnect waits for conn to drop and redials with exponential backoff
func (c *Connection) handleReconnect(conn *amqp.Connection) {
	err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || err == nil {
		return // Normal close
	}

	for i := 0; i < 10; i++ {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.reconnects++
		attempts := c.reconnects
		c.mu.Unlock()

		slog.Warn("RabbitMQ connection closed, attempting to reconnect",
			"error", err,
			"reconnects", attempts,
		)

		backoff := time.Duration(1<<i) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
		time.Sleep(backoff)

		if err := c.connect(); err != nil {
			slog.Error("reconnection failed", "error", err, "attempt", i+1)
			continue
		}

		slog.Info("reconnected to RabbitMQ", "attempts", i+1)
		return
	}

	slog.Error("failed to reconnect to RabbitMQ after 10 attempts")
}

// Channel returns the current channel (thread-safe)
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes a JSON message to the events queue
func (c *Connection) PublishJSON(ctx context.Context, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	return ch.PublishWithContext(
		ctx,
		"",      // exchange
		c.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// sanitizeURL hides the password for logging
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}
	return u.Redacted()
}
