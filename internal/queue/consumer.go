package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EnvelopeHandler processes one received event
type EnvelopeHandler func(ctx context.Context, env *Envelope) error

// Consumer reads wizard events from the events queue
type Consumer struct {
	conn       *Connection
	handler    EnvelopeHandler
	workers    int
	prefetch   int
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers  int // Number of concurrent workers
	Prefetch int // Prefetch count per worker
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:  1,
		Prefetch: 10,
	}
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	return cfg
}

// NewConsumer creates a new queue consumer
func NewConsumer(conn *Connection, handler EnvelopeHandler, cfg ConsumerConfig) *Consumer {
	cfg = cfg.withDefaults()
	return &Consumer{
		conn:     conn,
		handler:  handler,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.conn.Queue(),
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual ack for reliability)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("starting events consumer", "queue", c.conn.Queue(), "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}

	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-msgs:
			if !ok {
				slog.Info("message channel closed", "worker_id", id)
				return
			}
			c.processMessage(ctx, id, msg)
		}
	}
}

// acknowledger is the part of amqp.Delivery used to settle a message
type acknowledger interface {
	Ack(multiple bool) error
	Reject(requeue bool) error
}

func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	c.settle(ctx, workerID, msg.Body, &msg)
}

// settle decodes body, runs the handler and acks or rejects
func (c *Consumer) settle(ctx context.Context, workerID int, body []byte, ack acknowledger) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		slog.Error("failed to unmarshal event", "worker_id", workerID, "error", err)
		// Malformed messages are dropped, not requeued
		_ = ack.Reject(false)
		return
	}

	if err := c.handler(ctx, &env); err != nil {
		slog.Error("event handler failed",
			"worker_id", workerID,
			"event_id", env.ID,
			"type", env.Type,
			"error", err,
		)
		_ = ack.Reject(false)
		return
	}

	if err := ack.Ack(false); err != nil {
		slog.Error("failed to ack message", "worker_id", workerID, "event_id", env.ID, "error", err)
	}
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}
