package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/codementor/internal/domain"
)

// publishTimeout bounds a single publish issued from an event handler
const publishTimeout = 5 * time.Second

// jsonPublisher is the part of Connection the Publisher needs
type jsonPublisher interface {
	PublishJSON(ctx context.Context, data any) error
}

// Publisher sends wizard events to RabbitMQ
type Publisher struct {
	conn   jsonPublisher
	logger *slog.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return newPublisher(conn, logger)
}

func newPublisher(conn jsonPublisher, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish sends one event
func (p *Publisher) Publish(ctx context.Context, e domain.Event) error {
	env, err := NewEnvelope(e)
	if err != nil {
		return err
	}
	if err := p.conn.PublishJSON(ctx, env); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", env.Type, err)
	}

	p.logger.Debug("published event",
		"event_id", env.ID,
		"type", env.Type,
		"session_id", env.SessionID,
	)
	return nil
}

// Handler adapts the publisher to a dispatcher subscription. Failures are
// logged and never reach the wizard.
func (p *Publisher) Handler() domain.EventHandler {
	return func(e domain.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, e); err != nil {
			p.logger.Warn("event not published", "type", e.EventType(), "error", err)
		}
	}
}
