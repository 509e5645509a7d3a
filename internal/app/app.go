// Package app assembles the mentor and wizard services from configuration.
// The daemon, the MCP server and the CLI all build their services here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/codementor/internal/config"
	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/llm"
	"github.com/felixgeelhaar/codementor/internal/mentor"
	"github.com/felixgeelhaar/codementor/internal/queue"
	"github.com/felixgeelhaar/codementor/internal/session"
	"github.com/felixgeelhaar/codementor/internal/storage/postgres"
	"github.com/felixgeelhaar/codementor/internal/storage/sqlite"
)

// App holds the wired services and the resources they own
type App struct {
	Config   *config.LocalConfig
	Registry *llm.Registry
	Mentor   *mentor.Service
	Sessions *session.Service
	Events   *domain.EventDispatcher

	// EventsConnected reports whether events reach RabbitMQ
	EventsConnected bool

	logger  *slog.Logger
	closers []func() error
}

// New builds every service described by cfg
func New(ctx context.Context, cfg *config.LocalConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config: cfg,
		Events: domain.NewEventDispatcher(),
		logger: logger,
	}

	registry, err := llm.NewRegistryFromConfig(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("setup llm providers: %w", err)
	}
	a.Registry = registry
	a.closers = append(a.closers, registry.Close)

	a.Mentor = mentor.NewService(mentor.Config{
		Registry:         registry,
		Language:         domain.NormalizeLanguage(cfg.Mentor.Language),
		Temperature:      cfg.Mentor.Temperature,
		AssessMaxTokens:  cfg.Mentor.MaxTokens.Assess,
		ReviewMaxTokens:  cfg.Mentor.MaxTokens.Review,
		StarterMaxTokens: cfg.Mentor.MaxTokens.Starter,
		Logger:           logger,
	})

	store, closeStore, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	a.Sessions = session.NewService(store, a.Mentor)
	a.Sessions.SetLogger(logger)
	a.Sessions.SetDefaultLanguage(domain.NormalizeLanguage(cfg.Mentor.Language))
	a.Sessions.SetPublisher(a.Events)

	a.Events.SubscribeAll(func(e domain.Event) {
		logger.Debug("wizard event", "type", e.EventType(), "session_id", e.SessionID())
	})
	if cfg.Events.Enabled {
		a.connectEvents(cfg.Events)
	}

	return a, nil
}

// connectEvents forwards events to RabbitMQ. A broker that is down only costs
// the event stream, never the wizard.
func (a *App) connectEvents(cfg config.EventsConfig) {
	conn, err := queue.NewConnection(cfg.AMQPURL, cfg.Queue)
	if err != nil {
		a.logger.Warn("event publishing disabled", "error", err)
		return
	}
	a.Events.SubscribeAll(queue.NewPublisher(conn, a.logger).Handler())
	a.closers = append(a.closers, conn.Close)
	a.EventsConnected = true
}

// OpenStore opens the session store selected by cfg.Backend. The returned
// close func may be nil.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (session.SessionStore, func() error, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return sqlite.NewSessionStore(db), db.Close, nil

	case config.BackendPostgres:
		pool, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.NewSessionStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, func() error { pool.Close(); return nil }, nil

	case config.BackendJSON, "":
		store, err := session.NewStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("create session store: %w", err)
		}
		return store, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close releases stores, broker connections and providers in reverse order
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
