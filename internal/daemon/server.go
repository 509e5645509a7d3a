package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/codementor/internal/app"
	"github.com/felixgeelhaar/codementor/internal/config"
	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/llm"
	"github.com/felixgeelhaar/codementor/internal/mentor"
	"github.com/felixgeelhaar/codementor/internal/session"
	"github.com/felixgeelhaar/codementor/internal/telemetry"
)

// maxBodyBytes bounds request bodies; submitted code is the largest field
const maxBodyBytes = 1 << 20

// Server represents the CodeMentor daemon HTTP server
type Server struct {
	cfg     *config.LocalConfig
	version string
	server  *http.Server
	router  *http.ServeMux
	limiter ratelimit.RateLimiter
	logger  *slog.Logger

	// Services
	llmRegistry    llm.LLMRegistry
	mentorService  mentor.MentorService
	sessionService session.SessionService
	eventsOn       bool

	closeFn func() error
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config  *config.LocalConfig
	Version string
	Logger  *slog.Logger
}

// services are the collaborators a Server dispatches to
type services struct {
	registry       llm.LLMRegistry
	mentorService  mentor.MentorService
	sessionService session.SessionService
	eventsOn       bool
	closeFn        func() error
}

// NewServer wires every service from the configuration and creates the daemon
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	a, err := app.New(ctx, cfg.Config, cfg.Logger)
	if err != nil {
		return nil, err
	}

	s := newServer(cfg, services{
		registry:       a.Registry,
		mentorService:  a.Mentor,
		sessionService: a.Sessions,
		eventsOn:       a.EventsConnected,
		closeFn:        a.Close,
	})
	return s, nil
}

func newServer(cfg ServerConfig, svc services) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		cfg:            cfg.Config,
		version:        version,
		router:         http.NewServeMux(),
		logger:         logger,
		llmRegistry:    svc.registry,
		mentorService:  svc.mentorService,
		sessionService: svc.sessionService,
		eventsOn:       svc.eventsOn,
		closeFn:        svc.closeFn,
	}

	if rpm := cfg.Config.Daemon.RequestsPerMinute; rpm > 0 {
		s.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     rpm,
			Burst:    rpm,
			Interval: time.Minute,
		})
	}

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port)
	handler := recoverPanics(logger, withRequestID(accessLog(logger, telemetry.Middleware(s.router))))
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second, // Reviews can take a while
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Config
	s.router.HandleFunc("GET /v1/config", s.handleGetConfig)
	s.router.HandleFunc("GET /v1/config/providers", s.handleListProviders)

	// Stateless mentor calls
	s.router.Handle("POST /v1/assess", s.limited(s.handleAssess))
	s.router.Handle("POST /v1/review", s.limited(s.handleReview))
	s.router.Handle("POST /v1/starter", s.limited(s.handleStarter))

	// Wizard sessions
	s.router.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.router.HandleFunc("GET /v1/sessions", s.handleListSessions)
	s.router.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("DELETE /v1/sessions/{id}", s.handleDeleteSession)

	// Wizard transitions
	s.router.HandleFunc("POST /v1/sessions/{id}/task-mode", s.handleSetTaskMode)
	s.router.HandleFunc("POST /v1/sessions/{id}/feedback-mode", s.handleSetFeedbackMode)
	s.router.HandleFunc("POST /v1/sessions/{id}/describe", s.handleDescribe)
	s.router.HandleFunc("POST /v1/sessions/{id}/submit", s.handleSubmitExisting)
	s.router.HandleFunc("POST /v1/sessions/{id}/attempt", s.handleSubmitAttempt)
	s.router.HandleFunc("POST /v1/sessions/{id}/back", s.transition(s.sessionService.Back))
	s.router.HandleFunc("POST /v1/sessions/{id}/try-another", s.transition(s.sessionService.TryAnother))
	s.router.HandleFunc("POST /v1/sessions/{id}/edit", s.transition(s.sessionService.Edit))
	s.router.HandleFunc("POST /v1/sessions/{id}/revise", s.transition(s.sessionService.Revise))
	s.router.HandleFunc("POST /v1/sessions/{id}/reset", s.transition(s.sessionService.Reset))

	// Wizard generation
	s.router.Handle("POST /v1/sessions/{id}/starter", s.limited(s.transition(s.sessionService.RequestStarter)))
	s.router.Handle("POST /v1/sessions/{id}/feedback", s.limited(s.transition(s.sessionService.Feedback)))
}

// limited applies the per-client rate limit to a generation endpoint
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.limiter == nil {
		return h
	}
	return rateLimit(s.limiter, h)
}

// Handler returns the full middleware chain
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting codementor daemon",
		"addr", s.server.Addr,
		"llm_providers", s.llmRegistry.List(),
		"storage", s.cfg.Storage.Backend,
		"events", s.eventsOn,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")

	err := s.server.Shutdown(ctx)

	if s.limiter != nil {
		if cerr := s.limiter.Close(); cerr != nil {
			s.logger.Warn("failed to close rate limiter", "error", cerr)
		}
	}
	if s.closeFn != nil {
		if cerr := s.closeFn(); cerr != nil {
			s.logger.Warn("failed to release resources", "error", cerr)
		}
	}

	return err
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}

// serviceError maps mentor and wizard errors onto HTTP statuses
func (s *Server) serviceError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrServiceUnavailable):
		status = http.StatusBadGateway
	}
	s.jsonError(w, status, message, err)
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
