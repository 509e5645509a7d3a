package session

import (
	"context"

	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/google/uuid"
)

// SessionService defines the interface for wizard operations
// used by the daemon handlers and the CLI
type SessionService interface {
	Create(ctx context.Context, req CreateRequest) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Session, error)

	SetTaskMode(ctx context.Context, id string, m domain.TaskMode) (*Session, error)
	SetFeedbackMode(ctx context.Context, id string, m domain.FeedbackMode) (*Session, error)
	Describe(ctx context.Context, id, task string) (*Session, error)
	SubmitExisting(ctx context.Context, id, task, code string) (*Session, error)
	SubmitAttempt(ctx context.Context, id, code string) (*Session, error)
	Back(ctx context.Context, id string) (*Session, error)
	TryAnother(ctx context.Context, id string) (*Session, error)
	Edit(ctx context.Context, id string) (*Session, error)
	Revise(ctx context.Context, id string) (*Session, error)
	Reset(ctx context.Context, id string) (*Session, error)

	// RequestStarter generates a skeleton for the described task
	RequestStarter(ctx context.Context, id string) (*Session, error)

	// Feedback assesses the attempt and writes the review, reusing cached results
	Feedback(ctx context.Context, id string) (*Session, error)
}

// Ensure Service implements SessionService
var _ SessionService = (*Service)(nil)

// SessionStore defines the persistence interface for sessions.
// The JSON file store, SQLite and Postgres stores implement this.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Session, error)
}

// Ensure Store (JSON) implements SessionStore
var _ SessionStore = (*Store)(nil)

// EventPublisher receives wizard events. domain.EventDispatcher satisfies it.
type EventPublisher interface {
	Publish(event domain.Event)
}

var _ EventPublisher = (*domain.EventDispatcher)(nil)

type noopPublisher struct{}

func (noopPublisher) Publish(domain.Event) {}
