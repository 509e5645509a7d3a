package session

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/codementor/internal/storage/local"
	"github.com/google/uuid"
)

const collectionSessions = "sessions"

// ErrNotFound is returned by stores for unknown session IDs
var ErrNotFound = errors.New("session record not found")

// Store keeps sessions as JSON files
type Store struct {
	store *local.Store
}

// NewStore creates a new session store
func NewStore(basePath string) (*Store, error) {
	store, err := local.NewStore(basePath)
	if err != nil {
		return nil, fmt.Errorf("create local store: %w", err)
	}
	return &Store{store: store}, nil
}

// Save persists a session
func (s *Store) Save(ctx context.Context, session *Session) error {
	return s.store.Save(collectionSessions, session.ID.String(), session)
}

// Get retrieves a session by ID
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	var session Session
	if err := s.store.Load(collectionSessions, id.String(), &session); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Delete removes a session
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(collectionSessions, id.String()); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List returns all sessions, most recently updated first.
// Unreadable files are skipped.
func (s *Store) List(ctx context.Context) ([]*Session, error) {
	ids, err := s.store.List(collectionSessions)
	if err != nil {
		return nil, err
	}

	sessions := make([]*Session, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		session, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}
