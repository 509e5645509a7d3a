// Package postgres stores wizard sessions in PostgreSQL for daemons that share state
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/session"
)

//go:embed schema.sql
var schemaSQL string

const sessionColumns = `id, task_mode, feedback_mode, language, step, status,
	task, code, starter, assessment, review,
	attempt_count, review_count, created_at, updated_at`

// Ensure SessionStore implements session.SessionStore
var _ session.SessionStore = (*SessionStore)(nil)

// Open connects a pool and verifies connectivity
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// SessionStore implements session persistence using PostgreSQL
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a new PostgreSQL session store
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Migrate creates the sessions table if it does not exist
func (s *SessionStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Save upserts a session
func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	var assessment any
	if sess.Assessment != nil {
		data, err := json.Marshal(sess.Assessment)
		if err != nil {
			return fmt.Errorf("marshal assessment: %w", err)
		}
		assessment = string(data)
	}

	query := `
		INSERT INTO mentor_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			task_mode = EXCLUDED.task_mode, feedback_mode = EXCLUDED.feedback_mode,
			language = EXCLUDED.language, step = EXCLUDED.step, status = EXCLUDED.status,
			task = EXCLUDED.task, code = EXCLUDED.code, starter = EXCLUDED.starter,
			assessment = EXCLUDED.assessment, review = EXCLUDED.review,
			attempt_count = EXCLUDED.attempt_count, review_count = EXCLUDED.review_count,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.pool.Exec(ctx, query,
		sess.ID, string(sess.TaskMode), string(sess.FeedbackMode), string(sess.Language),
		string(sess.Step), string(sess.Status),
		sess.Task, sess.Code, sess.Starter, assessment, sess.Review,
		sess.AttemptCount, sess.ReviewCount, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM mentor_sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	return sess, err
}

// Delete removes a session
func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM mentor_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// List returns all sessions, most recently updated first
func (s *SessionStore) List(ctx context.Context) ([]*session.Session, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sessionColumns+` FROM mentor_sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*session.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*session.Session, error) {
	var sess session.Session
	var taskMode, feedbackMode, language, step, status string
	var assessment []byte

	err := row.Scan(
		&sess.ID, &taskMode, &feedbackMode, &language, &step, &status,
		&sess.Task, &sess.Code, &sess.Starter, &assessment, &sess.Review,
		&sess.AttemptCount, &sess.ReviewCount, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.TaskMode = domain.TaskMode(taskMode)
	sess.FeedbackMode = domain.FeedbackMode(feedbackMode)
	sess.Language = domain.Language(language)
	sess.Step = session.Step(step)
	sess.Status = session.Status(status)

	if len(assessment) > 0 {
		var a domain.Assessment
		if err := json.Unmarshal(assessment, &a); err != nil {
			return nil, fmt.Errorf("unmarshal assessment: %w", err)
		}
		sess.Assessment = &a
	}
	return &sess, nil
}
