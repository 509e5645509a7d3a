package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/session"
)

const sessionColumns = `id, task_mode, feedback_mode, language, step, status,
	task, code, starter, assessment, review,
	attempt_count, review_count, created_at, updated_at`

// SessionStore implements session persistence backed by SQLite
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SQLite-backed session store
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Save persists a session (insert or update)
func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	assessment, err := encodeAssessment(sess.Assessment)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			task_mode=excluded.task_mode, feedback_mode=excluded.feedback_mode,
			language=excluded.language, step=excluded.step, status=excluded.status,
			task=excluded.task, code=excluded.code, starter=excluded.starter,
			assessment=excluded.assessment, review=excluded.review,
			attempt_count=excluded.attempt_count, review_count=excluded.review_count,
			updated_at=excluded.updated_at`,
		sess.ID.String(), string(sess.TaskMode), string(sess.FeedbackMode),
		string(sess.Language), string(sess.Step), string(sess.Status),
		sess.Task, sess.Code, sess.Starter, assessment, nullString(sess.Review),
		sess.AttemptCount, sess.ReviewCount, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id.String())
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	return sess, err
}

// Delete removes a session
func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// List returns all sessions, most recently updated first
func (s *SessionStore) List(ctx context.Context) ([]*session.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY updated_at DESC`)
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

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*session.Session, error) {
	var sess session.Session
	var id, taskMode, feedbackMode, language, step, status string
	var assessment pqtype.NullRawMessage
	var review sql.NullString

	err := row.Scan(
		&id, &taskMode, &feedbackMode, &language, &step, &status,
		&sess.Task, &sess.Code, &sess.Starter, &assessment, &review,
		&sess.AttemptCount, &sess.ReviewCount, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if sess.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse session id %q: %w", id, err)
	}
	sess.TaskMode = domain.TaskMode(taskMode)
	sess.FeedbackMode = domain.FeedbackMode(feedbackMode)
	sess.Language = domain.Language(language)
	sess.Step = session.Step(step)
	sess.Status = session.Status(status)

	if sess.Assessment, err = decodeAssessment(assessment); err != nil {
		return nil, err
	}
	if review.Valid {
		sess.Review = &review.String
	}
	return &sess, nil
}

// encodeAssessment stores a missing assessment as NULL
func encodeAssessment(a *domain.Assessment) (pqtype.NullRawMessage, error) {
	if a == nil {
		return pqtype.NullRawMessage{}, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("marshal assessment: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}

func decodeAssessment(raw pqtype.NullRawMessage) (*domain.Assessment, error) {
	if !raw.Valid || len(raw.RawMessage) == 0 {
		return nil, nil
	}
	var a domain.Assessment
	if err := json.Unmarshal(raw.RawMessage, &a); err != nil {
		return nil, fmt.Errorf("unmarshal assessment: %w", err)
	}
	return &a, nil
}

// nullString converts an optional string for nullable TEXT columns
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
