package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/mentor"
	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = fmt.Errorf("session %w", domain.ErrNotFound)
)

// Service drives wizard sessions and sequences the mentor calls
type Service struct {
	store     SessionStore
	mentor    mentor.MentorService
	publisher EventPublisher
	locks     *keyedMutex
	language  domain.Language
	logger    *slog.Logger
}

// NewService creates a new session service
func NewService(store SessionStore, mentorService mentor.MentorService) *Service {
	return &Service{
		store:     store,
		mentor:    mentorService,
		publisher: noopPublisher{},
		locks:     newKeyedMutex(),
		language:  domain.DefaultLanguage,
		logger:    slog.Default(),
	}
}

// SetPublisher sets where wizard events go
func (s *Service) SetPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	s.publisher = p
}

// SetLogger replaces the default logger
func (s *Service) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// SetDefaultLanguage sets the language for sessions created without one
func (s *Service) SetDefaultLanguage(lang domain.Language) {
	if lang != "" {
		s.language = lang
	}
}

// CreateRequest contains data for creating a session. Empty fields take defaults.
type CreateRequest struct {
	TaskMode     domain.TaskMode
	FeedbackMode domain.FeedbackMode
	Language     domain.Language
}

// Create starts a new wizard session
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	if req.TaskMode != "" && !req.TaskMode.Valid() {
		return nil, fmt.Errorf("%w: unknown task mode %q", domain.ErrInvalidInput, req.TaskMode)
	}
	if req.FeedbackMode != "" && !req.FeedbackMode.Valid() {
		return nil, fmt.Errorf("%w: unknown feedback mode %q", domain.ErrInvalidInput, req.FeedbackMode)
	}
	lang := s.language
	if strings.TrimSpace(string(req.Language)) != "" {
		lang = domain.NormalizeLanguage(string(req.Language))
	}

	session := NewSession(req.TaskMode, req.FeedbackMode, lang)
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.publisher.Publish(domain.NewSessionCreatedEvent(session.ID, session.TaskMode, session.FeedbackMode, session.Language))
	s.logger.Debug("session created", "session_id", session.ID, "task_mode", session.TaskMode)
	return session, nil
}

// Get retrieves a session by ID
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, uid)
}

// Delete removes a session
func (s *Service) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	unlock, err := s.locks.lock(ctx, uid.String())
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.Delete(ctx, uid); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns all sessions
func (s *Service) List(ctx context.Context) ([]*Session, error) {
	return s.store.List(ctx)
}

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return uid, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

// withSession runs fn on the session while holding its lock and saves the
// result when fn succeeds
func (s *Service) withSession(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locks.lock(ctx, uid.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// SetTaskMode switches between generate and review
func (s *Service) SetTaskMode(ctx context.Context, id string, m domain.TaskMode) (*Session, error) {
	return s.withSession(ctx, id, func(sess *Session) error { return sess.SetTaskMode(m) })
}

// SetFeedbackMode switches between concise and detailed feedback
func (s *Service) SetFeedbackMode(ctx context.Context, id string, m domain.FeedbackMode) (*Session, error) {
	return s.withSession(ctx, id, func(sess *Session) error { return sess.SetFeedbackMode(m) })
}

// Describe records the task in generate mode
func (s *Service) Describe(ctx context.Context, id, task string) (*Session, error) {
	return s.withSession(ctx, id, func(sess *Session) error { return sess.Describe(task) })
}

// SubmitExisting records existing code in review mode
func (s *Service) SubmitExisting(ctx context.Context, id, task, code string) (*Session, error) {
	sess, err := s.withSession(ctx, id, func(sess *Session) error { return sess.SubmitExisting(task, code) })
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(domain.NewAttemptSubmittedEvent(sess.ID, sess.TaskMode, len(sess.Code)))
	return sess, nil
}

// SubmitAttempt records the learner's attempt in generate mode
func (s *Service) SubmitAttempt(ctx context.Context, id, code string) (*Session, error) {
	sess, err := s.withSession(ctx, id, func(sess *Session) error { return sess.SubmitAttempt(code) })
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(domain.NewAttemptSubmittedEvent(sess.ID, sess.TaskMode, len(sess.Code)))
	return sess, nil
}

// Back returns to the task description
func (s *Service) Back(ctx context.Context, id string) (*Session, error) {
	return s.withSession(ctx, id, (*Session).Back)
}

// TryAnother starts a new task with the same modes
func (s *Service) TryAnother(ctx context.Context, id string) (*Session, error) {
	return s.withSession(ctx, id, (*Session).TryAnother)
}

// Edit returns to the submitted code in review mode
func (s *Service) Edit(ctx context.Context, id string) (*Session, error) {
	return s.withSession(ctx, id, (*Session).Edit)
}

// Revise returns to the attempt in generate mode
func (s *Service) Revise(ctx context.Context, id string) (*Session, error) {
	return s.withSession(ctx, id, (*Session).Revise)
}

// Reset returns the session to its defaults
func (s *Service) Reset(ctx context.Context, id string) (*Session, error) {
	return s.withSession(ctx, id, func(sess *Session) error {
		sess.Reset()
		return nil
	})
}

// RequestStarter generates a skeleton for the described task. On failure the
// session is left unchanged.
func (s *Service) RequestStarter(ctx context.Context, id string) (*Session, error) {
	sess, err := s.withSession(ctx, id, func(sess *Session) error {
		if err := sess.require(StepAttemptCode, "request starter"); err != nil {
			return err
		}
		starter, err := s.mentor.GenerateStarter(ctx, mentor.StarterRequest{
			Task:     sess.Task,
			Language: sess.Language,
		})
		if err != nil {
			return err
		}
		return sess.SetStarter(starter)
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(domain.NewStarterGeneratedEvent(sess.ID, strings.Count(sess.Starter, "\n")+1))
	return sess, nil
}

// Feedback assesses the attempt and writes the review. Cached results are
// reused, so a repeated call makes no remote request. When the review fails
// the assessment is kept and the error returned.
func (s *Service) Feedback(ctx context.Context, id string) (*Session, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locks.lock(ctx, uid.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := sess.require(StepReview, "feedback"); err != nil {
		return nil, err
	}
	if sess.HasFeedback() {
		return sess, nil
	}

	if sess.Assessment == nil {
		a := s.mentor.Assess(ctx, mentor.AssessRequest{
			Task:     sess.Task,
			Code:     sess.Code,
			Language: sess.Language,
		})
		if err := sess.SetAssessment(a); err != nil {
			return nil, err
		}
		if err := s.store.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		s.publisher.Publish(domain.NewAssessmentCompletedEvent(sess.ID, a))
	}

	review, err := s.mentor.GenerateReview(ctx, mentor.ReviewRequest{
		Task:      sess.Task,
		Code:      sess.Code,
		Level:     sess.Assessment.Level,
		Mode:      sess.FeedbackMode,
		CodeWorks: sess.Assessment.CodeWorks,
		Language:  sess.Language,
	})
	if err != nil {
		s.publisher.Publish(domain.NewReviewFailedEvent(sess.ID, sess.FeedbackMode, err.Error()))
		s.logger.Warn("review failed", "session_id", sess.ID, "error", err)
		return nil, fmt.Errorf("generate review: %w", err)
	}
	if err := sess.SetReview(review); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.publisher.Publish(domain.NewReviewGeneratedEvent(sess.ID, sess.FeedbackMode, len(review)))
	return sess, nil
}
