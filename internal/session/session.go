package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when an action is not allowed in the current step
var ErrInvalidTransition = fmt.Errorf("invalid transition: %w", domain.ErrConflict)

// Step is the wizard position
type Step string

const (
	StepDescribeTask Step = "describe_task"
	StepAttemptCode  Step = "attempt_code"
	StepReview       Step = "review"
)

// Status represents the session state
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed" // a review is on record
)

const (
	// AttemptPlaceholder is the editor's unfilled content; submitting it is rejected
	AttemptPlaceholder = "# Write your Python code here\n# Don't worry about making it perfect!\n\ndef your_function():\n    pass"

	// DefaultReviewTask stands in for an empty task in review mode
	DefaultReviewTask = "Review and improve this code"
)

// Session is one learner's walk through the wizard
type Session struct {
	ID           uuid.UUID           `json:"id"`
	TaskMode     domain.TaskMode     `json:"task_mode"`
	FeedbackMode domain.FeedbackMode `json:"feedback_mode"`
	Language     domain.Language     `json:"language"`
	Step         Step                `json:"step"`
	Status       Status              `json:"status"`

	Task       string             `json:"task"`
	Code       string             `json:"code"`
	Starter    string             `json:"starter,omitempty"`
	Assessment *domain.Assessment `json:"assessment,omitempty"`
	Review     *string            `json:"review,omitempty"`

	// Statistics
	AttemptCount int `json:"attempt_count"`
	ReviewCount  int `json:"review_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session at the first step. Zero-valued modes take their defaults.
func NewSession(taskMode domain.TaskMode, feedbackMode domain.FeedbackMode, lang domain.Language) *Session {
	if taskMode == "" {
		taskMode = domain.DefaultTaskMode
	}
	if feedbackMode == "" {
		feedbackMode = domain.DefaultFeedbackMode
	}
	if lang == "" {
		lang = domain.DefaultLanguage
	}
	now := time.Now()
	return &Session{
		ID:           uuid.New(),
		TaskMode:     taskMode,
		FeedbackMode: feedbackMode,
		Language:     lang,
		Step:         StepDescribeTask,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}

func (s *Session) clearFeedback() {
	s.Assessment = nil
	s.Review = nil
	s.Status = StatusActive
}

func (s *Session) require(step Step, action string) error {
	if s.Step != step {
		return fmt.Errorf("%w: %s requires step %s, session is in %s", ErrInvalidTransition, action, step, s.Step)
	}
	return nil
}

func (s *Session) requireTaskMode(m domain.TaskMode, action string) error {
	if s.TaskMode != m {
		return fmt.Errorf("%w: %s requires %s mode", ErrInvalidTransition, action, m)
	}
	return nil
}

// SetTaskMode switches between generating a starter and reviewing existing code
func (s *Session) SetTaskMode(m domain.TaskMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: unknown task mode %q", domain.ErrInvalidInput, m)
	}
	if err := s.require(StepDescribeTask, "set task mode"); err != nil {
		return err
	}
	s.TaskMode = m
	s.touch()
	return nil
}

// SetFeedbackMode is allowed at any step. Changing it after a review discards
// that review; the assessment stays.
func (s *Session) SetFeedbackMode(m domain.FeedbackMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: unknown feedback mode %q", domain.ErrInvalidInput, m)
	}
	if m == s.FeedbackMode {
		return nil
	}
	s.FeedbackMode = m
	if s.Step == StepReview && s.Review != nil {
		s.Review = nil
		s.Status = StatusActive
	}
	s.touch()
	return nil
}

// Describe records the task in generate mode and moves on to the attempt
func (s *Session) Describe(task string) error {
	if err := s.require(StepDescribeTask, "describe"); err != nil {
		return err
	}
	if err := s.requireTaskMode(domain.TaskGenerate, "describe"); err != nil {
		return err
	}
	task = strings.TrimSpace(task)
	if task == "" {
		return fmt.Errorf("%w: task description is required", domain.ErrInvalidInput)
	}
	if task != s.Task {
		s.Starter = ""
	}
	s.Task = task
	s.Step = StepAttemptCode
	s.touch()
	return nil
}

// SubmitExisting takes code the learner already has, in review mode
func (s *Session) SubmitExisting(task, code string) error {
	if err := s.require(StepDescribeTask, "submit"); err != nil {
		return err
	}
	if err := s.requireTaskMode(domain.TaskReview, "submit"); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: code is required", domain.ErrInvalidInput)
	}
	task = strings.TrimSpace(task)
	if task == "" {
		task = DefaultReviewTask
	}
	s.Task = task
	s.Code = code
	s.clearFeedback()
	s.AttemptCount++
	s.Step = StepReview
	s.touch()
	return nil
}

// SetStarter stores a generated skeleton and preloads it as the attempt
func (s *Session) SetStarter(code string) error {
	if err := s.require(StepAttemptCode, "set starter"); err != nil {
		return err
	}
	s.Starter = code
	s.Code = code
	s.touch()
	return nil
}

// Back returns from the attempt to the task description, keeping both
func (s *Session) Back() error {
	if err := s.require(StepAttemptCode, "back"); err != nil {
		return err
	}
	s.Step = StepDescribeTask
	s.touch()
	return nil
}

// SubmitAttempt accepts the learner's code, trimmed. Only the unfilled
// placeholder is rejected; an unchanged starter still gets a review.
func (s *Session) SubmitAttempt(code string) error {
	if err := s.require(StepAttemptCode, "submit attempt"); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	switch {
	case code == "":
		return fmt.Errorf("%w: code is required", domain.ErrInvalidInput)
	case code == strings.TrimSpace(AttemptPlaceholder):
		return fmt.Errorf("%w: replace the placeholder with your attempt", domain.ErrInvalidInput)
	}
	s.Code = code
	s.clearFeedback()
	s.AttemptCount++
	s.Step = StepReview
	s.touch()
	return nil
}

// TryAnother starts over with a new task, keeping the chosen modes
func (s *Session) TryAnother() error {
	if err := s.require(StepReview, "try another"); err != nil {
		return err
	}
	s.Task = ""
	s.Code = ""
	s.Starter = ""
	s.clearFeedback()
	s.Step = StepDescribeTask
	s.touch()
	return nil
}

// Edit goes back to the submitted code in review mode
func (s *Session) Edit() error {
	if err := s.require(StepReview, "edit"); err != nil {
		return err
	}
	if err := s.requireTaskMode(domain.TaskReview, "edit"); err != nil {
		return err
	}
	s.clearFeedback()
	s.Step = StepDescribeTask
	s.touch()
	return nil
}

// Revise goes back to the attempt in generate mode
func (s *Session) Revise() error {
	if err := s.require(StepReview, "revise"); err != nil {
		return err
	}
	if err := s.requireTaskMode(domain.TaskGenerate, "revise"); err != nil {
		return err
	}
	s.clearFeedback()
	s.Step = StepAttemptCode
	s.touch()
	return nil
}

// Reset returns every wizard field to its default. Identity, language and
// statistics are kept.
func (s *Session) Reset() {
	s.TaskMode = domain.DefaultTaskMode
	s.FeedbackMode = domain.DefaultFeedbackMode
	s.Task = ""
	s.Code = ""
	s.Starter = ""
	s.clearFeedback()
	s.Step = StepDescribeTask
	s.touch()
}

// SetAssessment records the assessment of the current attempt
func (s *Session) SetAssessment(a domain.Assessment) error {
	if err := s.require(StepReview, "set assessment"); err != nil {
		return err
	}
	a = a.Clone()
	s.Assessment = &a
	s.touch()
	return nil
}

// SetReview records the review. The assessment must already be present.
func (s *Session) SetReview(review string) error {
	if err := s.require(StepReview, "set review"); err != nil {
		return err
	}
	if s.Assessment == nil {
		return fmt.Errorf("%w: review requires an assessment", ErrInvalidTransition)
	}
	s.Review = &review
	s.ReviewCount++
	s.Status = StatusCompleted
	s.touch()
	return nil
}

// HasFeedback reports whether both assessment and review are cached
func (s *Session) HasFeedback() bool {
	return s.Assessment != nil && s.Review != nil
}
