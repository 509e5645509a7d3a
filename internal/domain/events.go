package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types published by the wizard
const (
	EventSessionCreated      = "session.created"
	EventStarterGenerated    = "starter.generated"
	EventAttemptSubmitted    = "attempt.submitted"
	EventAssessmentCompleted = "assessment.completed"
	EventReviewGenerated     = "review.generated"
	EventReviewFailed        = "review.failed"
)

// -----------------------------------------------------------------------------
// Event Interface and Base Event
// -----------------------------------------------------------------------------

// Event represents a domain event
type Event interface {
	// EventID returns the unique identifier for this event
	EventID() uuid.UUID
	// EventType returns the type name of this event
	EventType() string
	// OccurredAt returns when this event occurred
	OccurredAt() time.Time
	// SessionID returns the wizard session that produced this event
	SessionID() uuid.UUID
}

// BaseEvent provides common event fields
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Session   uuid.UUID `json:"session_id"`
}

// NewBaseEvent creates a new BaseEvent
func NewBaseEvent(eventType string, sessionID uuid.UUID) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		Session:   sessionID,
	}
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) SessionID() uuid.UUID  { return e.Session }

// -----------------------------------------------------------------------------
// Event Handler and Dispatcher
// -----------------------------------------------------------------------------

// EventHandler processes domain events
type EventHandler func(event Event)

// EventDispatcher fans events out to in-process subscribers
type EventDispatcher struct {
	mu          sync.RWMutex
	handlers    map[string][]EventHandler
	allHandlers []EventHandler
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (d *EventDispatcher) Subscribe(eventType string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (d *EventDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allHandlers = append(d.allHandlers, handler)
}

// Publish dispatches an event to all registered handlers
func (d *EventDispatcher) Publish(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, h := range d.handlers[event.EventType()] {
		h(event)
	}
	for _, h := range d.allHandlers {
		h(event)
	}
}

// -----------------------------------------------------------------------------
// Wizard Events
// -----------------------------------------------------------------------------

// SessionCreatedEvent is published when a wizard session begins
type SessionCreatedEvent struct {
	BaseEvent
	TaskMode     TaskMode     `json:"task_mode"`
	FeedbackMode FeedbackMode `json:"feedback_mode"`
	Language     Language     `json:"language"`
}

// NewSessionCreatedEvent creates a new session created event
func NewSessionCreatedEvent(sessionID uuid.UUID, taskMode TaskMode, feedbackMode FeedbackMode, lang Language) SessionCreatedEvent {
	return SessionCreatedEvent{
		BaseEvent:    NewBaseEvent(EventSessionCreated, sessionID),
		TaskMode:     taskMode,
		FeedbackMode: feedbackMode,
		Language:     lang,
	}
}

// StarterGeneratedEvent is published after a skeleton was produced
type StarterGeneratedEvent struct {
	BaseEvent
	Lines int `json:"lines"`
}

// NewStarterGeneratedEvent creates a new starter generated event
func NewStarterGeneratedEvent(sessionID uuid.UUID, lines int) StarterGeneratedEvent {
	return StarterGeneratedEvent{
		BaseEvent: NewBaseEvent(EventStarterGenerated, sessionID),
		Lines:     lines,
	}
}

// AttemptSubmittedEvent is published when code enters the review step
type AttemptSubmittedEvent struct {
	BaseEvent
	TaskMode  TaskMode `json:"task_mode"`
	CodeBytes int      `json:"code_bytes"`
}

// NewAttemptSubmittedEvent creates a new attempt submitted event
func NewAttemptSubmittedEvent(sessionID uuid.UUID, mode TaskMode, codeBytes int) AttemptSubmittedEvent {
	return AttemptSubmittedEvent{
		BaseEvent: NewBaseEvent(EventAttemptSubmitted, sessionID),
		TaskMode:  mode,
		CodeBytes: codeBytes,
	}
}

// AssessmentCompletedEvent is published when an assessment has been stored
type AssessmentCompletedEvent struct {
	BaseEvent
	Level     SkillLevel `json:"level"`
	CodeWorks bool       `json:"code_works"`
	Fallback  bool       `json:"fallback"`
}

// NewAssessmentCompletedEvent creates a new assessment completed event
func NewAssessmentCompletedEvent(sessionID uuid.UUID, a Assessment) AssessmentCompletedEvent {
	return AssessmentCompletedEvent{
		BaseEvent: NewBaseEvent(EventAssessmentCompleted, sessionID),
		Level:     a.Level,
		CodeWorks: a.CodeWorks,
		Fallback:  a.IsFallback(),
	}
}

// ReviewGeneratedEvent is published when a review has been stored
type ReviewGeneratedEvent struct {
	BaseEvent
	Mode   FeedbackMode `json:"mode"`
	Length int          `json:"length"`
}

// NewReviewGeneratedEvent creates a new review generated event
func NewReviewGeneratedEvent(sessionID uuid.UUID, mode FeedbackMode, length int) ReviewGeneratedEvent {
	return ReviewGeneratedEvent{
		BaseEvent: NewBaseEvent(EventReviewGenerated, sessionID),
		Mode:      mode,
		Length:    length,
	}
}

// ReviewFailedEvent is published when review generation failed
type ReviewFailedEvent struct {
	BaseEvent
	Mode   FeedbackMode `json:"mode"`
	Reason string       `json:"reason"`
}

// NewReviewFailedEvent creates a new review failed event
func NewReviewFailedEvent(sessionID uuid.UUID, mode FeedbackMode, reason string) ReviewFailedEvent {
	return ReviewFailedEvent{
		BaseEvent: NewBaseEvent(EventReviewFailed, sessionID),
		Mode:      mode,
		Reason:    reason,
	}
}
