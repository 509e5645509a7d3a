package domain

import (
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// FeedbackMode - how verbose the review should be
// -----------------------------------------------------------------------------

// FeedbackMode selects the review template
type FeedbackMode string

const (
	FeedbackConcise  FeedbackMode = "concise"
	FeedbackDetailed FeedbackMode = "detailed"
)

// DefaultFeedbackMode is used by new sessions
const DefaultFeedbackMode = FeedbackDetailed

// Valid returns true if the mode is known
func (m FeedbackMode) Valid() bool {
	return m == FeedbackConcise || m == FeedbackDetailed
}

// Toggle returns the other feedback mode
func (m FeedbackMode) Toggle() FeedbackMode {
	if m == FeedbackConcise {
		return FeedbackDetailed
	}
	return FeedbackConcise
}

// ParseFeedbackMode parses a feedback mode name
func ParseFeedbackMode(s string) (FeedbackMode, error) {
	m := FeedbackMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown feedback mode %q", ErrInvalidInput, s)
	}
	return m, nil
}

// -----------------------------------------------------------------------------
// TaskMode - where the code under review comes from
// -----------------------------------------------------------------------------

// TaskMode distinguishes learning from a described task and reviewing existing code
type TaskMode string

const (
	TaskGenerate TaskMode = "generate"
	TaskReview   TaskMode = "review"
)

// DefaultTaskMode is used by new sessions
const DefaultTaskMode = TaskGenerate

// Valid returns true if the mode is known
func (m TaskMode) Valid() bool {
	return m == TaskGenerate || m == TaskReview
}

// ParseTaskMode parses a task mode name
func ParseTaskMode(s string) (TaskMode, error) {
	m := TaskMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown task mode %q", ErrInvalidInput, s)
	}
	return m, nil
}

// -----------------------------------------------------------------------------
// Language - the programming language of the learner's code
// -----------------------------------------------------------------------------

// Language names the language used for fences and idiom wording
type Language string

// DefaultLanguage is assumed when nothing else is configured
const DefaultLanguage Language = "python"

var languageNames = map[Language]string{
	"python":     "Python",
	"go":         "Go",
	"javascript": "JavaScript",
	"typescript": "TypeScript",
	"rust":       "Rust",
	"java":       "Java",
	"ruby":       "Ruby",
	"c":          "C",
	"cpp":        "C++",
	"csharp":     "C#",
}

// NormalizeLanguage lowercases and trims; an empty value becomes DefaultLanguage
func NormalizeLanguage(s string) Language {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if l == "" {
		return DefaultLanguage
	}
	return l
}

// Fence returns the identifier used after ``` in markdown code blocks
func (l Language) Fence() string {
	if l == "" {
		return string(DefaultLanguage)
	}
	return string(l)
}

// DisplayName returns the human-readable language name
func (l Language) DisplayName() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	if l == "" {
		return languageNames[DefaultLanguage]
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}
