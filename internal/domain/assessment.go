package domain

import (
	"fmt"
	"strings"
)

// SkillLevel is the learner's estimated proficiency
type SkillLevel string

const (
	LevelBeginner     SkillLevel = "beginner"
	LevelIntermediate SkillLevel = "intermediate"
	LevelAdvanced     SkillLevel = "advanced"
)

// Valid reports whether the level is one of the known values
func (l SkillLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

func (l SkillLevel) String() string { return string(l) }

// ParseSkillLevel converts a string into a SkillLevel, ignoring case and surrounding space
func ParseSkillLevel(s string) (SkillLevel, error) {
	l := SkillLevel(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: unknown skill level %q", ErrInvalidInput, s)
	}
	return l, nil
}

// Assessment is the structured judgment of one code attempt against one task.
// Treat it as immutable once produced.
type Assessment struct {
	Level       SkillLevel `json:"level"`
	CodeWorks   bool       `json:"code_works"`
	CodeIssues  []string   `json:"code_issues"`
	Indicators  []string   `json:"indicators"`
	Strengths   []string   `json:"strengths"`
	GrowthAreas []string   `json:"growth_areas"`
}

// FallbackAssessment is used whenever an assessment cannot be obtained or parsed
func FallbackAssessment() Assessment {
	return Assessment{
		Level:       LevelIntermediate,
		CodeWorks:   false,
		CodeIssues:  []string{},
		Indicators:  []string{"Unable to parse assessment"},
		Strengths:   []string{"Attempted the problem"},
		GrowthAreas: []string{"Continue practicing"},
	}
}

// IsFallback reports whether a matches the fallback assessment
func (a Assessment) IsFallback() bool {
	fb := FallbackAssessment()
	return a.Level == fb.Level &&
		a.CodeWorks == fb.CodeWorks &&
		len(a.CodeIssues) == 0 &&
		equalStrings(a.Indicators, fb.Indicators) &&
		equalStrings(a.Strengths, fb.Strengths) &&
		equalStrings(a.GrowthAreas, fb.GrowthAreas)
}

// Clone returns a deep copy so callers can't alias the slices
func (a Assessment) Clone() Assessment {
	return Assessment{
		Level:       a.Level,
		CodeWorks:   a.CodeWorks,
		CodeIssues:  cloneStrings(a.CodeIssues),
		Indicators:  cloneStrings(a.Indicators),
		Strengths:   cloneStrings(a.Strengths),
		GrowthAreas: cloneStrings(a.GrowthAreas),
	}
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
