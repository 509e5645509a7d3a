package domain

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFallbackAssessment(t *testing.T) {
	want := Assessment{
		Level:       LevelIntermediate,
		CodeWorks:   false,
		CodeIssues:  []string{},
		Indicators:  []string{"Unable to parse assessment"},
		Strengths:   []string{"Attempted the problem"},
		GrowthAreas: []string{"Continue practicing"},
	}

	if diff := cmp.Diff(want, FallbackAssessment()); diff != "" {
		t.Errorf("FallbackAssessment() mismatch (-want +got):\n%s", diff)
	}
}

func TestFallbackAssessment_Independent(t *testing.T) {
	a := FallbackAssessment()
	a.Indicators[0] = "mutated"

	b := FallbackAssessment()
	if b.Indicators[0] != "Unable to parse assessment" {
		t.Error("mutating one fallback must not affect the next")
	}
}

func TestAssessment_IsFallback(t *testing.T) {
	tests := []struct {
		name string
		a    Assessment
		want bool
	}{
		{"fallback", FallbackAssessment(), true},
		{"nil issues still fallback", Assessment{
			Level:       LevelIntermediate,
			Indicators:  []string{"Unable to parse assessment"},
			Strengths:   []string{"Attempted the problem"},
			GrowthAreas: []string{"Continue practicing"},
		}, true},
		{"different level", Assessment{Level: LevelBeginner}, false},
		{"code works", Assessment{
			Level:       LevelIntermediate,
			CodeWorks:   true,
			Indicators:  []string{"Unable to parse assessment"},
			Strengths:   []string{"Attempted the problem"},
			GrowthAreas: []string{"Continue practicing"},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.IsFallback(); got != tt.want {
				t.Errorf("IsFallback() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssessment_Clone(t *testing.T) {
	a := Assessment{
		Level:      LevelBeginner,
		CodeIssues: []string{"off by one"},
		Strengths:  []string{"clear names"},
	}
	c := a.Clone()
	c.CodeIssues[0] = "changed"

	if a.CodeIssues[0] != "off by one" {
		t.Error("Clone() should not share slices")
	}
	if c.Indicators == nil {
		t.Error("Clone() should produce empty, non-nil slices")
	}
}

func TestParseSkillLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    SkillLevel
		wantErr bool
	}{
		{"beginner", LevelBeginner, false},
		{" Advanced ", LevelAdvanced, false},
		{"INTERMEDIATE", LevelIntermediate, false},
		{"expert", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSkillLevel(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("ParseSkillLevel(%q) error = %v, want ErrInvalidInput", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSkillLevel(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseSkillLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
