package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/mentor"
)

// fakeMentor records requests and replays canned results
type fakeMentor struct {
	assessment domain.Assessment
	review     string
	starter    string
	err        error

	assessCalls int
	lastReview  mentor.ReviewRequest
}

func (f *fakeMentor) Assess(ctx context.Context, req mentor.AssessRequest) domain.Assessment {
	f.assessCalls++
	return f.assessment
}

func (f *fakeMentor) GenerateReview(ctx context.Context, req mentor.ReviewRequest) (string, error) {
	f.lastReview = req
	return f.review, f.err
}

func (f *fakeMentor) GenerateStarter(ctx context.Context, req mentor.StarterRequest) (string, error) {
	return f.starter, f.err
}

func setupTestServer(t *testing.T, m *fakeMentor) *Server {
	t.Helper()
	return NewServer(Config{MentorService: m, Language: "go", Version: "test"})
}

func TestNewServer(t *testing.T) {
	server := setupTestServer(t, &fakeMentor{})
	if server.GetMCPServer() == nil {
		t.Fatal("expected non-nil MCP server")
	}
	if server.language != "go" {
		t.Errorf("language = %q; want go", server.language)
	}

	// Nil services must not panic at construction
	if NewServer(Config{}) == nil {
		t.Fatal("expected non-nil server even with empty config")
	}
}

func TestHandleAssess(t *testing.T) {
	m := &fakeMentor{assessment: domain.FallbackAssessment()}
	server := setupTestServer(t, m)

	out, err := server.handleAssess(context.Background(), AssessInput{Task: "t", Code: "c"})
	if err != nil {
		t.Fatalf("handleAssess() error = %v", err)
	}

	want := AssessOutput{
		Level:       "intermediate",
		CodeIssues:  []string{},
		Indicators:  []string{"Unable to parse assessment"},
		Strengths:   []string{"Attempted the problem"},
		GrowthAreas: []string{"Continue practicing"},
		Fallback:    true,
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("handleAssess() mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleReview(t *testing.T) {
	yes := true
	tests := []struct {
		name       string
		input      ReviewInput
		wantAssess int
		wantLevel  domain.SkillLevel
		wantWorks  bool
		wantMode   domain.FeedbackMode
	}{
		{
			name:       "assesses when level is missing",
			input:      ReviewInput{Task: "t", Code: "c"},
			wantAssess: 1,
			wantLevel:  domain.LevelBeginner,
			wantWorks:  false,
			wantMode:   domain.FeedbackDetailed,
		},
		{
			name:      "uses the given level",
			input:     ReviewInput{Task: "t", Code: "c", Level: "advanced", CodeWorks: &yes, Mode: "concise"},
			wantLevel: domain.LevelAdvanced,
			wantWorks: true,
			wantMode:  domain.FeedbackConcise,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMentor{
				assessment: domain.Assessment{Level: domain.LevelBeginner},
				review:     "🎉 CONGRATULATIONS",
			}
			server := setupTestServer(t, m)

			out, err := server.handleReview(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("handleReview() error = %v", err)
			}
			if m.assessCalls != tt.wantAssess {
				t.Errorf("assess calls = %d; want %d", m.assessCalls, tt.wantAssess)
			}
			if m.lastReview.Level != tt.wantLevel || m.lastReview.CodeWorks != tt.wantWorks || m.lastReview.Mode != tt.wantMode {
				t.Errorf("review request = %+v", m.lastReview)
			}
			if m.lastReview.Language != "go" {
				t.Errorf("language = %q; want server default go", m.lastReview.Language)
			}
			if out.Review != "🎉 CONGRATULATIONS" {
				t.Errorf("review = %q", out.Review)
			}
		})
	}
}

func TestHandleReview_Error(t *testing.T) {
	server := setupTestServer(t, &fakeMentor{err: domain.ErrServiceUnavailable})

	_, err := server.handleReview(context.Background(), ReviewInput{Task: "t", Code: "c", Level: "beginner"})
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("handleReview() error = %v; want ErrServiceUnavailable", err)
	}
}

func TestHandleStarter(t *testing.T) {
	server := setupTestServer(t, &fakeMentor{starter: "func Reverse(s string) string {\n\t// TODO\n}"})

	out, err := server.handleStarter(context.Background(), StarterInput{Task: "reverse a string", Language: "Go"})
	if err != nil {
		t.Fatalf("handleStarter() error = %v", err)
	}
	if !strings.Contains(out.Starter, "TODO") {
		t.Errorf("starter = %q", out.Starter)
	}
}

func TestHandlers_NoMentorService(t *testing.T) {
	server := NewServer(Config{})
	ctx := context.Background()

	if _, err := server.handleAssess(ctx, AssessInput{}); err == nil {
		t.Error("handleAssess() should fail without a mentor service")
	}
	if _, err := server.handleReview(ctx, ReviewInput{}); err == nil {
		t.Error("handleReview() should fail without a mentor service")
	}
	if _, err := server.handleStarter(ctx, StarterInput{}); err == nil {
		t.Error("handleStarter() should fail without a mentor service")
	}
}
