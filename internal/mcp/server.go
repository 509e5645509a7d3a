package mcp

import (
	"context"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/mentor"
)

// Server exposes the mentor pipelines as MCP tools
type Server struct {
	mcpServer     *server.Server
	mentorService mentor.MentorService
	language      domain.Language
}

// Config contains configuration for the MCP server
type Config struct {
	MentorService mentor.MentorService
	// Language is used when a tool call names none
	Language domain.Language
	Version  string
}

// NewServer creates a new MCP server for CodeMentor
func NewServer(cfg Config) *Server {
	s := &Server{
		mentorService: cfg.MentorService,
		language:      domain.NormalizeLanguage(string(cfg.Language)),
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "codementor",
		Version: version,
	}, server.WithInstructions(`
CodeMentor reviews code written by learners and adapts its feedback to their skill level.

Available tools:
- codementor_assess: Classify an attempt as beginner, intermediate or advanced
- codementor_review: Write a mentoring review (assesses first when no level is given)
- codementor_starter: Generate an incomplete starter skeleton for a task

Reviews come in two modes: "concise" (four short sections) and "detailed"
(five sections with idiomatic suggestions and a next challenge).
`))

	s.registerTools()

	return s
}

// registerTools registers all CodeMentor MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("codementor_assess").
		Description("Assess the skill level shown by a code attempt. Always returns an assessment.").
		Handler(s.handleAssess)

	s.mcpServer.Tool("codementor_review").
		Description("Generate a mentoring review tailored to the learner's level.").
		Handler(s.handleReview)

	s.mcpServer.Tool("codementor_starter").
		Description("Generate a starter skeleton with TODOs for a programming task.").
		Handler(s.handleStarter)
}

// Input/Output types for tools

type AssessInput struct {
	Task     string `json:"task" jsonschema:"description=What the code is supposed to do"`
	Code     string `json:"code" jsonschema:"description=The learner's code"`
	Language string `json:"language,omitempty" jsonschema:"description=Programming language (default: python)"`
}

type AssessOutput struct {
	Level       string   `json:"level"`
	CodeWorks   bool     `json:"code_works"`
	CodeIssues  []string `json:"code_issues"`
	Indicators  []string `json:"indicators"`
	Strengths   []string `json:"strengths"`
	GrowthAreas []string `json:"growth_areas"`
	Fallback    bool     `json:"fallback"`
}

type ReviewInput struct {
	Task      string `json:"task" jsonschema:"description=What the code is supposed to do"`
	Code      string `json:"code" jsonschema:"description=The learner's code"`
	Mode      string `json:"mode,omitempty" jsonschema:"description=Feedback mode,enum=concise,enum=detailed"`
	Level     string `json:"level,omitempty" jsonschema:"description=Skill level; assessed when omitted,enum=beginner,enum=intermediate,enum=advanced"`
	CodeWorks *bool  `json:"code_works,omitempty" jsonschema:"description=Whether the code solves the task; assessed when omitted"`
	Language  string `json:"language,omitempty" jsonschema:"description=Programming language (default: python)"`
}

type ReviewOutput struct {
	Review    string `json:"review"`
	Level     string `json:"level"`
	CodeWorks bool   `json:"code_works"`
	Mode      string `json:"mode"`
}

type StarterInput struct {
	Task     string `json:"task" jsonschema:"description=The programming task"`
	Language string `json:"language,omitempty" jsonschema:"description=Programming language (default: python)"`
}

type StarterOutput struct {
	Starter string `json:"starter"`
}

// Tool handlers

func (s *Server) lang(l string) domain.Language {
	if l == "" {
		return s.language
	}
	return domain.NormalizeLanguage(l)
}

func (s *Server) handleAssess(ctx context.Context, input AssessInput) (AssessOutput, error) {
	if s.mentorService == nil {
		return AssessOutput{}, fmt.Errorf("mentor service not configured")
	}
	a := s.mentorService.Assess(ctx, mentor.AssessRequest{
		Task:     input.Task,
		Code:     input.Code,
		Language: s.lang(input.Language),
	})
	return AssessOutput{
		Level:       string(a.Level),
		CodeWorks:   a.CodeWorks,
		CodeIssues:  a.CodeIssues,
		Indicators:  a.Indicators,
		Strengths:   a.Strengths,
		GrowthAreas: a.GrowthAreas,
		Fallback:    a.IsFallback(),
	}, nil
}

func (s *Server) handleReview(ctx context.Context, input ReviewInput) (ReviewOutput, error) {
	if s.mentorService == nil {
		return ReviewOutput{}, fmt.Errorf("mentor service not configured")
	}

	lang := s.lang(input.Language)
	mode := domain.FeedbackMode(input.Mode)
	if mode == "" {
		mode = domain.DefaultFeedbackMode
	}

	level := domain.SkillLevel(input.Level)
	codeWorks := input.CodeWorks != nil && *input.CodeWorks
	if level == "" {
		a := s.mentorService.Assess(ctx, mentor.AssessRequest{Task: input.Task, Code: input.Code, Language: lang})
		level = a.Level
		if input.CodeWorks == nil {
			codeWorks = a.CodeWorks
		}
	}

	review, err := s.mentorService.GenerateReview(ctx, mentor.ReviewRequest{
		Task:      input.Task,
		Code:      input.Code,
		Level:     level,
		Mode:      mode,
		CodeWorks: codeWorks,
		Language:  lang,
	})
	if err != nil {
		return ReviewOutput{}, fmt.Errorf("failed to generate review: %w", err)
	}

	return ReviewOutput{
		Review:    review,
		Level:     string(level),
		CodeWorks: codeWorks,
		Mode:      string(mode),
	}, nil
}

func (s *Server) handleStarter(ctx context.Context, input StarterInput) (StarterOutput, error) {
	if s.mentorService == nil {
		return StarterOutput{}, fmt.Errorf("mentor service not configured")
	}
	starter, err := s.mentorService.GenerateStarter(ctx, mentor.StarterRequest{
		Task:     input.Task,
		Language: s.lang(input.Language),
	})
	if err != nil {
		return StarterOutput{}, fmt.Errorf("failed to generate starter: %w", err)
	}
	return StarterOutput{Starter: starter}, nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
