package mentor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/llm"
)

// Output bounds for each call
const (
	DefaultAssessMaxTokens  = 1000
	DefaultReviewMaxTokens  = 3000
	DefaultStarterMaxTokens = 500
	DefaultTemperature      = 0.7
)

// Config configures a mentor Service
type Config struct {
	Registry llm.LLMRegistry
	// Provider pins a registered provider by name. Empty uses the registry default.
	Provider         string
	Language         domain.Language
	Temperature      float64
	AssessMaxTokens  int
	ReviewMaxTokens  int
	StarterMaxTokens int
	Logger           *slog.Logger
}

// Service runs the three mentor pipelines against the text generation service
type Service struct {
	registry     llm.LLMRegistry
	providerName string
	prompter     *Prompter
	language     domain.Language
	temperature  float64
	assessMax    int
	reviewMax    int
	starterMax   int
	logger       *slog.Logger
}

// NewService creates a new mentor service
func NewService(cfg Config) *Service {
	s := &Service{
		registry:     cfg.Registry,
		providerName: cfg.Provider,
		prompter:     NewPrompter(),
		language:     cfg.Language,
		temperature:  cfg.Temperature,
		assessMax:    cfg.AssessMaxTokens,
		reviewMax:    cfg.ReviewMaxTokens,
		starterMax:   cfg.StarterMaxTokens,
		logger:       cfg.Logger,
	}
	if s.language == "" {
		s.language = domain.DefaultLanguage
	}
	if s.temperature <= 0 {
		s.temperature = DefaultTemperature
	}
	if s.assessMax <= 0 {
		s.assessMax = DefaultAssessMaxTokens
	}
	if s.reviewMax <= 0 {
		s.reviewMax = DefaultReviewMaxTokens
	}
	if s.starterMax <= 0 {
		s.starterMax = DefaultStarterMaxTokens
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// AssessRequest is one attempt to classify
type AssessRequest struct {
	Task     string
	Code     string
	Language domain.Language
}

// ReviewRequest carries the attempt plus the assessment results that shape the review
type ReviewRequest struct {
	Task      string
	Code      string
	Level     domain.SkillLevel
	Mode      domain.FeedbackMode
	CodeWorks bool
	Language  domain.Language
}

// StarterRequest asks for a skeleton for a task
type StarterRequest struct {
	Task     string
	Language domain.Language
}

func (s *Service) lang(l domain.Language) domain.Language {
	if l == "" {
		return s.language
	}
	return domain.NormalizeLanguage(string(l))
}

func (s *Service) provider() (llm.Provider, error) {
	if s.registry == nil {
		return nil, llm.ErrNoDefaultProvider
	}
	if s.providerName != "" {
		return s.registry.Get(s.providerName)
	}
	return s.registry.Default()
}

// generate sends one prompt and returns the raw text
func (s *Service) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	provider, err := s.provider()
	if err != nil {
		return "", fmt.Errorf("get LLM provider: %w", err)
	}

	req := llm.UserPrompt(prompt, maxTokens)
	req.Temperature = s.temperature

	resp, err := provider.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", provider.Name(), err)
	}
	return resp.Content, nil
}

// Assess classifies an attempt. It never fails: empty input, a service error
// or an unparseable reply all produce domain.FallbackAssessment.
func (s *Service) Assess(ctx context.Context, req AssessRequest) domain.Assessment {
	if strings.TrimSpace(req.Task) == "" || strings.TrimSpace(req.Code) == "" {
		s.logger.Warn("assessment fallback", "reason", "empty task or code")
		return domain.FallbackAssessment()
	}

	prompt := s.prompter.AssessmentPrompt(req.Task, req.Code, s.lang(req.Language))
	raw, err := s.generate(ctx, prompt, s.assessMax)
	if err != nil {
		s.logger.Warn("assessment fallback", "reason", "service error", "error", err)
		return domain.FallbackAssessment()
	}

	a, err := ParseAssessment(raw)
	if err != nil {
		s.logger.Warn("assessment fallback", "reason", "malformed response", "error", err, "response_bytes", len(raw))
		return domain.FallbackAssessment()
	}

	s.logger.Debug("assessment parsed", "level", a.Level, "code_works", a.CodeWorks)
	return a
}

// GenerateReview produces an educational review shaped by mode, level and
// whether the code works. The text is returned as the service wrote it.
func (s *Service) GenerateReview(ctx context.Context, req ReviewRequest) (string, error) {
	if err := validateReview(req); err != nil {
		return "", err
	}

	lang := s.lang(req.Language)
	prompt := s.prompter.ReviewPrompt(ReviewPromptRequest{
		Task:      req.Task,
		Code:      req.Code,
		Level:     req.Level,
		Mode:      req.Mode,
		CodeWorks: req.CodeWorks,
		Language:  lang,
	})

	review, err := s.generate(ctx, prompt, s.reviewMax)
	if err != nil {
		return "", fmt.Errorf("%w: generate review: %w", domain.ErrServiceUnavailable, err)
	}

	if missing := MissingSections(review, req.Mode, req.CodeWorks, lang); len(missing) > 0 {
		s.logger.Debug("review missing sections", "mode", req.Mode, "missing", missing)
	}
	return review, nil
}

func validateReview(req ReviewRequest) error {
	var errs []error
	if strings.TrimSpace(req.Task) == "" {
		errs = append(errs, errors.New("task is required"))
	}
	if strings.TrimSpace(req.Code) == "" {
		errs = append(errs, errors.New("code is required"))
	}
	if !req.Level.Valid() {
		errs = append(errs, fmt.Errorf("unknown skill level %q", req.Level))
	}
	if !req.Mode.Valid() {
		errs = append(errs, fmt.Errorf("unknown feedback mode %q", req.Mode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// GenerateStarter produces an intentionally incomplete skeleton for a task
func (s *Service) GenerateStarter(ctx context.Context, req StarterRequest) (string, error) {
	if strings.TrimSpace(req.Task) == "" {
		return "", fmt.Errorf("%w: task is required", domain.ErrInvalidInput)
	}

	prompt := s.prompter.StarterPrompt(req.Task, s.lang(req.Language))
	starter, err := s.generate(ctx, prompt, s.starterMax)
	if err != nil {
		return "", fmt.Errorf("%w: generate starter: %w", domain.ErrServiceUnavailable, err)
	}
	return starter, nil
}

// ProviderName reports which provider the next call would use, or "" if none
func (s *Service) ProviderName() string {
	p, err := s.provider()
	if err != nil {
		return ""
	}
	return p.Name()
}
