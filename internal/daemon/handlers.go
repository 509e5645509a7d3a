package daemon

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/mentor"
	"github.com/felixgeelhaar/codementor/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":           "running",
		"version":          s.version,
		"llm_providers":    s.llmRegistry.List(),
		"default_provider": s.llmRegistry.DefaultName(),
		"storage":          s.cfg.Storage.Backend,
		"events":           s.eventsOn,
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	// Secrets and connection strings stay out of the response
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"daemon":           s.cfg.Daemon,
		"mentor":           s.cfg.Mentor,
		"storage":          s.cfg.Storage.Backend,
		"events":           s.cfg.Events.Enabled,
		"telemetry":        s.cfg.Telemetry.Enabled,
		"default_provider": s.cfg.LLM.DefaultProvider,
	})
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	registered := make(map[string]bool)
	for _, name := range s.llmRegistry.List() {
		registered[name] = true
	}

	names := make([]string, 0, len(s.cfg.LLM.Providers))
	for name := range s.cfg.LLM.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make([]map[string]any, 0, len(names))
	for _, name := range names {
		cfg := s.cfg.LLM.Providers[name]
		providers = append(providers, map[string]any{
			"name":       name,
			"enabled":    cfg.Enabled,
			"model":      cfg.Model,
			"configured": cfg.APIKey != "" || name == "ollama",
			"registered": registered[name],
		})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"default":   s.llmRegistry.DefaultName(),
		"providers": providers,
	})
}

// Mentor handlers

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task     string `json:"task"`
		Code     string `json:"code"`
		Language string `json:"language,omitempty"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	// Assess never fails; unusable replies come back as the fallback assessment
	a := s.mentorService.Assess(r.Context(), mentor.AssessRequest{
		Task:     req.Task,
		Code:     req.Code,
		Language: domain.Language(req.Language),
	})
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"assessment": a,
		"fallback":   a.IsFallback(),
	})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task      string `json:"task"`
		Code      string `json:"code"`
		Level     string `json:"level,omitempty"`
		CodeWorks *bool  `json:"code_works,omitempty"`
		Mode      string `json:"mode,omitempty"`
		Language  string `json:"language,omitempty"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	mode := domain.FeedbackMode(req.Mode)
	if mode == "" {
		mode = domain.DefaultFeedbackMode
	}
	lang := domain.Language(req.Language)

	// Without a level the attempt is assessed first, as the wizard does
	var assessment *domain.Assessment
	level := domain.SkillLevel(req.Level)
	codeWorks := req.CodeWorks != nil && *req.CodeWorks
	if level == "" {
		a := s.mentorService.Assess(r.Context(), mentor.AssessRequest{Task: req.Task, Code: req.Code, Language: lang})
		assessment = &a
		level = a.Level
		if req.CodeWorks == nil {
			codeWorks = a.CodeWorks
		}
	}

	review, err := s.mentorService.GenerateReview(r.Context(), mentor.ReviewRequest{
		Task:      req.Task,
		Code:      req.Code,
		Level:     level,
		Mode:      mode,
		CodeWorks: codeWorks,
		Language:  lang,
	})
	if err != nil {
		s.serviceError(w, "failed to generate review", err)
		return
	}

	resp := map[string]any{
		"review": review,
		"mode":   mode,
		"level":  level,
	}
	if assessment != nil {
		resp["assessment"] = assessment
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleStarter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task     string `json:"task"`
		Language string `json:"language,omitempty"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	starter, err := s.mentorService.GenerateStarter(r.Context(), mentor.StarterRequest{
		Task:     req.Task,
		Language: domain.Language(req.Language),
	})
	if err != nil {
		s.serviceError(w, "failed to generate starter", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"starter": starter})
}

// Session handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskMode     string `json:"task_mode,omitempty"`
		FeedbackMode string `json:"feedback_mode,omitempty"`
		Language     string `json:"language,omitempty"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	sess, err := s.sessionService.Create(r.Context(), session.CreateRequest{
		TaskMode:     domain.TaskMode(req.TaskMode),
		FeedbackMode: domain.FeedbackMode(req.FeedbackMode),
		Language:     domain.Language(req.Language),
	})
	if err != nil {
		s.serviceError(w, "failed to create session", err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessionService.List(r.Context())
	if err != nil {
		s.serviceError(w, "failed to list sessions", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, "failed to get session", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessionService.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.serviceError(w, "failed to delete session", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"deleted": true})
}

// transition adapts a body-less wizard operation to a handler
func (s *Server) transition(op func(ctx context.Context, id string) (*session.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := op(r.Context(), r.PathValue("id"))
		if err != nil {
			s.serviceError(w, "wizard step failed", err)
			return
		}
		s.jsonResponse(w, http.StatusOK, sess)
	}
}

func (s *Server) handleSetTaskMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	sess, err := s.sessionService.SetTaskMode(r.Context(), r.PathValue("id"), domain.TaskMode(req.Mode))
	if err != nil {
		s.serviceError(w, "failed to set task mode", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess)
}

func (s *Server) handleSetFeedbackMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	sess, err := s.sessionService.SetFeedbackMode(r.Context(), r.PathValue("id"), domain.FeedbackMode(req.Mode))
	if err != nil {
		s.serviceError(w, "failed to set feedback mode", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task string `json:"task"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	sess, err := s.sessionService.Describe(r.Context(), r.PathValue("id"), req.Task)
	if err != nil {
		s.serviceError(w, "failed to describe task", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess)
}

func (s *Server) handleSubmitExisting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Task string `json:"task,omitempty"`
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	sess, err := s.sessionService.SubmitExisting(r.Context(), r.PathValue("id"), req.Task, req.Code)
	if err != nil {
		s.serviceError(w, "failed to submit code", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess)
}

func (s *Server) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	sess, err := s.sessionService.SubmitAttempt(r.Context(), r.PathValue("id"), req.Code)
	if err != nil {
		s.serviceError(w, "failed to submit attempt", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess)
}
