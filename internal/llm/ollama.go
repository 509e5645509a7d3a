package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "qwen2.5-coder"
)

// OllamaProvider runs completions against a local Ollama server
type OllamaProvider struct {
	model    string
	endpoint jsonEndpoint
}

// OllamaConfig holds configuration for the Ollama provider
type OllamaConfig struct {
	BaseURL    string
	Model      string // e.g. qwen2.5-coder, codellama
	HTTPClient *http.Client
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	client := cfg.HTTPClient
	if client == nil {
		client = newLLMHTTPClient()
	}
	return &OllamaProvider{
		model: modelOr(cfg.Model, defaultOllamaModel),
		endpoint: jsonEndpoint{
			provider: "ollama",
			url:      strings.TrimSuffix(modelOr(cfg.BaseURL, defaultOllamaURL), "/") + "/api/chat",
			client:   client,
		},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

// Model returns the configured model name
func (p *OllamaProvider) Model() string { return p.model }

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

func (p *OllamaProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	var out ollamaResponse
	if err := p.endpoint.call(ctx, p.buildRequest(req), &out); err != nil {
		return nil, err
	}
	if out.Message.Content == "" {
		return nil, fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}

	// Older servers omit done_reason
	finish := out.DoneReason
	if finish == "" {
		finish = "stop"
	}
	return &Response{
		Content:      out.Message.Content,
		FinishReason: finish,
		Model:        out.Model,
		Usage:        Usage{InputTokens: out.PromptEvalCount, OutputTokens: out.EvalCount},
	}, nil
}

func (p *OllamaProvider) buildRequest(req *Request) *ollamaRequest {
	r := &ollamaRequest{
		Model:    modelOr(req.Model, p.model),
		Messages: chatMessages(req),
	}
	if req.Temperature > 0 || req.MaxTokens > 0 || len(req.StopSeqs) > 0 {
		r.Options = &ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
			Stop:        req.StopSeqs,
		}
	}
	return r
}
