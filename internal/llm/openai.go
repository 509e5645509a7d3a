package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultOpenAIURL   = "https://api.openai.com"
	defaultOpenAIModel = "gpt-4o"
)

// OpenAIProvider talks to the chat completions API of OpenAI or any
// compatible server
type OpenAIProvider struct {
	model    string
	endpoint jsonEndpoint
}

// OpenAIConfig holds configuration for the OpenAI provider
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // API root without /v1
	Model      string
	HTTPClient *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	base := strings.TrimSuffix(modelOr(cfg.BaseURL, defaultOpenAIURL), "/")
	client := cfg.HTTPClient
	if client == nil {
		client = newLLMHTTPClient()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)

	return &OpenAIProvider{
		model: modelOr(cfg.Model, defaultOpenAIModel),
		endpoint: jsonEndpoint{
			provider: "openai",
			url:      base + "/v1/chat/completions",
			header:   header,
			client:   client,
		},
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Model returns the configured model name
func (p *OpenAIProvider) Model() string { return p.model }

type openaiRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type openaiChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type openaiResponse struct {
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *OpenAIProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	var out openaiResponse
	if err := p.endpoint.call(ctx, p.buildRequest(req), &out); err != nil {
		return nil, err
	}

	// Only the first choice is requested
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	first := out.Choices[0]
	return &Response{
		Content:      first.Message.Content,
		FinishReason: first.FinishReason,
		Model:        out.Model,
		Usage:        Usage{InputTokens: out.Usage.PromptTokens, OutputTokens: out.Usage.CompletionTokens},
	}, nil
}

func (p *OpenAIProvider) buildRequest(req *Request) *openaiRequest {
	return &openaiRequest{
		Model:       modelOr(req.Model, p.model),
		Messages:    chatMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        req.StopSeqs,
	}
}
