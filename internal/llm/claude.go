package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeProvider implements the Provider interface for Anthropic's Messages API
type ClaudeProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

// ClaudeConfig holds configuration for the Claude provider
type ClaudeConfig struct {
	APIKey  string
	Model   string // default: claude-sonnet-4-20250514
	BaseURL string // optional, used for proxies and tests

	// HTTPClient overrides the default LLM-tuned client
	HTTPClient *http.Client
}

// NewClaudeProvider creates a new Claude provider
func NewClaudeProvider(cfg ClaudeConfig) *ClaudeProvider {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newLLMHTTPClient()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// Retries are owned by ResilientProvider.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return &ClaudeProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (p *ClaudeProvider) Name() string {
	return "claude"
}

// Model returns the configured model name
func (p *ClaudeProvider) Model() string {
	return string(p.model)
}

func (p *ClaudeProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	params := p.buildParams(req)

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.wrapError(err)
	}

	return p.parseResponse(msg)
}

func (p *ClaudeProvider) buildParams(req *Request) anthropic.MessageNewParams {
	model := p.model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
	}

	system := req.System
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			// Claude takes the system prompt out-of-band
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if len(req.StopSeqs) > 0 {
		params.StopSequences = req.StopSeqs
	}

	return params
}

func (p *ClaudeProvider) parseResponse(msg *anthropic.Message) (*Response, error) {
	var sb strings.Builder
	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(variant.Text)
		}
	}

	if sb.Len() == 0 {
		return nil, fmt.Errorf("claude: %w", ErrEmptyResponse)
	}

	return &Response{
		Content:      sb.String(),
		FinishReason: string(msg.StopReason),
		Model:        string(msg.Model),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

// wrapError maps SDK errors onto APIError so retry decisions stay provider-agnostic
func (p *ClaudeProvider) wrapError(err error) error {
	var sdkErr *anthropic.Error
	if errors.As(err, &sdkErr) {
		return fmt.Errorf("claude messages: %w", &APIError{
			Provider:   p.Name(),
			StatusCode: sdkErr.StatusCode,
			Body:       sdkErr.Error(),
		})
	}
	return fmt.Errorf("claude messages: %w", err)
}
