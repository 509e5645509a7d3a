package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// GeminiConfig holds configuration for the Gemini provider
type GeminiConfig struct {
	APIKey  string
	Model   string // default: gemini-2.5-flash
	BaseURL string // optional, used for proxies and tests

	HTTPClient *http.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newLLMHTTPClient()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiProvider{client: client, model: cfg.Model}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the configured model name
func (p *GeminiProvider) Model() string {
	return p.model
}

func (p *GeminiProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	contents, cfg := p.buildRequest(req)

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, p.wrapError(err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	out := &Response{
		Content: text,
		Model:   model,
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

func (p *GeminiProvider) buildRequest(req *Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		cfg.Temperature = &t
	}
	if len(req.StopSeqs) > 0 {
		cfg.StopSequences = req.StopSeqs
	}

	system := req.System
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	return contents, cfg
}

func (p *GeminiProvider) wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gemini generate: %w", &APIError{
			Provider:   p.Name(),
			StatusCode: apiErr.Code,
			Body:       apiErr.Message,
		})
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return fmt.Errorf("gemini generate: %w", &APIError{
			Provider:   p.Name(),
			StatusCode: apiErrPtr.Code,
			Body:       apiErrPtr.Message,
		})
	}
	return fmt.Errorf("gemini generate: %w", err)
}
