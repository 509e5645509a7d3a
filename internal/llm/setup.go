package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/codementor/internal/config"
)

// NewRegistryFromConfig builds a registry holding every enabled provider that
// has the credentials it needs. Each provider is wrapped in ResilientProvider
// (when enabled) and TracingProvider.
func NewRegistryFromConfig(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry := NewRegistry()

	for name, pcfg := range cfg.Providers {
		if pcfg == nil || !pcfg.Enabled {
			continue
		}

		p, err := newProvider(ctx, name, pcfg)
		if err != nil {
			logger.Warn("skipping LLM provider", "provider", name, "error", err)
			continue
		}
		if p == nil {
			continue
		}

		if cfg.Resilience.Enabled {
			rc := DefaultResilientConfig()
			if cfg.Resilience.MaxAttempts > 0 {
				rc.MaxAttempts = cfg.Resilience.MaxAttempts
			}
			if cfg.Resilience.MaxConcurrent > 0 {
				rc.MaxConcurrent = cfg.Resilience.MaxConcurrent
			}
			if cfg.Resilience.RatePerSecond > 0 {
				rc.RatePerSecond = cfg.Resilience.RatePerSecond
			}
			rc.Logger = logger
			p = NewResilientProvider(p, rc)
		}

		registry.Register(name, NewTracingProvider(p))
		logger.Debug("registered LLM provider", "provider", name, "model", pcfg.Model)
	}

	if cfg.DefaultProvider != "" {
		if err := registry.SetDefault(cfg.DefaultProvider); err != nil {
			logger.Warn("default provider not available, falling back to auto",
				"provider", cfg.DefaultProvider)
			_ = registry.SetDefault("auto")
		}
	}

	return registry, nil
}

// newProvider returns nil, nil when the provider lacks credentials
func newProvider(ctx context.Context, name string, pcfg *config.ProviderConfig) (Provider, error) {
	switch name {
	case "claude":
		if pcfg.APIKey == "" {
			return nil, nil
		}
		return NewClaudeProvider(ClaudeConfig{
			APIKey:  pcfg.APIKey,
			Model:   pcfg.Model,
			BaseURL: pcfg.URL,
		}), nil
	case "openai":
		if pcfg.APIKey == "" {
			return nil, nil
		}
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:  pcfg.APIKey,
			Model:   pcfg.Model,
			BaseURL: pcfg.URL,
		}), nil
	case "gemini":
		if pcfg.APIKey == "" {
			return nil, nil
		}
		return NewGeminiProvider(ctx, GeminiConfig{
			APIKey:  pcfg.APIKey,
			Model:   pcfg.Model,
			BaseURL: pcfg.URL,
		})
	case "ollama":
		return NewOllamaProvider(OllamaConfig{
			BaseURL: pcfg.URL,
			Model:   pcfg.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", name)
	}
}
