package llm

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/codementor/internal/config"
)

func TestNewRegistryFromConfig(t *testing.T) {
	cfg := config.LLMConfig{
		DefaultProvider: "ollama",
		Providers: map[string]*config.ProviderConfig{
			"claude": {Enabled: true, Model: "claude-sonnet-4-20250514"}, // no key, skipped
			"openai": {Enabled: false, APIKey: "sk"},                     // disabled
			"ollama": {Enabled: true, URL: "http://localhost:11434", Model: "codellama"},
			"gemini": {Enabled: true, APIKey: "gm", Model: "gemini-2.5-flash"},
		},
		Resilience: config.ResilienceConfig{Enabled: true, MaxAttempts: 2},
	}

	r, err := NewRegistryFromConfig(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewRegistryFromConfig() error = %v", err)
	}
	defer r.Close()

	list := r.List()
	if len(list) != 2 || list[0] != "gemini" || list[1] != "ollama" {
		t.Errorf("List() = %v, want [gemini ollama]", list)
	}

	p, err := r.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Default().Name() = %q, want ollama", p.Name())
	}

	tp, ok := p.(*TracingProvider)
	if !ok {
		t.Fatalf("provider should be wrapped for tracing, got %T", p)
	}
	if _, ok := tp.Unwrap().(*ResilientProvider); !ok {
		t.Errorf("provider should be wrapped for resilience, got %T", tp.Unwrap())
	}
}

func TestNewRegistryFromConfig_MissingDefaultFallsBackToAuto(t *testing.T) {
	cfg := config.LLMConfig{
		DefaultProvider: "claude",
		Providers: map[string]*config.ProviderConfig{
			"ollama": {Enabled: true},
		},
	}

	r, err := NewRegistryFromConfig(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewRegistryFromConfig() error = %v", err)
	}
	if r.DefaultName() != "auto" {
		t.Errorf("DefaultName() = %q, want auto", r.DefaultName())
	}

	p, err := r.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if _, ok := p.(*TracingProvider).Unwrap().(*OllamaProvider); !ok {
		t.Error("resilience disabled: tracing should wrap the raw provider")
	}
}

func TestNewRegistryFromConfig_Empty(t *testing.T) {
	r, err := NewRegistryFromConfig(context.Background(), config.LLMConfig{}, nil)
	if err != nil {
		t.Fatalf("NewRegistryFromConfig() error = %v", err)
	}
	if _, err := r.Default(); err != ErrNoDefaultProvider {
		t.Errorf("Default() error = %v, want ErrNoDefaultProvider", err)
	}
}
