package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{"returns default when not set", "CM_TEST_KEY_UNSET", "default", "", "default"},
		{"returns env value when set", "CM_TEST_KEY_SET", "default", "custom", "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
	}{
		{"returns default when not set", "", 100, 100},
		{"parses valid int", "42", 100, 42},
		{"returns default on invalid int", "not-a-number", 100, 100},
		{"parses zero", "0", 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CM_TEST_INT", tt.envValue)

			if got := getEnvInt("CM_TEST_INT", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("CM_TEST_FLOAT", "0.7")
	if got := getEnvFloat("CM_TEST_FLOAT", 0); got != 0.7 {
		t.Errorf("getEnvFloat() = %v, want 0.7", got)
	}
	t.Setenv("CM_TEST_FLOAT", "warm")
	if got := getEnvFloat("CM_TEST_FLOAT", 0.2); got != 0.2 {
		t.Errorf("getEnvFloat() on invalid = %v, want 0.2", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("CM_TEST_BOOL", "true")
	if !getEnvBool("CM_TEST_BOOL", false) {
		t.Error("getEnvBool() = false, want true")
	}
	t.Setenv("CM_TEST_BOOL", "maybe")
	if getEnvBool("CM_TEST_BOOL", false) {
		t.Error("getEnvBool() on invalid should return default")
	}
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OLLAMA_URL",
		"CODEMENTOR_PROVIDER", "CODEMENTOR_PORT", "CODEMENTOR_LOG_LEVEL", "CODEMENTOR_LANGUAGE",
		"CODEMENTOR_TEMPERATURE", "CODEMENTOR_STORAGE", "DATABASE_URL", "RABBITMQ_URL",
		"CODEMENTOR_EVENTS", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(k, "")
	}
}

func TestApplyEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("OLLAMA_URL", "http://ollama:11434")
	t.Setenv("CODEMENTOR_PROVIDER", "gemini")
	t.Setenv("CODEMENTOR_LANGUAGE", "go")
	t.Setenv("DATABASE_URL", "postgres://localhost/cm")
	t.Setenv("RABBITMQ_URL", "amqp://rabbit:5672/")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")

	cfg := DefaultLocalConfig()
	ApplyEnv(cfg)

	if got := cfg.LLM.Providers["claude"].APIKey; got != "sk-ant" {
		t.Errorf("claude APIKey = %q, want sk-ant", got)
	}
	gemini := cfg.LLM.Providers["gemini"]
	if gemini.APIKey != "gm-key" || !gemini.Enabled {
		t.Errorf("gemini = %+v, want enabled with key", gemini)
	}
	ollama := cfg.LLM.Providers["ollama"]
	if ollama.URL != "http://ollama:11434" || !ollama.Enabled {
		t.Errorf("ollama = %+v, want enabled with URL", ollama)
	}
	if cfg.LLM.DefaultProvider != "gemini" {
		t.Errorf("DefaultProvider = %q, want gemini", cfg.LLM.DefaultProvider)
	}
	if cfg.Mentor.Language != "go" {
		t.Errorf("Mentor.Language = %q, want go", cfg.Mentor.Language)
	}
	if cfg.Storage.PostgresURL != "postgres://localhost/cm" {
		t.Errorf("Storage.PostgresURL = %q", cfg.Storage.PostgresURL)
	}
	if !cfg.Events.Enabled || cfg.Events.AMQPURL != "amqp://rabbit:5672/" {
		t.Errorf("Events = %+v, want enabled with URL", cfg.Events)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint != "collector:4318" {
		t.Errorf("Telemetry = %+v, want enabled with endpoint", cfg.Telemetry)
	}
}

func TestApplyEnv_NoOverrides(t *testing.T) {
	clearProviderEnv(t)

	cfg := DefaultLocalConfig()
	ApplyEnv(cfg)

	if cfg.LLM.Providers["claude"].APIKey != "" {
		t.Error("APIKey should stay empty without env")
	}
	if cfg.Events.Enabled {
		t.Error("events should stay disabled without env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LocalConfig)
		wantErr string
	}{
		{"valid defaults", func(*LocalConfig) {}, ""},
		{"bad port", func(c *LocalConfig) { c.Daemon.Port = 0 }, "daemon.port"},
		{"unknown backend", func(c *LocalConfig) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"postgres without url", func(c *LocalConfig) { c.Storage.Backend = BackendPostgres }, "postgres_url"},
		{"zero tokens", func(c *LocalConfig) { c.Mentor.MaxTokens.Review = 0 }, "max_tokens"},
		{"temperature too high", func(c *LocalConfig) { c.Mentor.Temperature = 3 }, "temperature"},
		{"events without url", func(c *LocalConfig) {
			c.Events.Enabled = true
			c.Events.AMQPURL = ""
		}, "amqp_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLocalConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CM_DOTENV_VALUE=from-file\n"), 0600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("CM_DOTENV_VALUE", "")
	os.Unsetenv("CM_DOTENV_VALUE")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("CM_DOTENV_VALUE"); got != "from-file" {
		t.Errorf("CM_DOTENV_VALUE = %q, want from-file", got)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}
