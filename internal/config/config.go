package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from the working directory if present.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables on top of file configuration
func ApplyEnv(cfg *LocalConfig) {
	setKey := func(provider, env string) {
		if key := os.Getenv(env); key != "" {
			p := cfg.LLM.provider(provider)
			p.APIKey = key
			p.Enabled = true
		}
	}
	setKey("claude", "ANTHROPIC_API_KEY")
	setKey("openai", "OPENAI_API_KEY")
	setKey("gemini", "GEMINI_API_KEY")

	if url := os.Getenv("OLLAMA_URL"); url != "" {
		p := cfg.LLM.provider("ollama")
		p.URL = url
		p.Enabled = true
	}

	cfg.LLM.DefaultProvider = getEnv("CODEMENTOR_PROVIDER", cfg.LLM.DefaultProvider)
	cfg.Daemon.Port = getEnvInt("CODEMENTOR_PORT", cfg.Daemon.Port)
	cfg.Daemon.LogLevel = getEnv("CODEMENTOR_LOG_LEVEL", cfg.Daemon.LogLevel)
	cfg.Mentor.Language = getEnv("CODEMENTOR_LANGUAGE", cfg.Mentor.Language)
	cfg.Mentor.Temperature = getEnvFloat("CODEMENTOR_TEMPERATURE", cfg.Mentor.Temperature)
	cfg.Storage.Backend = getEnv("CODEMENTOR_STORAGE", cfg.Storage.Backend)
	cfg.Storage.PostgresURL = getEnv("DATABASE_URL", cfg.Storage.PostgresURL)

	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		cfg.Events.AMQPURL = url
		cfg.Events.Enabled = true
	}
	cfg.Events.Enabled = getEnvBool("CODEMENTOR_EVENTS", cfg.Events.Enabled)

	if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
		cfg.Telemetry.Endpoint = ep
		cfg.Telemetry.Enabled = true
	}
}

func (c *LLMConfig) provider(name string) *ProviderConfig {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	p, ok := c.Providers[name]
	if !ok {
		p = &ProviderConfig{}
		c.Providers[name] = p
	}
	return p
}

// Validate checks the configuration for values the services cannot work with
func (c *LocalConfig) Validate() error {
	var errs []error

	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		errs = append(errs, fmt.Errorf("daemon.port %d out of range", c.Daemon.Port))
	}

	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite:
	case BackendPostgres:
		if c.Storage.PostgresURL == "" {
			errs = append(errs, errors.New("storage.postgres_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	mt := c.Mentor.MaxTokens
	if mt.Assess <= 0 || mt.Review <= 0 || mt.Starter <= 0 {
		errs = append(errs, errors.New("mentor.max_tokens values must be positive"))
	}
	if c.Mentor.Temperature < 0 || c.Mentor.Temperature > 2 {
		errs = append(errs, fmt.Errorf("mentor.temperature %.2f out of range", c.Mentor.Temperature))
	}

	if c.Events.Enabled && c.Events.AMQPURL == "" {
		errs = append(errs, errors.New("events.amqp_url is required when events are enabled"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
