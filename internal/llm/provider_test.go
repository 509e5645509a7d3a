package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

// mockProvider is a test implementation of Provider
type mockProvider struct {
	name     string
	response *Response
	err      error

	mu    sync.Mutex
	calls int
	// errs, when set, is consumed one entry per call before falling back to err
	errs    []error
	lastReq *Request
	closed  bool
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastReq = req
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{name: "test"}

	r.Register("test", p)

	got, err := r.Get("test")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != p {
		t.Error("Get() returned different provider")
	}
}

func TestRegistry_SetDefault(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{name: "test"}

	if err := r.SetDefault("test"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("SetDefault() error = %v, want ErrProviderNotFound", err)
	}

	r.Register("test", p)
	if err := r.SetDefault("test"); err != nil {
		t.Errorf("SetDefault() error = %v", err)
	}

	got, err := r.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if got != p {
		t.Error("Default() returned wrong provider")
	}

	if err := r.SetDefault("auto"); err != nil {
		t.Errorf("SetDefault(auto) error = %v", err)
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register("test", &mockProvider{name: "test"})

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"existing provider", "test", false},
		{"non-existing provider", "nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Get(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("Get() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_Default(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Default(); err != ErrNoDefaultProvider {
		t.Errorf("Default() error = %v, want ErrNoDefaultProvider", err)
	}

	r.Register("zeta", &mockProvider{name: "zeta"})
	r.Register("ollama", &mockProvider{name: "ollama"})
	r.Register("claude", &mockProvider{name: "claude"})

	t.Run("auto prefers claude", func(t *testing.T) {
		got, err := r.Default()
		if err != nil {
			t.Fatalf("Default() error = %v", err)
		}
		if got.Name() != "claude" {
			t.Errorf("Default().Name() = %v, want claude", got.Name())
		}
	})

	t.Run("explicit default wins", func(t *testing.T) {
		if err := r.SetDefault("ollama"); err != nil {
			t.Fatal(err)
		}
		got, _ := r.Default()
		if got.Name() != "ollama" {
			t.Errorf("Default().Name() = %v, want ollama", got.Name())
		}
	})

	t.Run("unknown names fall back alphabetically", func(t *testing.T) {
		r2 := NewRegistry()
		r2.Register("b", &mockProvider{name: "b"})
		r2.Register("a", &mockProvider{name: "a"})
		got, _ := r2.Default()
		if got.Name() != "a" {
			t.Errorf("Default().Name() = %v, want a", got.Name())
		}
	})
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()

	if len(r.List()) != 0 {
		t.Error("List() should return empty for new registry")
	}

	r.Register("b", &mockProvider{name: "b"})
	r.Register("a", &mockProvider{name: "a"})

	list := r.List()
	if len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Errorf("List() = %v, want [a b]", list)
	}
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{name: "test"}
	r.Register("test", NewTracingProvider(p))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !p.closed {
		t.Error("Close() should reach the wrapped provider")
	}
}

func TestRegistry_Concurrency(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("p", &mockProvider{name: "p"})
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Default()
			_ = r.List()
		}()
	}
	wg.Wait()
}

func TestUserPrompt(t *testing.T) {
	req := UserPrompt("hello", 500)
	if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser || req.Messages[0].Content != "hello" {
		t.Errorf("UserPrompt() messages = %+v", req.Messages)
	}
	if req.MaxTokens != 500 {
		t.Errorf("MaxTokens = %d, want 500", req.MaxTokens)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"429", &APIError{StatusCode: http.StatusTooManyRequests}, true},
		{"500", &APIError{StatusCode: http.StatusInternalServerError}, true},
		{"503 wrapped", errors.Join(errors.New("ctx"), &APIError{StatusCode: 503}), true},
		{"400", &APIError{StatusCode: http.StatusBadRequest}, false},
		{"401", &APIError{StatusCode: http.StatusUnauthorized}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultResilientConfig(t *testing.T) {
	cfg := DefaultResilientConfig()

	if !cfg.EnableCircuitBreaker || !cfg.EnableRetry || !cfg.EnableBulkhead || !cfg.EnableRateLimit {
		t.Errorf("all patterns should be enabled by default: %+v", cfg)
	}
	if cfg.MaxConcurrent != 5 {
		t.Errorf("MaxConcurrent = %d, want 5", cfg.MaxConcurrent)
	}
	if cfg.RatePerSecond != 2 {
		t.Errorf("RatePerSecond = %d, want 2", cfg.RatePerSecond)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
}

func TestNewResilientProvider(t *testing.T) {
	rp := NewResilientProvider(&mockProvider{name: "test"}, DefaultResilientConfig())
	defer rp.Close()

	if rp.Name() != "test" {
		t.Errorf("Name() = %v, want test", rp.Name())
	}
	if rp.circuitBreaker == nil || rp.retrier == nil || rp.bulkhead == nil || rp.rateLimit == nil {
		t.Error("all patterns should be configured")
	}
}

func TestNewResilientProvider_NoPatterns(t *testing.T) {
	rp := NewResilientProvider(&mockProvider{name: "test"}, ResilientConfig{})

	if rp.circuitBreaker != nil || rp.retrier != nil || rp.bulkhead != nil || rp.rateLimit != nil {
		t.Error("no pattern should be configured when all are disabled")
	}
}

func TestResilientProvider_Generate_Success(t *testing.T) {
	p := &mockProvider{
		name:     "test",
		response: &Response{Content: "Hello from resilient!", FinishReason: "stop"},
	}
	rp := NewResilientProvider(p, ResilientConfig{
		EnableRetry:    true,
		EnableBulkhead: true,
		MaxConcurrent:  2,
		InitialDelay:   time.Millisecond,
	})

	resp, err := rp.Generate(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "Hello from resilient!" {
		t.Errorf("Content = %v, want Hello from resilient!", resp.Content)
	}
}

func TestResilientProvider_RetriesTransientErrors(t *testing.T) {
	p := &mockProvider{
		name:     "test",
		response: &Response{Content: "eventually"},
		errs: []error{
			&APIError{Provider: "test", StatusCode: http.StatusServiceUnavailable},
			&APIError{Provider: "test", StatusCode: http.StatusTooManyRequests},
		},
	}
	rp := NewResilientProvider(p, ResilientConfig{
		EnableRetry:  true,
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	})

	resp, err := rp.Generate(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "eventually" {
		t.Errorf("Content = %q, want eventually", resp.Content)
	}
	if p.callCount() != 3 {
		t.Errorf("calls = %d, want 3", p.callCount())
	}
}

func TestResilientProvider_DoesNotRetryClientErrors(t *testing.T) {
	p := &mockProvider{
		name: "test",
		err:  &APIError{Provider: "test", StatusCode: http.StatusUnauthorized},
	}
	rp := NewResilientProvider(p, ResilientConfig{
		EnableRetry:  true,
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	})

	_, err := rp.Generate(context.Background(), &Request{})
	if err == nil {
		t.Fatal("Generate() expected error")
	}
	if StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("StatusCode(err) = %d, want 401", StatusCode(err))
	}
	if p.callCount() != 1 {
		t.Errorf("calls = %d, want 1", p.callCount())
	}
}

func TestResilientProvider_RateLimit(t *testing.T) {
	p := &mockProvider{name: "test", response: &Response{Content: "ok"}}
	rp := NewResilientProvider(p, ResilientConfig{
		EnableRateLimit: true,
		RatePerSecond:   1,
	})
	defer rp.Close()

	var limited bool
	for i := 0; i < 10; i++ {
		if _, err := rp.Generate(context.Background(), &Request{}); errors.Is(err, ErrRateLimited) {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected the rate limiter to reject a burst of 10 calls")
	}
}

func TestResilientProvider_Close_NoRateLimit(t *testing.T) {
	rp := NewResilientProvider(&mockProvider{name: "test"}, ResilientConfig{})
	if err := rp.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewLLMHTTPClient(t *testing.T) {
	c := newLLMHTTPClient()
	if c.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v, want 120s", c.Timeout)
	}
	if c.Transport == nil {
		t.Error("Transport should be set")
	}
}
