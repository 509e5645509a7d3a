package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOllamaProvider_Defaults(t *testing.T) {
	p := NewOllamaProvider(OllamaConfig{})

	if p.endpoint.url != "http://localhost:11434/api/chat" {
		t.Errorf("url = %v", p.endpoint.url)
	}
	if p.Name() != "ollama" || p.Model() != "qwen2.5-coder" {
		t.Errorf("Name()/Model() = %v/%v", p.Name(), p.Model())
	}
}

func TestOllamaProvider_BuildRequest(t *testing.T) {
	p := NewOllamaProvider(OllamaConfig{Model: "codellama"})

	req := p.buildRequest(&Request{
		Messages:    []Message{{Role: RoleUser, Content: "Hi"}},
		MaxTokens:   1000,
		Temperature: 0.3,
	})
	if req.Stream {
		t.Error("Stream should be false")
	}
	if req.Options == nil || req.Options.NumPredict != 1000 || req.Options.Temperature != 0.3 {
		t.Errorf("Options = %+v, want num_predict 1000, temperature 0.3", req.Options)
	}

	bare := p.buildRequest(&Request{Messages: []Message{{Role: RoleUser, Content: "Hi"}}})
	if bare.Options != nil {
		t.Error("Options should be omitted when nothing is set")
	}
}

func TestOllamaProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Path = %v, want /api/chat", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if stream, ok := body["stream"].(bool); !ok || stream {
			t.Errorf("stream = %v, want explicit false", body["stream"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model":             "codellama",
			"message":           map[string]string{"role": "assistant", "content": "def reverse(text):\n    pass"},
			"done":              true,
			"prompt_eval_count": 20,
			"eval_count":        8,
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL, Model: "codellama", HTTPClient: server.Client()})

	got, err := p.Generate(context.Background(), UserPrompt("starter please", 100))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", got.FinishReason)
	}
	if got.Usage.InputTokens != 20 || got.Usage.OutputTokens != 8 {
		t.Errorf("Usage = %+v, want 20/8", got.Usage)
	}
}

func TestOllamaProvider_Generate_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`model not found`))
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL, HTTPClient: server.Client()})

	_, err := p.Generate(context.Background(), UserPrompt("Hello", 10))
	if StatusCode(err) != http.StatusNotFound {
		t.Errorf("StatusCode(err) = %d, want 404", StatusCode(err))
	}
	if IsRetryable(err) {
		t.Error("404 should not be retryable")
	}
}
