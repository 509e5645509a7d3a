package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// maxErrorBody caps how much of a failed reply is kept in APIError
const maxErrorBody = 4 << 10

// newLLMHTTPClient returns a client sized for slow completions. The SDK
// providers receive it too, so every backend shares the same timeouts.
func newLLMHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 90 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   5,
			MaxConnsPerHost:       10,
		},
	}
}

// chatMessage is the message shape shared by the OpenAI and Ollama chat APIs
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatMessages flattens a request, putting the system prompt first
func chatMessages(req *Request) []chatMessage {
	msgs := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: string(RoleSystem), Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return msgs
}

func modelOr(requested, fallback string) string {
	if requested != "" {
		return requested
	}
	return fallback
}

// jsonEndpoint is one POST-JSON API route of a hand-written provider
type jsonEndpoint struct {
	provider string
	url      string
	header   http.Header
	client   *http.Client
}

// call posts in and decodes a 200 reply into out. Other statuses become
// *APIError so the resilience layer can decide on retries.
func (e jsonEndpoint) call(ctx context.Context, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", e.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", e.provider, err)
	}
	for k, v := range e.header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", e.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Provider: e.provider, StatusCode: resp.StatusCode, Body: string(msg)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", e.provider, err)
	}
	return nil
}
