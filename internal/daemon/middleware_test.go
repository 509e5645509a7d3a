package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("RequestID(empty) = %q", got)
	}
	type otherKey struct{}
	ctx := context.WithValue(context.Background(), otherKey{}, "x")
	if got := RequestID(ctx); got != "" {
		t.Errorf("RequestID(foreign key) = %q", got)
	}
}

func TestWithRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generates an ID", ""},
		{"propagates an existing ID", "client-supplied-id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = RequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if tt.incoming != "" && captured != tt.incoming {
				t.Errorf("captured %q, want %q", captured, tt.incoming)
			}
			if tt.incoming == "" {
				if _, err := uuid.Parse(captured); err != nil {
					t.Errorf("generated ID %q is not a UUID: %v", captured, err)
				}
			}
			if rec.Header().Get(RequestIDHeader) != captured {
				t.Error("response header should echo the request ID")
			}
		})
	}
}

func TestAccessLog(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "DEBUG"},
		{http.StatusConflict, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		handler := accessLog(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte("body"))
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/review", nil))

		if rec.Code != tt.status || rec.Body.String() != "body" {
			t.Errorf("response = %d %q; want passthrough", rec.Code, rec.Body.String())
		}

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v", err)
		}
		if entry["level"] != tt.wantLevel {
			t.Errorf("status %d logged at %v; want %s", tt.status, entry["level"], tt.wantLevel)
		}
		if entry["status"] != float64(tt.status) || entry["bytes"] != float64(4) {
			t.Errorf("entry = %v", entry)
		}
	}
}

func TestRecoverPanics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := recoverPanics(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":500`) {
		t.Errorf("body = %q, want JSON error", rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.New(&ratelimit.Config{Rate: 1, Burst: 1, Interval: time.Minute})
	t.Cleanup(func() { _ = limiter.Close() })

	handler := rateLimit(limiter, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/assess", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if got := call("10.0.0.1:5000").Code; got != http.StatusOK {
		t.Fatalf("first call = %d, want 200", got)
	}
	limited := call("10.0.0.1:5001")
	if limited.Code != http.StatusTooManyRequests {
		t.Errorf("second call from the same host = %d, want 429", limited.Code)
	}
	if limited.Header().Get("Retry-After") != "60" {
		t.Error("429 should carry Retry-After")
	}
	if got := call("10.0.0.2:5000").Code; got != http.StatusOK {
		t.Errorf("other client = %d, want 200", got)
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:41234"
	if got := clientKey(req); got != "192.0.2.7" {
		t.Errorf("clientKey() = %q", got)
	}
	req.RemoteAddr = "unix-socket"
	if got := clientKey(req); got != "unix-socket" {
		t.Errorf("clientKey() = %q", got)
	}
}
