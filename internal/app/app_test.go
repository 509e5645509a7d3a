package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/codementor/internal/config"
	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/session"
)

func testConfig(t *testing.T, backend string) *config.LocalConfig {
	t.Helper()
	cfg := config.DefaultLocalConfig()
	for _, p := range cfg.LLM.Providers {
		p.Enabled = false
	}
	cfg.Storage.Backend = backend
	if backend == config.BackendSQLite {
		cfg.Storage.Path = filepath.Join(t.TempDir(), "codementor.db")
	} else {
		cfg.Storage.Path = t.TempDir()
	}
	return cfg
}

func TestNew_Backends(t *testing.T) {
	for _, backend := range []string{config.BackendJSON, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			a, err := New(context.Background(), testConfig(t, backend), nil)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer a.Close()

			ctx := context.Background()
			sess, err := a.Sessions.Create(ctx, session.CreateRequest{TaskMode: domain.TaskReview})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if _, err := a.Sessions.Get(ctx, sess.ID.String()); err != nil {
				t.Errorf("Get() error = %v", err)
			}
			if a.EventsConnected {
				t.Error("events should stay local when disabled")
			}
		})
	}
}

func TestNew_PublishesToDispatcher(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, config.BackendJSON), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	var got []string
	a.Events.SubscribeAll(func(e domain.Event) { got = append(got, e.EventType()) })

	if _, err := a.Sessions.Create(context.Background(), session.CreateRequest{}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != domain.EventSessionCreated {
		t.Errorf("events = %v; want [%s]", got, domain.EventSessionCreated)
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	if _, _, err := OpenStore(context.Background(), config.StorageConfig{Backend: "redis"}); err == nil {
		t.Error("OpenStore() should reject unknown backends")
	}
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, config.BackendSQLite), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
