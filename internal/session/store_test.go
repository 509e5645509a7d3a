package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/codementor/internal/domain"
)

func TestStore_SaveGet(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	ctx := context.Background()

	sess := NewSession(domain.TaskReview, domain.FeedbackConcise, "go")
	_ = sess.SubmitExisting("", "package main")
	_ = sess.SetAssessment(domain.FallbackAssessment())
	_ = sess.SetReview("looks fine")

	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// JSON drops the monotonic clock reading
	if diff := cmp.Diff(sess, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	ctx := context.Background()

	if _, err := store.Get(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v; want ErrNotFound", err)
	}
	if err := store.Delete(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v; want ErrNotFound", err)
	}
}

func TestStore_ListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)
	ctx := context.Background()

	older := NewSession("", "", "")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := NewSession("", "", "")
	_ = store.Save(ctx, older)
	_ = store.Save(ctx, newer)

	if err := os.WriteFile(filepath.Join(dir, collectionSessions, "notes.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, collectionSessions, uuid.NewString()+".json"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() = %d sessions; want 2", len(list))
	}
	if list[0].ID != newer.ID {
		t.Error("List() should put the most recently updated session first")
	}
}
