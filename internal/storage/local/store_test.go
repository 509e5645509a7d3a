package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")

	if _, err := NewStore(dir); err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("store directory not created: %v", err)
	}
}

func TestStore_SaveLoad(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	want := record{Name: "reverse", Count: 2}
	if err := store.Save("sessions", "abc", want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var got record
	if err := store.Load("sessions", "abc", &got); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	// Overwrite replaces the record
	want.Count = 3
	if err := store.Save("sessions", "abc", want); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}
	_ = store.Load("sessions", "abc", &got)
	if got.Count != 3 {
		t.Errorf("Count = %d after overwrite; want 3", got.Count)
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	_ = store.Save("sessions", "abc", record{Name: "x"})

	entries, err := os.ReadDir(store.Path("sessions"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "abc.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("collection files = %v; want [abc.json]", names)
	}
}

func TestStore_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var r record
	if err := store.Load("sessions", "missing", &r); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v; want ErrNotFound", err)
	}
	if err := store.Delete("sessions", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v; want ErrNotFound", err)
	}
}

func TestStore_InvalidID(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	for _, id := range []string{"", ".", "..", "../escape", `a\b`} {
		if err := store.Save("sessions", id, record{}); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Save(%q) error = %v; want ErrInvalidID", id, err)
		}
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	_ = store.Save("sessions", "abc", record{})

	if err := store.Delete("sessions", "abc"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	var r record
	if err := store.Load("sessions", "abc", &r); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after delete error = %v; want ErrNotFound", err)
	}
}

func TestStore_List(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	ids, err := store.List("sessions")
	if err != nil {
		t.Fatalf("List() on missing collection error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("List() = %v; want empty", ids)
	}

	_ = store.Save("sessions", "b", record{})
	_ = store.Save("sessions", "a", record{})
	_ = store.Save("other", "c", record{})

	dir := store.Path("sessions")
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	_ = os.WriteFile(filepath.Join(dir, ".a-123.tmp"), []byte("x"), 0644)
	_ = os.Mkdir(filepath.Join(dir, "sub.json"), 0755)

	ids, err = store.List("sessions")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	sort.Strings(ids)
	if diff := cmp.Diff([]string{"a", "b"}, ids); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("r%d", i%5)
			if err := store.Save("sessions", id, record{Name: id, Count: i}); err != nil {
				t.Errorf("Save() error = %v", err)
			}
			var r record
			if err := store.Load("sessions", id, &r); err != nil {
				t.Errorf("Load() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	ids, _ := store.List("sessions")
	if len(ids) != 5 {
		t.Errorf("List() = %d ids; want 5", len(ids))
	}
}
