// Package local keeps records as indented JSON files grouped by collection
package local

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const ext = ".json"

// Store provides thread-safe JSON file storage under one directory
type Store struct {
	basePath string
	mu       sync.RWMutex
}

// NewStore creates the base directory if needed
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Path returns the directory a collection is stored in
func (s *Store) Path(collection string) string {
	return filepath.Join(s.basePath, collection)
}

func (s *Store) file(collection, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.basePath, collection, id+ext), nil
}

// Save writes v to a temporary file and renames it into place, so readers
// never see a partial record.
func (s *Store) Save(collection, id string, v any) error {
	path, err := s.file(collection, id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create collection directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", id, err)
	}
	return nil
}

// Load decodes the record into v
func (s *Store) Load(collection, id string, v any) error {
	path, err := s.file(collection, id)
	if err != nil {
		return err
	}

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", id, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", id, err)
	}
	return nil
}

// Delete removes a record
func (s *Store) Delete(collection, id string) error {
	path, err := s.file(collection, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

// List returns the IDs in a collection. A missing collection is empty.
func (s *Store) List(collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.Path(collection))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		// Skip directories and in-flight temp files
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	return ids, nil
}
