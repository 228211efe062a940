// Package jsonfile persists the calendar documents in a single JSON file.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/example/shared-calendar/internal/store"
)

// Store keeps every collection in memory and rewrites the file after each
// successful mutation.
type Store struct {
	path string

	mu     sync.Mutex
	memory *store.Memory
}

// Open loads the file at path. A missing file starts an empty store.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("jsonfile: path is required")
	}

	snapshot := make(store.Snapshot)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("jsonfile: read %s: %w", path, err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return nil, fmt.Errorf("jsonfile: parse %s: %w", path, err)
		}
	}

	memory, err := store.NewMemoryFrom(snapshot)
	if err != nil {
		return nil, fmt.Errorf("jsonfile: load %s: %w", path, err)
	}
	return &Store{path: path, memory: memory}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Close is a no-op; every mutation is already on disk.
func (s *Store) Close() error { return nil }

// Select implements store.Port.
func (s *Store) Select(ctx context.Context, collection string, filter store.Filter) ([]store.Record, error) {
	return s.memory.Select(ctx, collection, filter)
}

// Exists implements store.Port.
func (s *Store) Exists(ctx context.Context, collection string, filter store.Filter) (bool, error) {
	return s.memory.Exists(ctx, collection, filter)
}

// Insert implements store.Port.
func (s *Store) Insert(ctx context.Context, collection string, record store.Record) error {
	return s.mutate(func() error {
		return s.memory.Insert(ctx, collection, record)
	})
}

// Update implements store.Port.
func (s *Store) Update(ctx context.Context, collection string, filter store.Filter, record store.Record) error {
	return s.mutate(func() error {
		return s.memory.Update(ctx, collection, filter, record)
	})
}

// Delete implements store.Port.
func (s *Store) Delete(ctx context.Context, collection string, filter store.Filter) error {
	return s.mutate(func() error {
		return s.memory.Delete(ctx, collection, filter)
	})
}

func (s *Store) mutate(apply func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := apply(); err != nil {
		return err
	}
	return s.flushLocked()
}

// flushLocked writes the snapshot to a temporary file and renames it over
// the target so readers never observe a partial document.
func (s *Store) flushLocked() error {
	snapshot, err := s.memory.Snapshot()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("jsonfile: create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("jsonfile: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("jsonfile: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("jsonfile: replace %s: %w", s.path, err)
	}
	return nil
}
