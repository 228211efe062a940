package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/example/shared-calendar/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "calendar.db")
	s, err := Open(context.Background(), Config{DSN: dsn})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestStore_InsertSelectExists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Insert(ctx, store.Users, store.Record{"id": "u1", "username": "alice", "schedule_ids": []string{"S1"}}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Insert(ctx, store.Users, store.Record{"id": "u2", "username": "bob"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := s.Insert(ctx, store.Users, store.Record{"id": "u1", "username": "dup"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	exists, err := s.Exists(ctx, store.Users, store.ByID("u1"))
	if err != nil || !exists {
		t.Fatalf("expected u1 to exist, got %v %v", exists, err)
	}
	exists, err = s.Exists(ctx, store.Schedules, store.ByID("u1"))
	if err != nil || exists {
		t.Fatalf("expected collections to be separate, got %v %v", exists, err)
	}

	records, err := s.Select(ctx, store.Users, store.Filter{"username": "bob"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(records) != 1 || records[0]["id"] != "u2" {
		t.Fatalf("unexpected records: %v", records)
	}

	records, err = s.Select(ctx, store.Users, store.ByID("u1"))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	ids, ok := records[0]["schedule_ids"].([]any)
	if !ok || len(ids) != 1 || ids[0] != "S1" {
		t.Fatalf("unexpected schedule ids: %#v", records[0]["schedule_ids"])
	}
}

func TestStore_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Insert(ctx, store.Elements, store.Record{"id": "E1", "title": "Standup"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Update(ctx, store.Elements, store.ByID("E1"), store.Record{"id": "E1", "title": "Retro"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	records, err := s.Select(ctx, store.Elements, store.ByID("E1"))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if records[0]["title"] != "Retro" {
		t.Fatalf("expected updated title, got %v", records[0]["title"])
	}

	if err := s.Update(ctx, store.Elements, store.ByID("E2"), store.Record{"id": "E2"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Delete(ctx, store.Elements, store.ByID("E1")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, store.Elements, store.ByID("E1")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
