package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/shared-calendar/internal/domain"
	"github.com/example/shared-calendar/internal/registry"
	"github.com/example/shared-calendar/internal/store"
	"github.com/example/shared-calendar/internal/store/jsonfile"
	"github.com/example/shared-calendar/internal/store/sqlite"
)

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewJSONStore opens a JSON file store in a temporary directory.
func NewJSONStore(tb testing.TB) *jsonfile.Store {
	tb.Helper()

	s, err := jsonfile.Open(filepath.Join(tb.TempDir(), "calendar.json"))
	if err != nil {
		tb.Fatalf("failed to open json store: %v", err)
	}
	return s
}

// NewSQLiteStore opens a migrated SQLite store in a temporary directory. It
// is closed when the test ends.
func NewSQLiteStore(tb testing.TB) *sqlite.Store {
	tb.Helper()

	s, err := sqlite.Open(context.Background(), sqlite.Config{DSN: filepath.Join(tb.TempDir(), "calendar.db")})
	if err != nil {
		tb.Fatalf("failed to open sqlite store: %v", err)
	}
	tb.Cleanup(func() { _ = s.Close() })
	return s
}

// Harness pairs registries with the store behind them.
type Harness struct {
	Port  store.Port
	Regs  *registry.Registries
	IDs   *IDGenerator
	Clock *Clock
}

// NewHarness builds registries over port with sequential ids. A nil port
// uses a fresh in-memory store.
func NewHarness(tb testing.TB, port store.Port) *Harness {
	tb.Helper()

	if port == nil {
		port = store.NewMemory()
	}
	ids := NewIDGenerator("id")
	return &Harness{
		Port:  port,
		Regs:  registry.New(port, registry.WithLogger(DiscardLogger()), registry.WithIDGenerator(ids.NextFunc())),
		IDs:   ids,
		Clock: NewClock(ReferenceTime()),
	}
}

// Reopen returns registries over the same store with empty caches.
func (h *Harness) Reopen() *registry.Registries {
	return registry.New(h.Port, registry.WithLogger(DiscardLogger()), registry.WithIDGenerator(h.IDs.NextFunc()))
}

// User creates a user, failing the test on error.
func (h *Harness) User(tb testing.TB, opts ...UserOption) *domain.User {
	tb.Helper()

	user, err := h.Regs.Users.Create(context.Background(), NewUserFields(opts...))
	if err != nil {
		tb.Fatalf("failed to create user: %v", err)
	}
	return user
}

// Schedule creates a schedule owned by owner and lists it on every member.
func (h *Harness) Schedule(tb testing.TB, owner *domain.User, opts ...ScheduleOption) *domain.Schedule {
	tb.Helper()

	ctx := context.Background()
	schedule, err := h.Regs.Schedules.Create(ctx, NewScheduleFields(owner.ID(), opts...))
	if err != nil {
		tb.Fatalf("failed to create schedule: %v", err)
	}
	for _, memberID := range schedule.MemberIDs() {
		member, err := h.Regs.Users.Get(ctx, memberID)
		if err != nil {
			tb.Fatalf("failed to load member %s: %v", memberID, err)
		}
		if err := member.AddSchedule(schedule.ID()); err != nil {
			tb.Fatalf("failed to list schedule on %s: %v", memberID, err)
		}
	}
	return schedule
}

// Element creates an element from fields.
func (h *Harness) Element(tb testing.TB, fields domain.ElementFields) *domain.Element {
	tb.Helper()

	element, err := h.Regs.Elements.Create(context.Background(), fields)
	if err != nil {
		tb.Fatalf("failed to create element: %v", err)
	}
	return element
}
