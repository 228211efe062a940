// Package registry owns the authoritative in-memory copy of every user,
// schedule and element, loading them lazily from a store.Port and writing
// them back whenever an entity reports a change.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/example/shared-calendar/internal/domain"
	"github.com/example/shared-calendar/internal/logging"
	"github.com/example/shared-calendar/internal/store"
)

// Registries bundles the three registries that share one store and one cache
// lock. Build it once at startup and pass it to every consumer.
type Registries struct {
	Users     *UserRegistry
	Schedules *ScheduleRegistry
	Elements  *ElementRegistry
}

// Option customises New.
type Option func(*options)

type options struct {
	logger *slog.Logger
	newID  func() string
}

// WithLogger sets the base logger. Loggers found in a call's context win.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithIDGenerator replaces the uuid generator used when a create call leaves
// the id blank.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// New wires the registries over port.
func New(port store.Port, opts ...Option) *Registries {
	o := options{newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	shared := &base{mu: &sync.Mutex{}, port: port, logger: o.logger, newID: o.newID}
	regs := &Registries{}
	regs.Users = &UserRegistry{base: shared, regs: regs}
	regs.Schedules = &ScheduleRegistry{base: shared, regs: regs}
	regs.Elements = &ElementRegistry{base: shared, regs: regs}

	regs.Users.items = newCollection(port, store.Users, "user", decodeUser, domain.Observer(regs.Users))
	regs.Schedules.items = newCollection(port, store.Schedules, "schedule", decodeSchedule, domain.Observer(regs.Schedules))
	regs.Elements.items = newCollection(port, store.Elements, "element", decodeElement, domain.Observer(regs.Elements))
	return regs
}

// Schedule resolves a schedule for read-only consumers such as the scheduler.
func (r *Registries) Schedule(ctx context.Context, id string) (*domain.Schedule, error) {
	return r.Schedules.Get(ctx, id)
}

// Element resolves an element for read-only consumers such as the scheduler.
func (r *Registries) Element(ctx context.Context, id string) (*domain.Element, error) {
	return r.Elements.Get(ctx, id)
}

// base is shared by the three registries. mu serialises every public
// operation so the read-modify-write sequences that patch back-references run
// one at a time.
type base struct {
	mu     *sync.Mutex
	port   store.Port
	logger *slog.Logger
	newID  func() string
}

func (b *base) loggerWith(ctx context.Context, registry, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = b.logger
	}
	if logger == nil {
		logger = slog.Default()
	}
	pairs := []any{"registry", registry}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	return logger.With(append(pairs, attrs...)...)
}

func (b *base) idOrNew(id string) string {
	if id != "" {
		return id
	}
	return b.newID()
}

// observerContext is used for writes triggered through domain.Observer, whose
// callback carries no context. Deadlines come from store.WithTimeout.
func observerContext() context.Context {
	return context.Background()
}

// entity is satisfied by *domain.User, *domain.Schedule and *domain.Element.
type entity interface {
	domain.Entity
	Attach(domain.Observer)
	Detach(domain.Observer)
}

// collection is the cache of one entity kind layered over a store collection.
// Callers hold base.mu.
type collection[T entity] struct {
	port     store.Port
	name     string
	kind     string
	decode   func(store.Record) (T, error)
	observer domain.Observer
	items    map[string]T
}

func newCollection[T entity](port store.Port, name, kind string, decode func(store.Record) (T, error), observer domain.Observer) *collection[T] {
	return &collection[T]{
		port:     port,
		name:     name,
		kind:     kind,
		decode:   decode,
		observer: observer,
		items:    make(map[string]T),
	}
}

func (c *collection[T]) exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	found, err := c.port.Exists(ctx, c.name, store.ByID(id))
	if err != nil {
		return false, mapStoreError(err)
	}
	return found, nil
}

func (c *collection[T]) cached(id string) (T, bool) {
	item, ok := c.items[id]
	return item, ok
}

// get returns the cached instance or loads, attaches and caches it.
func (c *collection[T]) get(ctx context.Context, id string) (T, error) {
	if item, ok := c.items[id]; ok {
		return item, nil
	}
	var zero T
	if id == "" {
		return zero, fmt.Errorf("%w: %s id is empty", domain.ErrNotFound, c.kind)
	}
	records, err := c.port.Select(ctx, c.name, store.ByID(id))
	if err != nil {
		return zero, mapStoreError(err)
	}
	if len(records) == 0 {
		return zero, fmt.Errorf("%w: %s %s", domain.ErrNotFound, c.kind, id)
	}
	item, err := c.decode(records[0])
	if err != nil {
		return zero, fmt.Errorf("decode %s %s: %w", c.kind, id, err)
	}
	item.Attach(c.observer)
	c.items[id] = item
	return item, nil
}

// insert persists a new entity and makes it the cached instance.
func (c *collection[T]) insert(ctx context.Context, item T) error {
	if err := c.port.Insert(ctx, c.name, store.Record(item.ToRecord())); err != nil {
		return mapStoreError(err)
	}
	item.Attach(c.observer)
	c.items[item.EntityID()] = item
	return nil
}

// persist overwrites the stored record with the entity's current state.
func (c *collection[T]) persist(ctx context.Context, item domain.Entity) error {
	id := item.EntityID()
	if err := c.port.Update(ctx, c.name, store.ByID(id), store.Record(item.ToRecord())); err != nil {
		return fmt.Errorf("persist %s %s: %w", c.kind, id, mapStoreError(err))
	}
	return nil
}

// remove deletes the stored record and evicts the cached instance.
func (c *collection[T]) remove(ctx context.Context, id string) error {
	if err := c.port.Delete(ctx, c.name, store.ByID(id)); err != nil {
		return mapStoreError(err)
	}
	if item, ok := c.items[id]; ok {
		item.Detach(c.observer)
		delete(c.items, id)
	}
	return nil
}

// values returns the cached instances ordered by id.
func (c *collection[T]) values() []T {
	ids := make([]string, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.items[id])
	}
	return out
}

func (c *collection[T]) loadAll(ctx context.Context, filter store.Filter) ([]T, error) {
	records, err := c.port.Select(ctx, c.name, filter)
	if err != nil {
		return nil, mapStoreError(err)
	}
	out := make([]T, 0, len(records))
	for _, record := range records {
		id, err := record.ID()
		if err != nil {
			return nil, err
		}
		item, err := c.get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return err
}
