package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/shared-calendar/internal/domain"
)

// ElementRegistry manages events, tasks and reminders.
type ElementRegistry struct {
	*base
	regs  *Registries
	items *collection[*domain.Element]
}

// Exists reports whether an element record is stored under id.
func (r *ElementRegistry) Exists(ctx context.Context, id string) (bool, error) {
	return r.items.exists(ctx, id)
}

// Get returns the shared instance of an element, loading it on first use.
func (r *ElementRegistry) Get(ctx context.Context, id string) (*domain.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items.get(ctx, id)
}

// Create validates and persists a new element, then appends its id to every
// referenced schedule and to the loaded element caches of users who can see
// it. Every schedule must exist before anything is written.
func (r *ElementRegistry) Create(ctx context.Context, fields domain.ElementFields) (element *domain.Element, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fields.ID = r.idOrNew(fields.ID)
	logger := r.loggerWith(ctx, "elements", "Create", "element_id", fields.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create element", "error", err, "error_kind", domain.ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "element created", "element_type", element.Type())
	}()

	element, err = domain.NewElement(fields)
	if err != nil {
		return nil, err
	}

	found, err := r.items.exists(ctx, element.ID())
	if err != nil {
		return nil, err
	}
	if found {
		return nil, fmt.Errorf("%w: element %s", domain.ErrAlreadyExists, element.ID())
	}
	scheduleIDs := element.ScheduleIDs()
	for _, scheduleID := range scheduleIDs {
		found, err := r.regs.Schedules.items.exists(ctx, scheduleID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: schedule %s does not exist", domain.ErrReferentialIntegrity, scheduleID)
		}
	}

	if err := r.items.insert(ctx, element); err != nil {
		return nil, err
	}

	for _, scheduleID := range scheduleIDs {
		schedule, err := r.regs.Schedules.items.get(ctx, scheduleID)
		if err != nil {
			return nil, err
		}
		if err := schedule.AddElement(element.ID()); err != nil {
			return nil, err
		}
	}
	for _, user := range r.regs.Users.cachedUsers() {
		for _, scheduleID := range scheduleIDs {
			if user.BelongsTo(scheduleID) {
				user.RememberElement(element.ID())
				break
			}
		}
	}
	return element, nil
}

// Update writes the cached element back to the store.
func (r *ElementRegistry) Update(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	element, err := r.items.get(ctx, id)
	if err != nil {
		return err
	}
	return r.items.persist(ctx, element)
}

// Changed implements domain.Observer.
func (r *ElementRegistry) Changed(entity domain.Entity) error {
	return r.items.persist(observerContext(), entity)
}

// Delete strips the element from every schedule that lists it and from every
// cached user, then removes its record.
func (r *ElementRegistry) Delete(ctx context.Context, id string) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger := r.loggerWith(ctx, "elements", "Delete", "element_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete element", "error", err, "error_kind", domain.ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "element deleted")
	}()

	return r.delete(ctx, id)
}

func (r *ElementRegistry) delete(ctx context.Context, id string) error {
	element, err := r.items.get(ctx, id)
	if err != nil {
		return err
	}

	for _, scheduleID := range element.ScheduleIDs() {
		schedule, err := r.regs.Schedules.items.get(ctx, scheduleID)
		if errors.Is(err, domain.ErrNotFound) {
			r.loggerWith(ctx, "elements", "Delete", "element_id", id).
				WarnContext(ctx, "skipping dangling schedule reference", "schedule_id", scheduleID)
			continue
		}
		if err != nil {
			return err
		}
		if err := schedule.RemoveElement(id); err != nil {
			return err
		}
	}
	for _, user := range r.regs.Users.cachedUsers() {
		user.ForgetElement(id)
	}

	return r.items.remove(ctx, id)
}

// ForSchedules returns the elements of the given schedules, each once, in
// the order they are first reached. Ids that no longer resolve are skipped.
func (r *ElementRegistry) ForSchedules(ctx context.Context, scheduleIDs []string) ([]*domain.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.reachable(ctx, scheduleIDs)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, ids)
}

// ForUser returns every element reachable through the user's schedules and
// materializes their ids in the user's element cache.
func (r *ElementRegistry) ForUser(ctx context.Context, userID string) ([]*domain.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.regs.Users.items.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids, loaded := user.ElementCache()
	if !loaded {
		ids, err = r.reachable(ctx, user.ScheduleIDs())
		if err != nil {
			return nil, err
		}
		user.CacheElements(ids)
	}
	return r.resolve(ctx, ids)
}

func (r *ElementRegistry) reachable(ctx context.Context, scheduleIDs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, scheduleID := range scheduleIDs {
		schedule, err := r.regs.Schedules.items.get(ctx, scheduleID)
		if errors.Is(err, domain.ErrNotFound) {
			r.loggerWith(ctx, "elements", "reachable").
				WarnContext(ctx, "skipping dangling schedule reference", "schedule_id", scheduleID)
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, id := range schedule.ElementIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *ElementRegistry) resolve(ctx context.Context, ids []string) ([]*domain.Element, error) {
	out := make([]*domain.Element, 0, len(ids))
	for _, id := range ids {
		element, err := r.items.get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			r.loggerWith(ctx, "elements", "resolve").
				WarnContext(ctx, "skipping dangling element reference", "element_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, element)
	}
	return out, nil
}
