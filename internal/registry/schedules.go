package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/shared-calendar/internal/domain"
)

// ScheduleRegistry manages schedules.
type ScheduleRegistry struct {
	*base
	regs  *Registries
	items *collection[*domain.Schedule]
}

// Exists reports whether a schedule record is stored under id.
func (r *ScheduleRegistry) Exists(ctx context.Context, id string) (bool, error) {
	return r.items.exists(ctx, id)
}

// Get returns the shared instance of a schedule, loading it on first use.
func (r *ScheduleRegistry) Get(ctx context.Context, id string) (*domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items.get(ctx, id)
}

// GetMany resolves several schedules in order.
func (r *ScheduleRegistry) GetMany(ctx context.Context, ids []string) ([]*domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Schedule, 0, len(ids))
	for _, id := range ids {
		schedule, err := r.items.get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, schedule)
	}
	return out, nil
}

// Create validates and persists a new schedule. Every user named in the
// permissions must exist. Elements are attached by creating them, so
// ElementIDs must be empty.
func (r *ScheduleRegistry) Create(ctx context.Context, fields domain.ScheduleFields) (schedule *domain.Schedule, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fields.ID = r.idOrNew(fields.ID)
	logger := r.loggerWith(ctx, "schedules", "Create", "schedule_id", fields.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create schedule", "error", err, "error_kind", domain.ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule created")
	}()

	schedule, err = domain.NewSchedule(fields)
	if err != nil {
		return nil, err
	}
	if len(fields.ElementIDs) > 0 {
		return nil, domain.NewValidationError("element_ids", "elements are attached by creating them")
	}

	found, err := r.items.exists(ctx, schedule.ID())
	if err != nil {
		return nil, err
	}
	if found {
		return nil, fmt.Errorf("%w: schedule %s", domain.ErrAlreadyExists, schedule.ID())
	}
	for _, userID := range schedule.MemberIDs() {
		found, err := r.regs.Users.items.exists(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: user %s does not exist", domain.ErrReferentialIntegrity, userID)
		}
	}

	if err := r.items.insert(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Update writes the cached schedule back to the store.
func (r *ScheduleRegistry) Update(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schedule, err := r.items.get(ctx, id)
	if err != nil {
		return err
	}
	return r.items.persist(ctx, schedule)
}

// Changed implements domain.Observer.
func (r *ScheduleRegistry) Changed(entity domain.Entity) error {
	return r.items.persist(observerContext(), entity)
}

// Delete removes a schedule. Elements listed only by this schedule are
// deleted, other elements and every member user drop the schedule id, and
// the schedule record goes last.
func (r *ScheduleRegistry) Delete(ctx context.Context, id string) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger := r.loggerWith(ctx, "schedules", "Delete", "schedule_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete schedule", "error", err, "error_kind", domain.ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule deleted")
	}()

	return r.delete(ctx, id)
}

func (r *ScheduleRegistry) delete(ctx context.Context, id string) error {
	schedule, err := r.items.get(ctx, id)
	if err != nil {
		return err
	}
	logger := r.loggerWith(ctx, "schedules", "Delete", "schedule_id", id)

	for _, elementID := range schedule.ElementIDs() {
		element, err := r.regs.Elements.items.get(ctx, elementID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.WarnContext(ctx, "skipping dangling element reference", "element_id", elementID)
			continue
		}
		if err != nil {
			return err
		}
		if ids := element.ScheduleIDs(); len(ids) == 1 && ids[0] == id {
			if err := r.regs.Elements.delete(ctx, elementID); err != nil {
				return err
			}
			continue
		}
		if err := element.RemoveSchedule(id); err != nil {
			return err
		}
	}

	for _, userID := range schedule.MemberIDs() {
		user, err := r.regs.Users.items.get(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.WarnContext(ctx, "skipping dangling user reference", "user_id", userID)
			continue
		}
		if err != nil {
			return err
		}
		if err := user.RemoveSchedule(id); err != nil {
			return err
		}
	}
	for _, user := range r.regs.Users.cachedUsers() {
		if err := user.RemoveSchedule(id); err != nil {
			return err
		}
	}

	return r.items.remove(ctx, id)
}
