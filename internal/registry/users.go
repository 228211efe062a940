package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/shared-calendar/internal/domain"
	"github.com/example/shared-calendar/internal/store"
)

// UserRegistry manages users.
type UserRegistry struct {
	*base
	regs  *Registries
	items *collection[*domain.User]
}

// Exists reports whether a user record is stored under id.
func (r *UserRegistry) Exists(ctx context.Context, id string) (bool, error) {
	return r.items.exists(ctx, id)
}

// Get returns the shared instance of a user, loading it on first use.
func (r *UserRegistry) Get(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items.get(ctx, id)
}

// Peek returns a user only if it is already cached.
func (r *UserRegistry) Peek(id string) (*domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items.cached(id)
}

// FindByUsername returns the user with the given username.
func (r *UserRegistry) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findBy(ctx, "username", username)
}

// FindByEmail returns the user with the given email address.
func (r *UserRegistry) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findBy(ctx, "email", email)
}

func (r *UserRegistry) findBy(ctx context.Context, field, value string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value = strings.TrimSpace(value)
	users, err := r.items.loadAll(ctx, store.Filter{field: value})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user with %s %q", domain.ErrNotFound, field, value)
	}
	return users[0], nil
}

// Create validates and persists a new user. A blank id is generated. Every
// listed schedule must already exist, and username and email must be unused.
func (r *UserRegistry) Create(ctx context.Context, fields domain.UserFields) (user *domain.User, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fields.ID = r.idOrNew(fields.ID)
	logger := r.loggerWith(ctx, "users", "Create", "user_id", fields.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", domain.ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user created")
	}()

	user, err = domain.NewUser(fields)
	if err != nil {
		return nil, err
	}

	found, err := r.items.exists(ctx, user.ID())
	if err != nil {
		return nil, err
	}
	if found {
		return nil, fmt.Errorf("%w: user %s", domain.ErrAlreadyExists, user.ID())
	}
	for _, unique := range [][2]string{{"username", user.Username()}, {"email", user.Email()}} {
		field, value := unique[0], unique[1]
		taken, err := r.port.Exists(ctx, store.Users, store.Filter{field: value})
		if err != nil {
			return nil, mapStoreError(err)
		}
		if taken {
			return nil, fmt.Errorf("%w: %s %q is taken", domain.ErrAlreadyExists, field, value)
		}
	}
	for _, scheduleID := range user.ScheduleIDs() {
		found, err := r.regs.Schedules.items.exists(ctx, scheduleID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: schedule %s does not exist", domain.ErrReferentialIntegrity, scheduleID)
		}
	}

	if err := r.items.insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update writes the cached user back to the store.
func (r *UserRegistry) Update(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.items.get(ctx, id)
	if err != nil {
		return err
	}
	return r.items.persist(ctx, user)
}

// Changed implements domain.Observer.
func (r *UserRegistry) Changed(entity domain.Entity) error {
	return r.items.persist(observerContext(), entity)
}

// Delete removes a user. The user's role is revoked on every schedule it
// belongs to; a schedule left without members is deleted along with it, and a
// schedule left without an owner passes ownership to Schedule.Successor.
func (r *UserRegistry) Delete(ctx context.Context, id string) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger := r.loggerWith(ctx, "users", "Delete", "user_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", domain.ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted")
	}()

	user, err := r.items.get(ctx, id)
	if err != nil {
		return err
	}

	for _, scheduleID := range user.ScheduleIDs() {
		schedule, err := r.regs.Schedules.items.get(ctx, scheduleID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.WarnContext(ctx, "skipping dangling schedule reference", "schedule_id", scheduleID)
			continue
		}
		if err != nil {
			return err
		}
		if members := schedule.MemberIDs(); len(members) == 1 && members[0] == id {
			if err := r.regs.Schedules.delete(ctx, scheduleID); err != nil {
				return err
			}
			continue
		}
		heir, promote := schedule.Successor(id)
		if err := schedule.Revoke(id); err != nil {
			return err
		}
		if promote {
			if err := schedule.Grant(heir, domain.RoleOwner); err != nil {
				return err
			}
			logger.InfoContext(ctx, "schedule ownership transferred", "schedule_id", scheduleID, "new_owner_id", heir)
		}
	}

	return r.items.remove(ctx, id)
}

// cachedUsers returns every cached user.
func (r *UserRegistry) cachedUsers() []*domain.User {
	return r.items.values()
}
