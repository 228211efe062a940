package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/example/shared-calendar/internal/domain"
)

// Directory resolves schedules and elements by id. registry.Registries
// implements it.
type Directory interface {
	Schedule(ctx context.Context, id string) (*domain.Schedule, error)
	Element(ctx context.Context, id string) (*domain.Element, error)
}

// Conflict details an event overlapping a candidate interval.
type Conflict struct {
	ElementID  string
	ScheduleID string
	Title      string
	Interval   domain.Interval
}

// CheckAvailability reports whether candidate overlaps no event reachable
// from the user's schedules. When scheduleFilter is given only those
// schedules are consulted, and each must be one the user belongs to. Tasks
// and reminders never conflict.
func CheckAvailability(ctx context.Context, dir Directory, user *domain.User, candidate domain.Interval, scheduleFilter ...string) (bool, error) {
	conflicts, err := scan(ctx, dir, user, candidate, scheduleFilter, true)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// FindConflicts returns every event overlapping candidate, ordered by start
// and then id.
func FindConflicts(ctx context.Context, dir Directory, user *domain.User, candidate domain.Interval, scheduleFilter ...string) ([]Conflict, error) {
	conflicts, err := scan(ctx, dir, user, candidate, scheduleFilter, false)
	if err != nil {
		return nil, err
	}
	sort.Slice(conflicts, func(i, j int) bool {
		a, b := conflicts[i].Interval.Start, conflicts[j].Interval.Start
		if !a.Equal(b) {
			return a.Before(b)
		}
		return conflicts[i].ElementID < conflicts[j].ElementID
	})
	return conflicts, nil
}

func scan(ctx context.Context, dir Directory, user *domain.User, candidate domain.Interval, scheduleFilter []string, first bool) ([]Conflict, error) {
	if user == nil {
		return nil, domain.NewValidationError("user", "is required")
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	scheduleIDs, err := resolveSchedules(user, scheduleFilter)
	if err != nil {
		return nil, err
	}

	var conflicts []Conflict
	seen := make(map[string]struct{})
	for _, scheduleID := range scheduleIDs {
		schedule, err := dir.Schedule(ctx, scheduleID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, elementID := range schedule.ElementIDs() {
			if _, ok := seen[elementID]; ok {
				continue
			}
			seen[elementID] = struct{}{}

			element, err := dir.Element(ctx, elementID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if element.Type() != domain.ElementEvent {
				continue
			}
			interval := element.DisplayInterval()
			if !interval.Overlaps(candidate) {
				continue
			}
			conflicts = append(conflicts, Conflict{
				ElementID:  element.ID(),
				ScheduleID: scheduleID,
				Title:      element.Title(),
				Interval:   interval,
			})
			if first {
				return conflicts, nil
			}
		}
	}
	return conflicts, nil
}

func resolveSchedules(user *domain.User, scheduleFilter []string) ([]string, error) {
	if len(scheduleFilter) == 0 {
		return user.ScheduleIDs(), nil
	}
	out := make([]string, 0, len(scheduleFilter))
	for _, id := range scheduleFilter {
		if !user.BelongsTo(id) {
			return nil, fmt.Errorf("%w: user %s, schedule %s", domain.ErrNotMember, user.ID(), id)
		}
		out = append(out, id)
	}
	return out, nil
}
