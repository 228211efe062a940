package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/shared-calendar/internal/domain"
)

type fakeDirectory struct {
	schedules map[string]*domain.Schedule
	elements  map[string]*domain.Element
	lookups   map[string]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		schedules: make(map[string]*domain.Schedule),
		elements:  make(map[string]*domain.Element),
		lookups:   make(map[string]int),
	}
}

func (d *fakeDirectory) Schedule(ctx context.Context, id string) (*domain.Schedule, error) {
	schedule, ok := d.schedules[id]
	if !ok {
		return nil, fmt.Errorf("%w: schedule %s", domain.ErrNotFound, id)
	}
	return schedule, nil
}

func (d *fakeDirectory) Element(ctx context.Context, id string) (*domain.Element, error) {
	d.lookups[id]++
	element, ok := d.elements[id]
	if !ok {
		return nil, fmt.Errorf("%w: element %s", domain.ErrNotFound, id)
	}
	return element, nil
}

func (d *fakeDirectory) addSchedule(t *testing.T, id string, elementIDs ...string) {
	t.Helper()
	schedule, err := domain.NewSchedule(domain.ScheduleFields{
		ID:          id,
		Title:       id,
		Permissions: map[string]domain.Role{"u1": domain.RoleOwner},
		ElementIDs:  elementIDs,
	})
	if err != nil {
		t.Fatalf("NewSchedule returned error: %v", err)
	}
	d.schedules[id] = schedule
}

func (d *fakeDirectory) add(t *testing.T, id string, details domain.Details) *domain.Element {
	t.Helper()
	element, err := domain.NewElement(domain.ElementFields{
		ID:          id,
		Title:       id,
		ScheduleIDs: []string{"S1"},
		Details:     details,
	})
	if err != nil {
		t.Fatalf("NewElement returned error: %v", err)
	}
	d.elements[id] = element
	return element
}

func at(hour, minute int) time.Time {
	return time.Date(2024, time.March, 1, hour, minute, 0, 0, time.UTC)
}

func member(t *testing.T, scheduleIDs ...string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(domain.UserFields{ID: "u1", Username: "u1", Email: "u1@example.com", ScheduleIDs: scheduleIDs})
	if err != nil {
		t.Fatalf("NewUser returned error: %v", err)
	}
	return user
}

func interval(start, end time.Time) domain.Interval {
	return domain.Interval{Start: start, End: end}
}

func TestCheckAvailability(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.add(t, "E1", domain.EventDetails{Start: at(10, 0), End: at(11, 0)})
	dir.add(t, "E2", domain.EventDetails{Start: at(11, 0), End: at(12, 0)})
	dir.add(t, "T1", domain.TaskDetails{Due: at(14, 30)})
	dir.add(t, "R1", domain.ReminderDetails{At: at(15, 0)})
	dir.addSchedule(t, "S1", "E1", "E2", "T1", "R1")
	user := member(t, "S1")

	tests := []struct {
		name      string
		candidate domain.Interval
		want      bool
	}{
		{"starting at last end is free", interval(at(12, 0), at(12, 30)), true},
		{"starting at an event start is busy", interval(at(11, 0), at(11, 30)), false},
		{"inside an event is busy", interval(at(10, 30), at(10, 45)), false},
		{"spanning both events is busy", interval(at(9, 0), at(13, 0)), false},
		{"ending at first start is free", interval(at(9, 0), at(10, 0)), true},
		{"task due inside is free", interval(at(14, 0), at(15, 0)), true},
		{"reminder window is free", interval(at(14, 50), at(15, 0)), true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckAvailability(context.Background(), dir, user, tt.candidate)
			if err != nil {
				t.Fatalf("CheckAvailability returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected available=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestCheckAvailability_TaskNeverConflicts(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.add(t, "T1", domain.TaskDetails{Due: at(10, 30)})
	dir.addSchedule(t, "S1", "T1")

	ok, err := CheckAvailability(context.Background(), dir, member(t, "S1"), interval(at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatalf("CheckAvailability returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected task to be ignored")
	}
}

func TestCheckAvailability_FilterRequiresMembership(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.addSchedule(t, "S1")
	dir.addSchedule(t, "S2")

	_, err := CheckAvailability(context.Background(), dir, member(t, "S1"), interval(at(10, 0), at(11, 0)), "S2")
	if !errors.Is(err, domain.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if !errors.Is(err, domain.ErrReferentialIntegrity) {
		t.Fatalf("expected ErrNotMember to be a referential integrity error")
	}
}

func TestCheckAvailability_FilterLimitsSchedules(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.add(t, "E1", domain.EventDetails{Start: at(10, 0), End: at(11, 0)})
	dir.addSchedule(t, "S1", "E1")
	dir.addSchedule(t, "S2")
	user := member(t, "S1", "S2")

	ok, err := CheckAvailability(context.Background(), dir, user, interval(at(10, 0), at(11, 0)), "S2")
	if err != nil {
		t.Fatalf("CheckAvailability returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected S2 alone to be free")
	}
}

func TestCheckAvailability_RejectsInvalidCandidate(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	_, err := CheckAvailability(context.Background(), dir, member(t), interval(at(11, 0), at(10, 0)))
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestFindConflicts_DeduplicatesAndOrders(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.add(t, "E2", domain.EventDetails{Start: at(10, 30), End: at(11, 30)})
	dir.add(t, "E1", domain.EventDetails{Start: at(10, 0), End: at(11, 0)})
	dir.addSchedule(t, "S1", "E2", "E1", "gone")
	dir.addSchedule(t, "S2", "E1")
	user := member(t, "S1", "S2")

	conflicts, err := FindConflicts(context.Background(), dir, user, interval(at(10, 15), at(10, 45)))
	if err != nil {
		t.Fatalf("FindConflicts returned error: %v", err)
	}
	if len(conflicts) != 2 || conflicts[0].ElementID != "E1" || conflicts[1].ElementID != "E2" {
		t.Fatalf("unexpected conflicts: %+v", conflicts)
	}
	if dir.lookups["E1"] != 1 {
		t.Fatalf("expected E1 to be tested once, got %d lookups", dir.lookups["E1"])
	}
}
