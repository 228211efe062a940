package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewSchedule_RequiresPermissions(t *testing.T) {
	t.Parallel()

	_, err := NewSchedule(ScheduleFields{ID: "S1", Title: "Team"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["permissions"]; !ok {
		t.Fatalf("expected permissions error, got %v", vErr.FieldErrors)
	}
}

func TestNewSchedule_RejectsUnknownRole(t *testing.T) {
	t.Parallel()

	_, err := NewSchedule(ScheduleFields{ID: "S1", Title: "Team", Permissions: map[string]Role{"u1": "admin"}})
	if err == nil {
		t.Fatalf("expected unknown role to fail")
	}
}

func TestSchedule_PermissionsAndElements(t *testing.T) {
	t.Parallel()

	s, err := NewSchedule(ScheduleFields{ID: "S1", Title: "  Team  ", Permissions: map[string]Role{"u1": RoleOwner}})
	if err != nil {
		t.Fatalf("NewSchedule returned error: %v", err)
	}
	if s.Title() != "Team" {
		t.Fatalf("expected trimmed title, got %q", s.Title())
	}

	obs := &recordingObserver{}
	s.Attach(obs)

	if err := s.Revoke("u1"); err == nil {
		t.Fatalf("expected revoking the last permission to fail")
	}
	if err := s.Grant("u2", RoleRead); err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	if err := s.Grant("u2", RoleRead); err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	if len(obs.calls) != 1 {
		t.Fatalf("expected unchanged grant to skip notification, got %d calls", len(obs.calls))
	}
	if role, ok := s.RoleOf("u2"); !ok || role.CanWrite() {
		t.Fatalf("expected read role for u2, got %q", role)
	}
	if err := s.Revoke("u1"); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}

	if err := s.AddElement("E1"); err != nil {
		t.Fatalf("AddElement returned error: %v", err)
	}
	if err := s.AddElement("E2"); err != nil {
		t.Fatalf("AddElement returned error: %v", err)
	}
	if err := s.RemoveElement("E1"); err != nil {
		t.Fatalf("RemoveElement returned error: %v", err)
	}
	if got := s.ElementIDs(); len(got) != 1 || got[0] != "E2" {
		t.Fatalf("unexpected element ids: %v", got)
	}
}

func TestSchedule_Successor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		perms  map[string]Role
		leaver string
		want   string
		ok     bool
	}{
		{"writer preferred over reader", map[string]Role{"u1": RoleOwner, "a": RoleRead, "b": RoleWrite}, "u1", "b", true},
		{"smallest id among readers", map[string]Role{"u1": RoleOwner, "c": RoleRead, "b": RoleRead}, "u1", "b", true},
		{"another owner remains", map[string]Role{"u1": RoleOwner, "u2": RoleOwner, "a": RoleWrite}, "u1", "", false},
		{"leaver is not an owner", map[string]Role{"u1": RoleOwner, "a": RoleWrite}, "a", "", false},
		{"no other member", map[string]Role{"u1": RoleOwner}, "u1", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := NewSchedule(ScheduleFields{ID: "S1", Title: "Team", Permissions: tt.perms})
			if err != nil {
				t.Fatalf("NewSchedule returned error: %v", err)
			}
			got, ok := s.Successor(tt.leaver)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("expected (%q, %v), got (%q, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

func TestInterval_Overlaps(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	span := func(startHour, startMin, endHour, endMin int) Interval {
		return Interval{
			Start: base.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute),
			End:   base.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute),
		}
	}

	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"touching end", span(10, 0, 11, 0), span(11, 0, 12, 0), false},
		{"touching start", span(11, 0, 12, 0), span(10, 0, 11, 0), false},
		{"contained", span(10, 0, 11, 0), span(10, 30, 10, 45), true},
		{"partial", span(10, 0, 11, 0), span(10, 59, 11, 30), true},
		{"disjoint", span(8, 0, 9, 0), span(10, 0, 11, 0), false},
	}

	for _, tt := range tests {
		if got := tt.a.Overlaps(tt.b); got != tt.want {
			t.Fatalf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestInterval_Validate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if _, err := NewInterval(now, now); err == nil {
		t.Fatalf("expected empty interval to fail")
	}
	if _, err := NewInterval(time.Time{}, now); err == nil {
		t.Fatalf("expected zero start to fail")
	}
	if _, err := NewInterval(now, now.Add(time.Minute)); err != nil {
		t.Fatalf("NewInterval returned error: %v", err)
	}
}
