package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewUser_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewUser(UserFields{ID: "u1", Username: "  ", Email: "a@example.com"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["username"]; !ok {
		t.Fatalf("expected username error, got %v", vErr.FieldErrors)
	}
}

func TestUser_ScheduleIDsAndCache(t *testing.T) {
	t.Parallel()

	u, err := NewUser(UserFields{ID: "u1", Username: " alice ", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("NewUser returned error: %v", err)
	}
	if u.Username() != "alice" {
		t.Fatalf("expected trimmed username, got %q", u.Username())
	}

	u.CacheElements([]string{"E1", "E1", "E2"})
	if ids, ok := u.ElementCache(); !ok || len(ids) != 2 {
		t.Fatalf("unexpected cache: %v %v", ids, ok)
	}
	u.ForgetElement("E1")
	u.RememberElement("E3")
	if ids, _ := u.ElementCache(); fmt.Sprint(ids) != "[E2 E3]" {
		t.Fatalf("unexpected cache after edits: %v", ids)
	}

	if err := u.AddSchedule("S1"); err != nil {
		t.Fatalf("AddSchedule returned error: %v", err)
	}
	if _, ok := u.ElementCache(); ok {
		t.Fatalf("expected schedule change to reset the element cache")
	}
	if !u.BelongsTo("S1") {
		t.Fatalf("expected user to belong to S1")
	}
	if err := u.RemoveSchedule("S1"); err != nil {
		t.Fatalf("RemoveSchedule returned error: %v", err)
	}
	if u.BelongsTo("S1") {
		t.Fatalf("expected S1 to be removed")
	}
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}
	if got := (&ValidationError{}).Error(); got != "validation failed" {
		t.Fatalf("unexpected message: %q", got)
	}
	withFields := &ValidationError{FieldErrors: map[string]string{"title": "title is required", "end": "bad"}}
	if got := withFields.Error(); got != "validation failed: end: bad; title: title is required" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := map[string]error{
		"not_found":             fmt.Errorf("wrap: %w", ErrNotFound),
		"already_exists":        ErrAlreadyExists,
		"not_member":            ErrNotMember,
		"referential_integrity": ErrReferentialIntegrity,
		"unsupported_type":      ErrUnsupportedType,
		"validation":            NewValidationError("title", "bad"),
		"unexpected":            errors.New("boom"),
		"":                      nil,
	}
	for want, err := range tests {
		if got := ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
