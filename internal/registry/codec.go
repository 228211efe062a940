package registry

import (
	"fmt"
	"time"

	"github.com/example/shared-calendar/internal/domain"
	"github.com/example/shared-calendar/internal/store"
)

// Records come back from stores either with their original Go types or in the
// shapes encoding/json produces ([]any, map[string]any), so every reader
// accepts both.

func decodeUser(r store.Record) (*domain.User, error) {
	v := &domain.ValidationError{}
	fields := domain.UserFields{
		ID:             readString(r, "id", v),
		Username:       readString(r, "username", v),
		Email:          readString(r, "email", v),
		HashedPassword: readOptionalString(r, "hashed_password", v),
		ScheduleIDs:    readStrings(r, "schedule_ids", v),
		Preferences:    readStringMap(r, "preferences", v),
	}
	if v.HasErrors() {
		return nil, v
	}
	return domain.NewUser(fields)
}

func decodeSchedule(r store.Record) (*domain.Schedule, error) {
	v := &domain.ValidationError{}
	fields := domain.ScheduleFields{
		ID:          readString(r, "id", v),
		Title:       readString(r, "title", v),
		Description: readDescription(r, v),
		ElementIDs:  readStrings(r, "element_ids", v),
	}
	raw := readStringMap(r, "permissions", v)
	if raw != nil {
		fields.Permissions = make(map[string]domain.Role, len(raw))
		for userID, name := range raw {
			role, err := domain.ParseRole(name)
			if err != nil {
				v.Add("permissions", fmt.Sprintf("user %s: unknown role %q", userID, name))
				continue
			}
			fields.Permissions[userID] = role
		}
	}
	if v.HasErrors() {
		return nil, v
	}
	return domain.NewSchedule(fields)
}

// decodeElement dispatches on element_type. Unknown discriminators fail with
// domain.ErrUnsupportedType.
func decodeElement(r store.Record) (*domain.Element, error) {
	v := &domain.ValidationError{}
	typeName := readString(r, "element_type", v)
	if v.HasErrors() {
		return nil, v
	}
	elementType, err := domain.ParseElementType(typeName)
	if err != nil {
		return nil, err
	}

	fields := domain.ElementFields{
		ID:          readString(r, "id", v),
		Title:       readString(r, "title", v),
		Description: readDescription(r, v),
		ScheduleIDs: readStrings(r, "schedule_ids", v),
	}
	switch elementType {
	case domain.ElementEvent:
		fields.Details = domain.EventDetails{
			Start: readTime(r, "start", v),
			End:   readTime(r, "end", v),
		}
	case domain.ElementTask:
		state, err := domain.ParseTaskState(readOptionalString(r, "state", v))
		if err != nil {
			v.Add("state", err.Error())
		}
		fields.Details = domain.TaskDetails{Due: readTime(r, "due_date", v), State: state}
	case domain.ElementReminder:
		fields.Details = domain.ReminderDetails{At: readTime(r, "reminder_date", v)}
	}
	if v.HasErrors() {
		return nil, v
	}
	return domain.NewElement(fields)
}

// ElementFromRecord builds a detached element from its record form.
func ElementFromRecord(r domain.Record) (*domain.Element, error) {
	return decodeElement(store.Record(r))
}

func readString(r store.Record, key string, v *domain.ValidationError) string {
	raw, ok := r[key]
	if !ok || raw == nil {
		v.Add(key, "is required")
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.Add(key, fmt.Sprintf("must be a string, got %T", raw))
		return ""
	}
	return s
}

func readOptionalString(r store.Record, key string, v *domain.ValidationError) string {
	raw, ok := r[key]
	if !ok || raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.Add(key, fmt.Sprintf("must be a string, got %T", raw))
		return ""
	}
	return s
}

func readDescription(r store.Record, v *domain.ValidationError) *string {
	raw, ok := r["description"]
	if !ok || raw == nil {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		v.Add("description", fmt.Sprintf("must be a string or null, got %T", raw))
		return nil
	}
	return &s
}

func readStrings(r store.Record, key string, v *domain.ValidationError) []string {
	switch raw := r[key].(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), raw...)
	case []any:
		out := make([]string, 0, len(raw))
		for i, item := range raw {
			s, ok := item.(string)
			if !ok {
				v.Add(key, fmt.Sprintf("entry %d must be a string, got %T", i, item))
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		v.Add(key, fmt.Sprintf("must be a list of strings, got %T", raw))
		return nil
	}
}

func readStringMap(r store.Record, key string, v *domain.ValidationError) map[string]string {
	switch raw := r[key].(type) {
	case nil:
		return nil
	case map[string]string:
		out := make(map[string]string, len(raw))
		for k, val := range raw {
			out[k] = val
		}
		return out
	case map[string]any:
		out := make(map[string]string, len(raw))
		for k, item := range raw {
			s, ok := item.(string)
			if !ok {
				v.Add(key, fmt.Sprintf("value of %s must be a string, got %T", k, item))
				return nil
			}
			out[k] = s
		}
		return out
	default:
		v.Add(key, fmt.Sprintf("must be a mapping of strings, got %T", raw))
		return nil
	}
}

func readTime(r store.Record, key string, v *domain.ValidationError) time.Time {
	switch raw := r[key].(type) {
	case nil:
		v.Add(key, "is required")
	case time.Time:
		return raw
	case string:
		t, err := time.Parse(domain.TimeLayout, raw)
		if err != nil {
			v.Add(key, fmt.Sprintf("must be an RFC 3339 datetime, got %q", raw))
			return time.Time{}
		}
		return t
	default:
		v.Add(key, fmt.Sprintf("must be a datetime, got %T", raw))
	}
	return time.Time{}
}
