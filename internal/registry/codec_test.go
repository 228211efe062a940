package registry

import (
	"errors"
	"testing"

	"github.com/example/shared-calendar/internal/domain"
	"github.com/example/shared-calendar/internal/store"
)

func TestDecodeSchedule_AcceptsBothShapes(t *testing.T) {
	t.Parallel()

	native := store.Record{
		"id":          "S1",
		"title":       "Team",
		"description": nil,
		"permissions": map[string]string{"u1": "owner"},
		"element_ids": []string{"E1"},
	}
	decoded := store.Record{
		"id":          "S1",
		"title":       "Team",
		"description": nil,
		"permissions": map[string]any{"u1": "owner"},
		"element_ids": []any{"E1"},
	}

	for name, record := range map[string]store.Record{"native": native, "decoded": decoded} {
		schedule, err := decodeSchedule(record)
		if err != nil {
			t.Fatalf("%s: decodeSchedule returned error: %v", name, err)
		}
		if role, ok := schedule.RoleOf("u1"); !ok || role != domain.RoleOwner {
			t.Fatalf("%s: expected owner role, got %q", name, role)
		}
		if !schedule.HasElement("E1") {
			t.Fatalf("%s: expected E1 to be listed", name)
		}
	}
}

func TestDecodeElement_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		record  store.Record
		wantErr func(error) bool
	}{
		{
			name:   "missing type",
			record: store.Record{"id": "E1", "title": "x", "schedule_ids": []any{"S1"}},
			wantErr: func(err error) bool {
				var vErr *domain.ValidationError
				return errors.As(err, &vErr)
			},
		},
		{
			name:   "unknown type",
			record: store.Record{"id": "E1", "title": "x", "schedule_ids": []any{"S1"}, "element_type": "holiday"},
			wantErr: func(err error) bool {
				return errors.Is(err, domain.ErrUnsupportedType)
			},
		},
		{
			name:   "schedule ids not strings",
			record: store.Record{"id": "E1", "title": "x", "schedule_ids": []any{1.0}, "element_type": "reminder", "reminder_date": "2024-03-01T10:00:00Z"},
			wantErr: func(err error) bool {
				var vErr *domain.ValidationError
				return errors.As(err, &vErr) && vErr.FieldErrors["schedule_ids"] != ""
			},
		},
		{
			name:   "unknown task state",
			record: store.Record{"id": "T1", "title": "x", "schedule_ids": []any{"S1"}, "element_type": "task", "due_date": "2024-03-01T10:00:00Z", "state": "paused"},
			wantErr: func(err error) bool {
				var vErr *domain.ValidationError
				return errors.As(err, &vErr) && vErr.FieldErrors["state"] != ""
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := decodeElement(tt.record)
			if !tt.wantErr(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestElementFromRecord_TaskDefaultsToIncomplete(t *testing.T) {
	t.Parallel()

	element, err := ElementFromRecord(domain.Record{
		"id":           "T1",
		"title":        "Report",
		"schedule_ids": []string{"S1"},
		"element_type": "task",
		"due_date":     "2024-03-01T17:00:00+09:00",
	})
	if err != nil {
		t.Fatalf("ElementFromRecord returned error: %v", err)
	}
	task, ok := element.Task()
	if !ok || task.State != domain.TaskIncomplete {
		t.Fatalf("expected incomplete task, got %+v", task)
	}
	if got := element.DisplayInterval().End.UTC().Hour(); got != 8 {
		t.Fatalf("expected due hour 8 UTC, got %d", got)
	}
}
