package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/example/shared-calendar/internal/domain"
)

var jst = time.FixedZone("JST", 9*60*60)

func standup() domain.Interval {
	// Monday 4 March 2024, 09:00-09:15 JST.
	start := time.Date(2024, time.March, 4, 9, 0, 0, 0, jst)
	return domain.Interval{Start: start, End: start.Add(15 * time.Minute)}
}

func TestEngine_Expand(t *testing.T) {
	t.Parallel()
	engine := NewEngine(jst)

	t.Run("respects weekday selections", func(t *testing.T) {
		t.Parallel()
		rule := Rule{
			Frequency: FrequencyWeekly,
			Weekdays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			Until:     time.Date(2024, time.March, 15, 0, 0, 0, 0, jst),
		}

		got, err := engine.Expand(rule, standup())
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		wantDays := []int{4, 6, 8, 11, 13, 15}
		if len(got) != len(wantDays) {
			t.Fatalf("expected %d occurrences, got %d", len(wantDays), len(got))
		}
		for i, occurrence := range got {
			if occurrence.Start.Day() != wantDays[i] || occurrence.Start.Hour() != 9 {
				t.Fatalf("occurrence %d starts at %v", i, occurrence.Start)
			}
			if occurrence.End.Sub(occurrence.Start) != 15*time.Minute {
				t.Fatalf("occurrence %d has duration %v", i, occurrence.End.Sub(occurrence.Start))
			}
		}
	})

	t.Run("weekly defaults to the first weekday", func(t *testing.T) {
		t.Parallel()
		got, err := engine.Expand(Rule{Frequency: FrequencyWeekly, Count: 3}, standup())
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(got) != 3 || got[2].Start.Day() != 18 || got[2].Start.Weekday() != time.Monday {
			t.Fatalf("unexpected occurrences: %v", got)
		}
	})

	t.Run("count stops daily expansion", func(t *testing.T) {
		t.Parallel()
		got, err := engine.Expand(Rule{Frequency: FrequencyDaily, Count: 5}, standup())
		if err != nil {
			t.Fatalf("Expand returned error: %v", err)
		}
		if len(got) != 5 || got[4].Start.Day() != 8 {
			t.Fatalf("unexpected occurrences: %v", got)
		}
	})

	t.Run("requires a bound", func(t *testing.T) {
		t.Parallel()
		if _, err := engine.Expand(Rule{Frequency: FrequencyDaily}, standup()); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
	})

	t.Run("caps expansion", func(t *testing.T) {
		t.Parallel()
		rule := Rule{Frequency: FrequencyDaily, Until: standup().Start.AddDate(2, 0, 0)}
		if _, err := engine.Expand(rule, standup()); !errors.Is(err, ErrTooManyOccurrences) {
			t.Fatalf("expected ErrTooManyOccurrences, got %v", err)
		}
	})

	t.Run("rejects unknown frequency", func(t *testing.T) {
		t.Parallel()
		if _, err := engine.Expand(Rule{Frequency: "hourly", Count: 2}, standup()); !errors.Is(err, ErrInvalidFrequency) {
			t.Fatalf("expected ErrInvalidFrequency, got %v", err)
		}
	})
}

func TestEngine_KeepsWallClockAcrossDST(t *testing.T) {
	t.Parallel()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	// 10 March 2024 is the spring-forward day in New York.
	start := time.Date(2024, time.March, 9, 9, 0, 0, 0, ny)
	got, err := NewEngine(ny).Expand(Rule{Frequency: FrequencyDaily, Count: 3}, domain.Interval{Start: start, End: start.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	for _, occurrence := range got {
		if occurrence.Start.Hour() != 9 {
			t.Fatalf("expected 09:00 local, got %v", occurrence.Start)
		}
	}
}

func TestParseHelpers(t *testing.T) {
	t.Parallel()
	if f, err := ParseFrequency(" Weekly "); err != nil || f != FrequencyWeekly {
		t.Fatalf("ParseFrequency: %v %v", f, err)
	}
	if _, err := ParseFrequency("monthly"); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
	for input, want := range map[string]time.Weekday{"mon": time.Monday, "Wednesday": time.Wednesday, "SAT": time.Saturday} {
		if got, err := ParseWeekday(input); err != nil || got != want {
			t.Fatalf("ParseWeekday(%q) = %v, %v", input, got, err)
		}
	}
	if _, err := ParseWeekday("funday"); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
}
