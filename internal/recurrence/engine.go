// Package recurrence expands repeat rules into the intervals of individual
// events.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/shared-calendar/internal/domain"
)

// Frequency represents supported recurrence intervals.
type Frequency string

const (
	// FrequencyDaily repeats every day, or on the listed weekdays only.
	FrequencyDaily Frequency = "daily"
	// FrequencyWeekly repeats on the listed weekdays, defaulting to the
	// weekday of the first occurrence.
	FrequencyWeekly Frequency = "weekly"
)

// MaxOccurrences bounds a single expansion.
const MaxOccurrences = 366

var (
	// ErrInvalidFrequency indicates the recurrence frequency is not supported.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrInvalidWindow indicates neither Until nor Count bounds the rule.
	ErrInvalidWindow = errors.New("recurrence: rule requires until or count")
	// ErrTooManyOccurrences indicates the rule expands past MaxOccurrences.
	ErrTooManyOccurrences = errors.New("recurrence: too many occurrences")
)

// ParseFrequency validates a frequency name.
func ParseFrequency(value string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(value))); f {
	case FrequencyDaily, FrequencyWeekly:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekday accepts English weekday names and their three letter forms.
func ParseWeekday(value string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if len(key) >= 3 {
		if day, ok := weekdayNames[key[:3]]; ok && strings.HasPrefix(strings.ToLower(day.String()), key) {
			return day, nil
		}
	}
	return 0, fmt.Errorf("recurrence: unknown weekday %q", value)
}

// Rule describes how an event repeats. Until is inclusive by date; Count
// caps the number of occurrences. At least one of them must be set.
type Rule struct {
	Frequency Frequency
	Weekdays  []time.Weekday
	Until     time.Time
	Count     int
}

// Engine expands rules with wall-clock times kept in one location.
type Engine struct {
	location *time.Location
}

// NewEngine returns an Engine for loc, or time.Local when loc is nil.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{location: loc}
}

// Expand returns the occurrences of rule starting from first, first
// included when the rule selects its day. Each occurrence keeps first's
// wall-clock start and duration, so a daylight saving change does not shift
// events.
func (e *Engine) Expand(rule Rule, first domain.Interval) ([]domain.Interval, error) {
	if err := first.Validate(); err != nil {
		return nil, err
	}
	if rule.Until.IsZero() && rule.Count <= 0 {
		return nil, ErrInvalidWindow
	}

	start := first.Start.In(e.location)
	duration := first.End.Sub(first.Start)

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}
	if rule.Frequency == FrequencyWeekly && len(weekdaySet) == 0 {
		weekdaySet[start.Weekday()] = struct{}{}
	}

	var lastDay time.Time
	if !rule.Until.IsZero() {
		y, m, d := rule.Until.In(e.location).Date()
		lastDay = time.Date(y, m, d, 0, 0, 0, 0, e.location)
	}

	y, m, d := start.Date()

	var out []domain.Interval
	for day := time.Date(y, m, d, 0, 0, 0, 0, e.location); lastDay.IsZero() || !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		include, err := shouldInclude(rule.Frequency, weekdaySet, day.Weekday())
		if err != nil {
			return nil, err
		}
		if include {
			if len(out) == MaxOccurrences {
				return nil, fmt.Errorf("%w: more than %d", ErrTooManyOccurrences, MaxOccurrences)
			}
			begin := time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), e.location)
			out = append(out, domain.Interval{Start: begin, End: begin.Add(duration)})
			if rule.Count > 0 && len(out) == rule.Count {
				break
			}
		}
	}
	return out, nil
}

func shouldInclude(freq Frequency, weekdaySet map[time.Weekday]struct{}, day time.Weekday) (bool, error) {
	switch freq {
	case FrequencyDaily:
		if len(weekdaySet) == 0 {
			return true, nil
		}
		_, ok := weekdaySet[day]
		return ok, nil
	case FrequencyWeekly:
		_, ok := weekdaySet[day]
		return ok, nil
	default:
		return false, ErrInvalidFrequency
	}
}
