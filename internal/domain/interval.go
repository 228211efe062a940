package domain

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval validates and returns an interval.
func NewInterval(start, end time.Time) (Interval, error) {
	i := Interval{Start: start, End: end}
	if err := i.Validate(); err != nil {
		return Interval{}, err
	}
	return i, nil
}

// Validate requires both bounds and Start strictly before End.
func (i Interval) Validate() error {
	vErr := &ValidationError{}
	validateTime("start", i.Start, vErr)
	validateTime("end", i.End, vErr)
	if !i.Start.IsZero() && !i.End.IsZero() && !i.Start.Before(i.End) {
		vErr.Add("interval", "start must be before end")
	}
	return vErr.errOrNil()
}

// Overlaps reports whether two half-open intervals share any instant.
// Intervals that only touch at a boundary do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}
