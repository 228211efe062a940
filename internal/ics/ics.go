// Package ics converts schedules to and from iCalendar documents.
package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/shared-calendar/internal/domain"
)

const productID = "-//shared-calendar//EN"

// Export writes schedule and its elements as a VCALENDAR. Events keep their
// bounds; tasks and reminders are written over their display interval and
// tagged with a CATEGORIES value naming their type.
func Export(w io.Writer, schedule *domain.Schedule, elements []*domain.Element, stamp time.Time) error {
	if schedule == nil {
		return errors.New("ics: schedule is required")
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(schedule.Title())
	if description := schedule.Description(); description != nil {
		cal.SetXWRCalDesc(*description)
	}

	for _, element := range elements {
		event := cal.AddEvent(element.ID())
		event.SetDtStampTime(stamp.UTC())
		event.SetSummary(element.Title())
		if description := element.Description(); description != nil {
			event.SetDescription(*description)
		}
		interval := element.DisplayInterval()
		event.SetStartAt(interval.Start.UTC())
		event.SetEndAt(interval.End.UTC())
		if element.Type() != domain.ElementEvent {
			event.AddProperty(ical.ComponentPropertyCategories, strings.ToUpper(string(element.Type())))
		}
		if task, ok := element.Task(); ok && task.State == domain.TaskComplete {
			event.SetStatus(ical.ObjectStatusConfirmed)
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("ics: write calendar: %w", err)
	}
	return nil
}

// Event is a VEVENT read from an iCalendar document.
type Event struct {
	UID         string
	Summary     string
	Description *string
	Start       time.Time
	End         time.Time
	Category    string
}

// Parse reads every VEVENT with a usable start and end. Events without a
// UID, or whose end does not follow their start, are reported in skipped.
func Parse(r io.Reader) (events []Event, skipped []string, err error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, nil, fmt.Errorf("ics: parse calendar: %w", err)
	}

	for i, ve := range cal.Events() {
		event, perr := parseVEvent(ve)
		if perr != nil {
			skipped = append(skipped, fmt.Sprintf("event %d: %v", i, perr))
			continue
		}
		events = append(events, event)
	}
	return events, skipped, nil
}

func parseVEvent(ve *ical.VEvent) (Event, error) {
	var out Event

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil && p.Value != "" {
		description := p.Value
		out.Description = &description
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		out.Category = strings.ToLower(p.Value)
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return out, fmt.Errorf("DTEND: %w", err)
	}
	if !start.Before(end) {
		return out, errors.New("DTEND must follow DTSTART")
	}
	out.Start = start
	out.End = end
	return out, nil
}
