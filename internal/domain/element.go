package domain

import (
	"fmt"
	"strings"
	"time"
)

// ElementType discriminates the element variants.
type ElementType string

const (
	// ElementEvent spans a start and end time and can conflict with other events.
	ElementEvent ElementType = "event"
	// ElementTask has a due date and a completion state.
	ElementTask ElementType = "task"
	// ElementReminder fires at a single instant.
	ElementReminder ElementType = "reminder"
)

// ReminderLead is how far before its anchor a task or reminder is displayed.
const ReminderLead = 10 * time.Minute

// ParseElementType maps a discriminator to an ElementType.
func ParseElementType(value string) (ElementType, error) {
	switch t := ElementType(strings.ToLower(strings.TrimSpace(value))); t {
	case ElementEvent, ElementTask, ElementReminder:
		return t, nil
	}
	return "", fmt.Errorf("%w: element type %q", ErrUnsupportedType, value)
}

// TaskState is the completion state of a task.
type TaskState string

const (
	TaskIncomplete TaskState = "incomplete"
	TaskComplete   TaskState = "complete"
	TaskCancelled  TaskState = "cancelled"
)

// ParseTaskState validates a task state. Blank maps to TaskIncomplete.
func ParseTaskState(value string) (TaskState, error) {
	state := TaskState(strings.ToLower(strings.TrimSpace(value)))
	if state == "" {
		return TaskIncomplete, nil
	}
	if !state.Valid() {
		return "", NewValidationError("state", fmt.Sprintf("unknown task state %q", value))
	}
	return state, nil
}

// Valid reports whether the state is known.
func (s TaskState) Valid() bool {
	switch s {
	case TaskIncomplete, TaskComplete, TaskCancelled:
		return true
	}
	return false
}

// Details is the variant specific payload of an element. The set of
// implementations is closed: EventDetails, TaskDetails and ReminderDetails.
type Details interface {
	Type() ElementType
	validate(v *ValidationError)
	normalize() Details
	interval() Interval
	encode(r Record)
}

// EventDetails holds the bounds of an event.
type EventDetails struct {
	Start time.Time
	End   time.Time
}

// Type implements Details.
func (EventDetails) Type() ElementType { return ElementEvent }

func (d EventDetails) validate(v *ValidationError) {
	validateTime("start", d.Start, v)
	validateTime("end", d.End, v)
	if !d.Start.IsZero() && !d.End.IsZero() && !d.Start.Before(d.End) {
		v.Add("end", "start must be before end")
	}
}

func (d EventDetails) normalize() Details {
	return EventDetails{Start: normalizeTime(d.Start), End: normalizeTime(d.End)}
}

func (d EventDetails) interval() Interval { return Interval{Start: d.Start, End: d.End} }

func (d EventDetails) encode(r Record) {
	r["start"] = formatTime(d.Start)
	r["end"] = formatTime(d.End)
}

// TaskDetails holds the due date and state of a task.
type TaskDetails struct {
	Due   time.Time
	State TaskState
}

// Type implements Details.
func (TaskDetails) Type() ElementType { return ElementTask }

func (d TaskDetails) validate(v *ValidationError) {
	validateTime("due_date", d.Due, v)
	if d.State != "" && !d.State.Valid() {
		v.Add("state", fmt.Sprintf("unknown task state %q", d.State))
	}
}

func (d TaskDetails) normalize() Details {
	state := d.State
	if state == "" {
		state = TaskIncomplete
	}
	return TaskDetails{Due: normalizeTime(d.Due), State: state}
}

func (d TaskDetails) interval() Interval {
	return Interval{Start: d.Due.Add(-ReminderLead), End: d.Due}
}

func (d TaskDetails) encode(r Record) {
	r["due_date"] = formatTime(d.Due)
	r["state"] = string(d.State)
}

// ReminderDetails holds the instant a reminder fires.
type ReminderDetails struct {
	At time.Time
}

// Type implements Details.
func (ReminderDetails) Type() ElementType { return ElementReminder }

func (d ReminderDetails) validate(v *ValidationError) {
	validateTime("reminder_date", d.At, v)
}

func (d ReminderDetails) normalize() Details {
	return ReminderDetails{At: normalizeTime(d.At)}
}

func (d ReminderDetails) interval() Interval {
	return Interval{Start: d.At.Add(-ReminderLead), End: d.At}
}

func (d ReminderDetails) encode(r Record) {
	r["reminder_date"] = formatTime(d.At)
}

// ElementFields carries the values used to construct an Element.
type ElementFields struct {
	ID          string
	Title       string
	Description *string
	ScheduleIDs []string
	Details     Details
}

// Element is a calendar item: an event, a task or a reminder. Schedules are
// referenced by id only.
type Element struct {
	subject

	id          string
	title       string
	description *string
	scheduleIDs []string
	details     Details
}

// NewElement validates the fields and returns a detached Element.
func NewElement(fields ElementFields) (*Element, error) {
	if fields.Details == nil {
		return nil, fmt.Errorf("%w: element details are required", ErrUnsupportedType)
	}
	vErr := &ValidationError{}
	validateID("id", fields.ID, vErr)
	validateTitle(fields.Title, vErr)
	validateDescription(fields.Description, vErr)
	validateIDList("schedule_ids", fields.ScheduleIDs, true, vErr)
	details := fields.Details.normalize()
	details.validate(vErr)
	if err := vErr.errOrNil(); err != nil {
		return nil, err
	}

	return &Element{
		id:          fields.ID,
		title:       strings.TrimSpace(fields.Title),
		description: cloneDescription(fields.Description),
		scheduleIDs: uniqueStrings(fields.ScheduleIDs),
		details:     details,
	}, nil
}

// normalizeTime drops the monotonic reading and sub-second precision so the
// in-memory value matches what a record round-trip yields.
func normalizeTime(t time.Time) time.Time {
	return t.Round(0).Truncate(time.Second)
}

// EntityID implements Entity.
func (e *Element) EntityID() string { return e.id }

// ID returns the element id.
func (e *Element) ID() string { return e.id }

// Title returns the trimmed title.
func (e *Element) Title() string { return e.title }

// Description returns the optional description.
func (e *Element) Description() *string { return cloneDescription(e.description) }

// ScheduleIDs returns a copy of the referenced schedule ids.
func (e *Element) ScheduleIDs() []string { return cloneStrings(e.scheduleIDs) }

// InSchedule reports whether the element lists the schedule.
func (e *Element) InSchedule(scheduleID string) bool {
	return containsString(e.scheduleIDs, scheduleID)
}

// Type returns the element discriminator.
func (e *Element) Type() ElementType { return e.details.Type() }

// Details returns the variant payload by value.
func (e *Element) Details() Details { return e.details }

// Event returns the event payload when the element is an event.
func (e *Element) Event() (EventDetails, bool) {
	d, ok := e.details.(EventDetails)
	return d, ok
}

// Task returns the task payload when the element is a task.
func (e *Element) Task() (TaskDetails, bool) {
	d, ok := e.details.(TaskDetails)
	return d, ok
}

// Reminder returns the reminder payload when the element is a reminder.
func (e *Element) Reminder() (ReminderDetails, bool) {
	d, ok := e.details.(ReminderDetails)
	return d, ok
}

// DisplayInterval is the range used to place the element on a calendar:
// the event bounds, or the ten minutes leading up to a task or reminder.
func (e *Element) DisplayInterval() Interval {
	return e.details.interval()
}

// SetTitle replaces the title.
func (e *Element) SetTitle(title string) error {
	vErr := &ValidationError{}
	validateTitle(title, vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	e.title = strings.TrimSpace(title)
	return e.notify(e)
}

// SetDescription replaces the description. nil clears it.
func (e *Element) SetDescription(description *string) error {
	vErr := &ValidationError{}
	validateDescription(description, vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	e.description = cloneDescription(description)
	return e.notify(e)
}

// SetDetails replaces the variant payload. The element type cannot change.
func (e *Element) SetDetails(details Details) error {
	if details == nil {
		return NewValidationError("element_type", "element details are required")
	}
	if details.Type() != e.Type() {
		return NewValidationError("element_type", fmt.Sprintf("cannot change %s into %s", e.Type(), details.Type()))
	}
	details = details.normalize()
	vErr := &ValidationError{}
	details.validate(vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	e.details = details
	return e.notify(e)
}

// SetEventTimes replaces the bounds of an event.
func (e *Element) SetEventTimes(start, end time.Time) error {
	if _, ok := e.Event(); !ok {
		return e.wrongType(ElementEvent)
	}
	return e.SetDetails(EventDetails{Start: start, End: end})
}

// SetDueDate replaces the due date of a task.
func (e *Element) SetDueDate(due time.Time) error {
	task, ok := e.Task()
	if !ok {
		return e.wrongType(ElementTask)
	}
	task.Due = due
	return e.SetDetails(task)
}

// SetState replaces the state of a task.
func (e *Element) SetState(state TaskState) error {
	task, ok := e.Task()
	if !ok {
		return e.wrongType(ElementTask)
	}
	if !state.Valid() {
		return NewValidationError("state", fmt.Sprintf("unknown task state %q", state))
	}
	task.State = state
	return e.SetDetails(task)
}

// SetReminderDate replaces the instant of a reminder.
func (e *Element) SetReminderDate(at time.Time) error {
	if _, ok := e.Reminder(); !ok {
		return e.wrongType(ElementReminder)
	}
	return e.SetDetails(ReminderDetails{At: at})
}

// AddSchedule lists an additional schedule id.
func (e *Element) AddSchedule(scheduleID string) error {
	vErr := &ValidationError{}
	validateID("schedule_id", scheduleID, vErr)
	if err := vErr.errOrNil(); err != nil {
		return err
	}
	if containsString(e.scheduleIDs, scheduleID) {
		return nil
	}
	e.scheduleIDs = append(e.scheduleIDs, scheduleID)
	return e.notify(e)
}

// RemoveSchedule drops a schedule id. The last schedule cannot be removed.
func (e *Element) RemoveSchedule(scheduleID string) error {
	if !containsString(e.scheduleIDs, scheduleID) {
		return nil
	}
	if len(e.scheduleIDs) == 1 {
		return NewValidationError("schedule_ids", "at least one id is required")
	}
	e.scheduleIDs, _ = removeString(e.scheduleIDs, scheduleID)
	return e.notify(e)
}

func (e *Element) wrongType(want ElementType) error {
	return NewValidationError("element_type", fmt.Sprintf("element %s is a %s, not a %s", e.id, e.Type(), want))
}

// ToRecord implements Entity.
func (e *Element) ToRecord() Record {
	r := Record{
		"id":           e.id,
		"title":        e.title,
		"description":  descriptionValue(e.description),
		"schedule_ids": cloneStrings(e.scheduleIDs),
		"element_type": string(e.Type()),
	}
	e.details.encode(r)
	return r
}
