package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/shared-calendar/internal/domain"
)

var (
	userCounter     uint64
	scheduleCounter uint64
	elementCounter  uint64
)

var referenceTime = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the baseline instant fixtures are placed around.
func ReferenceTime() time.Time {
	return referenceTime
}

// At returns ReferenceTime's day at hour:minute UTC.
func At(hour, minute int) time.Time {
	return time.Date(referenceTime.Year(), referenceTime.Month(), referenceTime.Day(), hour, minute, 0, 0, time.UTC)
}

// ----------------------------- User fixtures -----------------------------

// UserOption configures generated user fields.
type UserOption func(*domain.UserFields)

// NewUserFields returns unique, valid user fields.
func NewUserFields(opts ...UserOption) domain.UserFields {
	idx := atomic.AddUint64(&userCounter, 1)
	fields := domain.UserFields{
		ID:             fmt.Sprintf("user-%03d", idx),
		Username:       fmt.Sprintf("user%03d", idx),
		Email:          fmt.Sprintf("user%03d@example.com", idx),
		HashedPassword: fmt.Sprintf("hash-%03d", idx),
	}
	for _, opt := range opts {
		opt(&fields)
	}
	return fields
}

// WithUserID overrides the generated id.
func WithUserID(id string) UserOption {
	return func(f *domain.UserFields) { f.ID = id }
}

// WithUsername overrides the generated username.
func WithUsername(username string) UserOption {
	return func(f *domain.UserFields) { f.Username = username }
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *domain.UserFields) { f.Email = email }
}

// WithUserSchedules sets the schedules the user belongs to.
func WithUserSchedules(ids ...string) UserOption {
	return func(f *domain.UserFields) { f.ScheduleIDs = append([]string(nil), ids...) }
}

// --------------------------- Schedule fixtures ---------------------------

// ScheduleOption configures generated schedule fields.
type ScheduleOption func(*domain.ScheduleFields)

// NewScheduleFields returns a schedule owned by ownerID.
func NewScheduleFields(ownerID string, opts ...ScheduleOption) domain.ScheduleFields {
	idx := atomic.AddUint64(&scheduleCounter, 1)
	fields := domain.ScheduleFields{
		ID:          fmt.Sprintf("schedule-%03d", idx),
		Title:       fmt.Sprintf("Schedule %03d", idx),
		Permissions: map[string]domain.Role{ownerID: domain.RoleOwner},
	}
	for _, opt := range opts {
		opt(&fields)
	}
	return fields
}

// WithScheduleID overrides the generated id.
func WithScheduleID(id string) ScheduleOption {
	return func(f *domain.ScheduleFields) { f.ID = id }
}

// WithScheduleTitle overrides the generated title.
func WithScheduleTitle(title string) ScheduleOption {
	return func(f *domain.ScheduleFields) { f.Title = title }
}

// WithScheduleMember grants role to userID.
func WithScheduleMember(userID string, role domain.Role) ScheduleOption {
	return func(f *domain.ScheduleFields) {
		if f.Permissions == nil {
			f.Permissions = make(map[string]domain.Role)
		}
		f.Permissions[userID] = role
	}
}

// ---------------------------- Element fixtures ---------------------------

// ElementOption configures generated element fields.
type ElementOption func(*domain.ElementFields)

func newElementFields(prefix string, details domain.Details, scheduleIDs []string, opts []ElementOption) domain.ElementFields {
	idx := atomic.AddUint64(&elementCounter, 1)
	fields := domain.ElementFields{
		ID:          fmt.Sprintf("%s-%03d", prefix, idx),
		Title:       fmt.Sprintf("%s %03d", prefix, idx),
		ScheduleIDs: append([]string(nil), scheduleIDs...),
		Details:     details,
	}
	for _, opt := range opts {
		opt(&fields)
	}
	return fields
}

// NewEventFields returns an event over [start, end) on the schedules.
func NewEventFields(start, end time.Time, scheduleIDs []string, opts ...ElementOption) domain.ElementFields {
	return newElementFields("event", domain.EventDetails{Start: start, End: end}, scheduleIDs, opts)
}

// NewTaskFields returns an incomplete task due at due.
func NewTaskFields(due time.Time, scheduleIDs []string, opts ...ElementOption) domain.ElementFields {
	return newElementFields("task", domain.TaskDetails{Due: due, State: domain.TaskIncomplete}, scheduleIDs, opts)
}

// NewReminderFields returns a reminder at at.
func NewReminderFields(at time.Time, scheduleIDs []string, opts ...ElementOption) domain.ElementFields {
	return newElementFields("reminder", domain.ReminderDetails{At: at}, scheduleIDs, opts)
}

// WithElementID overrides the generated id.
func WithElementID(id string) ElementOption {
	return func(f *domain.ElementFields) { f.ID = id }
}

// WithElementTitle overrides the generated title.
func WithElementTitle(title string) ElementOption {
	return func(f *domain.ElementFields) { f.Title = title }
}

// WithElementDescription sets the description.
func WithElementDescription(description string) ElementOption {
	return func(f *domain.ElementFields) {
		value := description
		f.Description = &value
	}
}
