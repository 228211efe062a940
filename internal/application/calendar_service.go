package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/example/shared-calendar/internal/domain"
	"github.com/example/shared-calendar/internal/ics"
	"github.com/example/shared-calendar/internal/recurrence"
	"github.com/example/shared-calendar/internal/registry"
	"github.com/example/shared-calendar/internal/scheduler"
)

// ScheduleInput carries the editable fields of a schedule.
type ScheduleInput struct {
	Title       string
	Description *string
}

// ElementInput carries the fields of a new element. With RequireFree set,
// an event is rejected with ErrConflict when it overlaps an event the actor
// can already see.
type ElementInput struct {
	ID          string
	Title       string
	Description *string
	ScheduleIDs []string
	Details     domain.Details
	RequireFree bool
}

// ImportResult reports what an ICS import did.
type ImportResult struct {
	Created []string
	Skipped []string
}

// CalendarService applies permission rules on top of the registries and
// answers day, month and availability questions.
type CalendarService struct {
	regs   *registry.Registries
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewCalendarService wires dependencies for the calendar service. Days are
// cut in loc, which defaults to time.Local.
func NewCalendarService(regs *registry.Registries, loc *time.Location, now func() time.Time, logger *slog.Logger) *CalendarService {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &CalendarService{regs: regs, loc: loc, now: now, logger: defaultLogger(logger)}
}

func (s *CalendarService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CalendarService", operation, attrs...)
}

// CreateSchedule creates a schedule owned by ownerID and lists it on the owner.
func (s *CalendarService) CreateSchedule(ctx context.Context, ownerID string, input ScheduleInput) (schedule *domain.Schedule, err error) {
	logger := s.loggerWith(ctx, "CreateSchedule", "user_id", ownerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("schedule_id", schedule.ID()).InfoContext(ctx, "schedule created")
	}()

	owner, err := s.regs.Users.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	schedule, err = s.regs.Schedules.Create(ctx, domain.ScheduleFields{
		Title:       input.Title,
		Description: input.Description,
		Permissions: map[string]domain.Role{owner.ID(): domain.RoleOwner},
	})
	if err != nil {
		return nil, err
	}
	if err := owner.AddSchedule(schedule.ID()); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Schedules lists the schedules a user belongs to. Ids that no longer
// resolve are skipped.
func (s *CalendarService) Schedules(ctx context.Context, userID string) ([]*domain.Schedule, error) {
	user, err := s.regs.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Schedule, 0, len(user.ScheduleIDs()))
	for _, id := range user.ScheduleIDs() {
		schedule, err := s.regs.Schedules.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, schedule)
	}
	return out, nil
}

// Share grants a role on a schedule the actor owns and lists the schedule on
// the grantee.
func (s *CalendarService) Share(ctx context.Context, actorID, scheduleID, userID string, role domain.Role) (err error) {
	logger := s.loggerWith(ctx, "Share", "user_id", actorID, "schedule_id", scheduleID, "grantee_id", userID, "role", role)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to share schedule", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule shared")
	}()

	schedule, err := s.authorize(ctx, actorID, scheduleID, isOwner)
	if err != nil {
		return err
	}
	grantee, err := s.regs.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := schedule.Grant(grantee.ID(), role); err != nil {
		return err
	}
	return grantee.AddSchedule(schedule.ID())
}

// Unshare revokes a user's role on a schedule the actor owns.
func (s *CalendarService) Unshare(ctx context.Context, actorID, scheduleID, userID string) (err error) {
	logger := s.loggerWith(ctx, "Unshare", "user_id", actorID, "schedule_id", scheduleID, "grantee_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to unshare schedule", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	schedule, err := s.authorize(ctx, actorID, scheduleID, isOwner)
	if err != nil {
		return err
	}
	if err := schedule.Revoke(userID); err != nil {
		return err
	}
	user, err := s.regs.Users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return user.RemoveSchedule(scheduleID)
}

// DeleteSchedule deletes a schedule the actor owns.
func (s *CalendarService) DeleteSchedule(ctx context.Context, actorID, scheduleID string) error {
	if _, err := s.authorize(ctx, actorID, scheduleID, isOwner); err != nil {
		return err
	}
	return s.regs.Schedules.Delete(ctx, scheduleID)
}

// AddElement creates an element on schedules the actor may write to.
func (s *CalendarService) AddElement(ctx context.Context, actorID string, input ElementInput) (element *domain.Element, err error) {
	logger := s.loggerWith(ctx, "AddElement", "user_id", actorID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add element", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("element_id", element.ID(), "element_type", element.Type()).InfoContext(ctx, "element added")
	}()

	for _, scheduleID := range input.ScheduleIDs {
		if _, err := s.authorize(ctx, actorID, scheduleID, canWrite); err != nil {
			return nil, err
		}
	}

	if event, ok := input.Details.(domain.EventDetails); ok && input.RequireFree {
		actor, err := s.regs.Users.Get(ctx, actorID)
		if err != nil {
			return nil, err
		}
		candidate, err := domain.NewInterval(event.Start, event.End)
		if err != nil {
			return nil, err
		}
		free, err := scheduler.CheckAvailability(ctx, s.regs, actor, candidate)
		if err != nil {
			return nil, err
		}
		if !free {
			return nil, ErrConflict
		}
	}

	return s.regs.Elements.Create(ctx, domain.ElementFields{
		ID:          input.ID,
		Title:       input.Title,
		Description: input.Description,
		ScheduleIDs: input.ScheduleIDs,
		Details:     input.Details,
	})
}

// AddRecurringEvent expands rule from the event in input and creates one
// event per occurrence. With RequireFree set every occurrence is checked
// before anything is created. A non-empty input.ID becomes the prefix of
// "<id>-1", "<id>-2", ...
func (s *CalendarService) AddRecurringEvent(ctx context.Context, actorID string, input ElementInput, rule recurrence.Rule) (elements []*domain.Element, err error) {
	logger := s.loggerWith(ctx, "AddRecurringEvent", "user_id", actorID, "frequency", rule.Frequency)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add recurring event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "recurring event added", "occurrences", len(elements))
	}()

	event, ok := input.Details.(domain.EventDetails)
	if !ok {
		return nil, domain.NewValidationError("details", "only events can repeat")
	}
	for _, scheduleID := range input.ScheduleIDs {
		if _, err := s.authorize(ctx, actorID, scheduleID, canWrite); err != nil {
			return nil, err
		}
	}

	occurrences, err := recurrence.NewEngine(s.loc).Expand(rule, domain.Interval{Start: event.Start, End: event.End})
	if err != nil {
		return nil, domain.NewValidationError("recurrence", err.Error())
	}

	if input.RequireFree {
		actor, err := s.regs.Users.Get(ctx, actorID)
		if err != nil {
			return nil, err
		}
		for _, occurrence := range occurrences {
			free, err := scheduler.CheckAvailability(ctx, s.regs, actor, occurrence)
			if err != nil {
				return nil, err
			}
			if !free {
				return nil, fmt.Errorf("%w: %s", ErrConflict, occurrence.Start.In(s.loc).Format(time.RFC3339))
			}
		}
	}

	elements = make([]*domain.Element, 0, len(occurrences))
	for i, occurrence := range occurrences {
		var id string
		if input.ID != "" {
			id = fmt.Sprintf("%s-%d", input.ID, i+1)
		}
		element, err := s.regs.Elements.Create(ctx, domain.ElementFields{
			ID:          id,
			Title:       input.Title,
			Description: input.Description,
			ScheduleIDs: input.ScheduleIDs,
			Details:     domain.EventDetails{Start: occurrence.Start, End: occurrence.End},
		})
		if err != nil {
			return elements, err
		}
		elements = append(elements, element)
	}
	return elements, nil
}

// DeleteElement deletes an element. The actor must be able to write to every
// schedule listing it.
func (s *CalendarService) DeleteElement(ctx context.Context, actorID, elementID string) error {
	if _, err := s.writableElement(ctx, actorID, elementID); err != nil {
		return err
	}
	return s.regs.Elements.Delete(ctx, elementID)
}

// SetTaskState changes the state of a task the actor may write to.
func (s *CalendarService) SetTaskState(ctx context.Context, actorID, elementID string, state domain.TaskState) error {
	element, err := s.writableElement(ctx, actorID, elementID)
	if err != nil {
		return err
	}
	return element.SetState(state)
}

// Day lists what the user sees on date, in start order. Without a filter all
// of the user's schedules are used.
func (s *CalendarService) Day(ctx context.Context, userID string, date time.Time, scheduleFilter ...string) ([]*domain.Element, error) {
	idx, err := s.index(ctx, userID, scheduleFilter)
	if err != nil {
		return nil, err
	}
	return idx.ElementsOn(date.In(s.loc)), nil
}

// Month returns the user's elements in a month grouped by day, hour and minute.
func (s *CalendarService) Month(ctx context.Context, userID string, year int, month time.Month, scheduleFilter ...string) (scheduler.DaySlots, error) {
	idx, err := s.index(ctx, userID, scheduleFilter)
	if err != nil {
		return nil, err
	}
	return idx.Month(year, month), nil
}

// Available reports whether [start, end) is free for the user and lists the
// events in the way.
func (s *CalendarService) Available(ctx context.Context, userID string, start, end time.Time, scheduleFilter ...string) (bool, []scheduler.Conflict, error) {
	user, err := s.regs.Users.Get(ctx, userID)
	if err != nil {
		return false, nil, err
	}
	conflicts, err := scheduler.FindConflicts(ctx, s.regs, user, domain.Interval{Start: start, End: end}, scheduleFilter...)
	if err != nil {
		return false, nil, err
	}
	return len(conflicts) == 0, conflicts, nil
}

// Export writes a schedule the actor belongs to as iCalendar.
func (s *CalendarService) Export(ctx context.Context, actorID, scheduleID string, w io.Writer) error {
	schedule, err := s.authorize(ctx, actorID, scheduleID, isMember)
	if err != nil {
		return err
	}
	elements, err := s.regs.Elements.ForSchedules(ctx, []string{scheduleID})
	if err != nil {
		return err
	}
	return ics.Export(w, schedule, elements, s.now())
}

// Import creates elements from an iCalendar document on a schedule the actor
// may write to. Each VEVENT UID becomes the element id; UIDs already stored
// are skipped, so importing the same document twice creates nothing new.
func (s *CalendarService) Import(ctx context.Context, actorID, scheduleID string, r io.Reader) (result ImportResult, err error) {
	logger := s.loggerWith(ctx, "Import", "user_id", actorID, "schedule_id", scheduleID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to import calendar", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "calendar imported", "created", len(result.Created), "skipped", len(result.Skipped))
	}()

	if _, err = s.authorize(ctx, actorID, scheduleID, canWrite); err != nil {
		return result, err
	}
	events, skipped, err := ics.Parse(r)
	if err != nil {
		return result, err
	}
	result.Skipped = append(result.Skipped, skipped...)

	for _, event := range events {
		exists, err := s.regs.Elements.Exists(ctx, event.UID)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: already imported", event.UID))
			continue
		}
		element, err := s.regs.Elements.Create(ctx, domain.ElementFields{
			ID:          event.UID,
			Title:       event.Summary,
			Description: event.Description,
			ScheduleIDs: []string{scheduleID},
			Details:     detailsFor(event),
		})
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", event.UID, vErr))
			continue
		}
		if err != nil {
			return result, err
		}
		result.Created = append(result.Created, element.ID())
	}
	return result, nil
}

func detailsFor(event ics.Event) domain.Details {
	switch domain.ElementType(event.Category) {
	case domain.ElementTask:
		return domain.TaskDetails{Due: event.End}
	case domain.ElementReminder:
		return domain.ReminderDetails{At: event.End}
	}
	return domain.EventDetails{Start: event.Start, End: event.End}
}

func (s *CalendarService) index(ctx context.Context, userID string, scheduleFilter []string) (scheduler.Index, error) {
	var (
		elements []*domain.Element
		err      error
	)
	if len(scheduleFilter) == 0 {
		elements, err = s.regs.Elements.ForUser(ctx, userID)
	} else {
		user, uerr := s.regs.Users.Get(ctx, userID)
		if uerr != nil {
			return nil, uerr
		}
		for _, id := range scheduleFilter {
			if !user.BelongsTo(id) {
				return nil, fmt.Errorf("%w: user %s, schedule %s", domain.ErrNotMember, userID, id)
			}
		}
		elements, err = s.regs.Elements.ForSchedules(ctx, scheduleFilter)
	}
	if err != nil {
		return nil, err
	}
	return scheduler.BuildIndexIn(s.loc, elements), nil
}

func isOwner(role domain.Role) bool  { return role == domain.RoleOwner }
func canWrite(role domain.Role) bool { return role.CanWrite() }
func isMember(domain.Role) bool      { return true }

// authorize loads a schedule and checks the actor's role on it. A missing
// schedule is a referential integrity error.
func (s *CalendarService) authorize(ctx context.Context, actorID, scheduleID string, allow func(domain.Role) bool) (*domain.Schedule, error) {
	schedule, err := s.regs.Schedules.Get(ctx, scheduleID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: schedule %s does not exist", domain.ErrReferentialIntegrity, scheduleID)
	}
	if err != nil {
		return nil, err
	}
	role, ok := schedule.RoleOf(actorID)
	if !ok || !allow(role) {
		return nil, fmt.Errorf("%w: user %s on schedule %s", ErrUnauthorized, actorID, scheduleID)
	}
	return schedule, nil
}

func (s *CalendarService) writableElement(ctx context.Context, actorID, elementID string) (*domain.Element, error) {
	element, err := s.regs.Elements.Get(ctx, elementID)
	if err != nil {
		return nil, err
	}
	for _, scheduleID := range element.ScheduleIDs() {
		if _, err := s.authorize(ctx, actorID, scheduleID, canWrite); err != nil {
			return nil, err
		}
	}
	return element, nil
}
