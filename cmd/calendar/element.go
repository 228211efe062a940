package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/shared-calendar/internal/application"
	"github.com/example/shared-calendar/internal/domain"
	"github.com/example/shared-calendar/internal/recurrence"
)

func (c *cli) elementCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "element",
		Short: "Manage events, tasks and reminders",
	}
	cmd.AddCommand(
		c.addEventCommand(),
		c.addTaskCommand(),
		c.addReminderCommand(),
		c.elementDeleteCommand(),
		c.elementCompleteCommand(),
	)
	return cmd
}

// elementFlags are shared by the add commands.
type elementFlags struct {
	schedules   []string
	title       string
	description string
}

func (f *elementFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.schedules, "schedule", "s", nil, "schedule id (repeatable)")
	cmd.Flags().StringVar(&f.title, "title", "", "title")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	_ = cmd.MarkFlagRequired("schedule")
	_ = cmd.MarkFlagRequired("title")
}

func (c *cli) addElement(cmd *cobra.Command, f *elementFlags, details domain.Details, requireFree bool) error {
	ctx := cmd.Context()
	user, err := c.actor(ctx)
	if err != nil {
		return err
	}
	element, err := c.app.calendar.AddElement(ctx, user.ID(), application.ElementInput{
		Title:       f.title,
		Description: optionalString(cmd, "description", f.description),
		ScheduleIDs: f.schedules,
		Details:     details,
		RequireFree: requireFree,
	})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", details.Type(), err)
	}
	fmt.Fprintf(c.out, "%s created: %s\n", details.Type(), element.ID())
	return nil
}

func (c *cli) addEventCommand() *cobra.Command {
	var (
		flags       elementFlags
		start, end  string
		requireFree bool
		repeat      repeatFlags
	)
	cmd := &cobra.Command{
		Use:   "add-event",
		Short: "Add an event",
		Long: `Add an event over [start, end).

Examples:
  calendar element add-event -s 1f0c... --title Standup --start 2024-03-01T10:00 --end 2024-03-01T10:15
  calendar element add-event -s 1f0c... --title Review --start 2024-03-01T14:00Z --end 2024-03-01T15:00Z --require-free
  calendar element add-event -s 1f0c... --title Gym --start 2024-03-04T07:00 --end 2024-03-04T08:00 --repeat weekly --on mon,thu --until 2024-04-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.parseTime(start)
			if err != nil {
				return err
			}
			to, err := c.parseTime(end)
			if err != nil {
				return err
			}
			details := domain.EventDetails{Start: from, End: to}
			if repeat.frequency == "" {
				return c.addElement(cmd, &flags, details, requireFree)
			}
			return c.addRecurring(cmd, &flags, details, &repeat, requireFree)
		},
	}
	flags.bind(cmd)
	repeat.bind(cmd)
	cmd.Flags().StringVar(&start, "start", "", "start time")
	cmd.Flags().StringVar(&end, "end", "", "end time")
	cmd.Flags().BoolVar(&requireFree, "require-free", false, "reject the event if it overlaps one of your events")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

// repeatFlags turn add-event into a recurring event.
type repeatFlags struct {
	frequency string
	weekdays  []string
	until     string
	count     int
}

func (f *repeatFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.frequency, "repeat", "", "repeat daily or weekly")
	cmd.Flags().StringSliceVar(&f.weekdays, "on", nil, "weekdays to repeat on (mon,tue,...)")
	cmd.Flags().StringVar(&f.until, "until", "", "last date to repeat on (2006-01-02)")
	cmd.Flags().IntVar(&f.count, "count", 0, "number of occurrences")
}

func (c *cli) rule(f *repeatFlags) (recurrence.Rule, error) {
	frequency, err := recurrence.ParseFrequency(f.frequency)
	if err != nil {
		return recurrence.Rule{}, err
	}
	rule := recurrence.Rule{Frequency: frequency, Count: f.count}
	for _, name := range f.weekdays {
		day, err := recurrence.ParseWeekday(name)
		if err != nil {
			return recurrence.Rule{}, err
		}
		rule.Weekdays = append(rule.Weekdays, day)
	}
	if f.until != "" {
		if rule.Until, err = c.parseDate(f.until); err != nil {
			return recurrence.Rule{}, err
		}
	}
	return rule, nil
}

func (c *cli) addRecurring(cmd *cobra.Command, f *elementFlags, details domain.EventDetails, repeat *repeatFlags, requireFree bool) error {
	rule, err := c.rule(repeat)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	user, err := c.actor(ctx)
	if err != nil {
		return err
	}
	elements, err := c.app.calendar.AddRecurringEvent(ctx, user.ID(), application.ElementInput{
		Title:       f.title,
		Description: optionalString(cmd, "description", f.description),
		ScheduleIDs: f.schedules,
		Details:     details,
		RequireFree: requireFree,
	}, rule)
	if err != nil {
		return fmt.Errorf("failed to add recurring event: %w", err)
	}
	for _, element := range elements {
		fmt.Fprintf(c.out, "event created: %s\n", element.ID())
	}
	return nil
}

func (c *cli) addTaskCommand() *cobra.Command {
	var (
		flags elementFlags
		due   string
	)
	cmd := &cobra.Command{
		Use:   "add-task",
		Short: "Add a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := c.parseTime(due)
			if err != nil {
				return err
			}
			return c.addElement(cmd, &flags, domain.TaskDetails{Due: at}, false)
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&due, "due", "", "due time")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func (c *cli) addReminderCommand() *cobra.Command {
	var (
		flags elementFlags
		when  string
	)
	cmd := &cobra.Command{
		Use:   "add-reminder",
		Short: "Add a reminder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := c.parseTime(when)
			if err != nil {
				return err
			}
			return c.addElement(cmd, &flags, domain.ReminderDetails{At: at}, false)
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&when, "at", "", "reminder time")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func (c *cli) elementDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [element-id]",
		Short:   "Delete an element",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := c.actor(ctx)
			if err != nil {
				return err
			}
			if err := c.app.calendar.DeleteElement(ctx, user.ID(), args[0]); err != nil {
				return fmt.Errorf("failed to delete element: %w", err)
			}
			fmt.Fprintf(c.out, "Element deleted: %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) elementCompleteCommand() *cobra.Command {
	var stateName string
	cmd := &cobra.Command{
		Use:     "complete [task-id]",
		Short:   "Set the state of a task",
		Aliases: []string{"done"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			state, err := domain.ParseTaskState(stateName)
			if err != nil {
				return err
			}
			user, err := c.actor(ctx)
			if err != nil {
				return err
			}
			if err := c.app.calendar.SetTaskState(ctx, user.ID(), args[0], state); err != nil {
				return fmt.Errorf("failed to update task: %w", err)
			}
			fmt.Fprintf(c.out, "Task %s: %s\n", args[0], state)
			return nil
		},
	}
	cmd.Flags().StringVar(&stateName, "state", string(domain.TaskComplete), "new state (incomplete, complete, cancelled)")
	return cmd
}
