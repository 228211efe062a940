package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (c *cli) dayCommand() *cobra.Command {
	var schedules []string
	cmd := &cobra.Command{
		Use:   "day [date]",
		Short: "Show a day",
		Long: `Show the events, tasks and reminders on a day in start order. The date
defaults to today in CALENDAR_TIMEZONE.

Examples:
  calendar day 2024-03-01
  calendar day 2024-03-01 -s 1f0c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			if len(args) == 1 {
				value = args[0]
			}
			date, err := c.parseDate(value)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			user, err := c.actor(ctx)
			if err != nil {
				return err
			}
			elements, err := c.app.calendar.Day(ctx, user.ID(), date, schedules...)
			if err != nil {
				return fmt.Errorf("failed to load day: %w", err)
			}
			if len(elements) == 0 {
				fmt.Fprintf(c.out, "Nothing on %s\n", date.Format("2006-01-02"))
				return nil
			}
			for _, element := range elements {
				c.printElement(element)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&schedules, "schedule", "s", nil, "only these schedules (repeatable)")
	return cmd
}

func (c *cli) availableCommand() *cobra.Command {
	var (
		start, end string
		schedules  []string
	)
	cmd := &cobra.Command{
		Use:   "available",
		Short: "Check whether a time range is free",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.parseTime(start)
			if err != nil {
				return err
			}
			to, err := c.parseTime(end)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			user, err := c.actor(ctx)
			if err != nil {
				return err
			}
			free, conflicts, err := c.app.calendar.Available(ctx, user.ID(), from, to, schedules...)
			if err != nil {
				return fmt.Errorf("failed to check availability: %w", err)
			}
			if free {
				fmt.Fprintln(c.out, "Free")
				return nil
			}
			fmt.Fprintln(c.out, "Busy")
			loc := c.location()
			for _, conflict := range conflicts {
				fmt.Fprintf(c.out, "%s-%s\t%s\t%s\t%s\n",
					conflict.Interval.Start.In(loc).Format("15:04"),
					conflict.Interval.End.In(loc).Format("15:04"),
					conflict.ElementID, conflict.ScheduleID, conflict.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start time")
	cmd.Flags().StringVar(&end, "end", "", "end time")
	cmd.Flags().StringSliceVarP(&schedules, "schedule", "s", nil, "only these schedules (repeatable)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func (c *cli) exportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [schedule-id]",
		Short: "Export a schedule as iCalendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := c.actor(ctx)
			if err != nil {
				return err
			}
			w := c.out
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := c.app.calendar.Export(ctx, user.ID(), args[0], w); err != nil {
				return fmt.Errorf("failed to export schedule: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func (c *cli) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [schedule-id] [file]",
		Short: "Import iCalendar events into a schedule",
		Long: `Import every VEVENT of an iCalendar file into a schedule. Each UID becomes
the element id, so importing the same file twice creates nothing new.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := c.actor(ctx)
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := c.app.calendar.Import(ctx, user.ID(), args[0], f)
			if err != nil {
				return fmt.Errorf("failed to import calendar: %w", err)
			}
			fmt.Fprintf(c.out, "Imported %d, skipped %d\n", len(result.Created), len(result.Skipped))
			for _, reason := range result.Skipped {
				fmt.Fprintf(c.out, "  skipped %s\n", reason)
			}
			return nil
		},
	}
}
