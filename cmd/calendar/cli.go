package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/shared-calendar/internal/config"
	"github.com/example/shared-calendar/internal/domain"
	"github.com/example/shared-calendar/internal/logging"
)

// cli carries the flags shared by every command and the app opened for the
// invocation.
type cli struct {
	out    io.Writer
	errOut io.Writer

	username string
	password string

	app *app
}

func (c *cli) close() error {
	return c.app.Close()
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "calendar",
		Short: "Shared calendar",
		Long: `A shared calendar with schedules, events, tasks and reminders.

The store is chosen with CALENDAR_STORE_DRIVER (memory, json, sqlite, redis).
Commands that act on behalf of a user need --user and --password.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg, c.errOut)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			c.app = a
			cmd.SetContext(logging.ContextWithLogger(cmd.Context(), a.logger.With("command", cmd.CommandPath())))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.username, "user", "u", "", "username to act as")
	root.PersistentFlags().StringVarP(&c.password, "password", "p", "", "password of the acting user")

	root.AddCommand(
		c.signupCommand(),
		c.loginCommand(),
		c.scheduleCommand(),
		c.elementCommand(),
		c.dayCommand(),
		c.availableCommand(),
		c.exportCommand(),
		c.importCommand(),
	)
	return root
}

// actor logs in with --user and --password.
func (c *cli) actor(ctx context.Context) (*domain.User, error) {
	if strings.TrimSpace(c.username) == "" {
		return nil, errors.New("--user is required")
	}
	return c.app.accounts.LogIn(ctx, c.username, c.password)
}

func (c *cli) location() *time.Location {
	if c.app != nil && c.app.cfg.Location != nil {
		return c.app.cfg.Location
	}
	return time.Local
}

var timeLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04"}

// parseTime accepts RFC 3339 or a local "2006-01-02T15:04" in the
// configured timezone.
func (c *cli) parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, c.location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or 2006-01-02T15:04", value)
}

func (c *cli) parseDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Now().In(c.location()), nil
	}
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(value), c.location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use 2006-01-02", value)
	}
	return t, nil
}

func (c *cli) printElement(e *domain.Element) {
	interval := e.DisplayInterval()
	loc := c.location()
	line := fmt.Sprintf("%s-%s\t%s\t%s\t%s",
		interval.Start.In(loc).Format("15:04"),
		interval.End.In(loc).Format("15:04"),
		e.Type(), e.ID(), e.Title())
	if task, ok := e.Task(); ok {
		line += "\t[" + string(task.State) + "]"
	}
	fmt.Fprintln(c.out, line)
}

func optionalString(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}
