package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/shared-calendar/internal/application"
	"github.com/example/shared-calendar/internal/domain"
)

func (c *cli) scheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage schedules",
		Long:  `Create, list, share and delete schedules.`,
	}
	cmd.AddCommand(
		c.scheduleCreateCommand(),
		c.scheduleListCommand(),
		c.scheduleShareCommand(),
		c.scheduleUnshareCommand(),
		c.scheduleDeleteCommand(),
	)
	return cmd
}

func (c *cli) scheduleCreateCommand() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a schedule owned by the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := c.actor(ctx)
			if err != nil {
				return err
			}
			schedule, err := c.app.calendar.CreateSchedule(ctx, user.ID(), application.ScheduleInput{
				Title:       title,
				Description: optionalString(cmd, "description", description),
			})
			if err != nil {
				return fmt.Errorf("failed to create schedule: %w", err)
			}
			fmt.Fprintf(c.out, "Schedule created: %s\n", schedule.ID())
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "schedule title")
	cmd.Flags().StringVar(&description, "description", "", "schedule description")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (c *cli) scheduleListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List the acting user's schedules",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := c.actor(ctx)
			if err != nil {
				return err
			}
			schedules, err := c.app.calendar.Schedules(ctx, user.ID())
			if err != nil {
				return fmt.Errorf("failed to list schedules: %w", err)
			}
			for _, schedule := range schedules {
				role, _ := schedule.RoleOf(user.ID())
				fmt.Fprintf(c.out, "%s\t%s\t%s\n", schedule.ID(), schedule.Title(), role)
			}
			return nil
		},
	}
}

func (c *cli) scheduleShareCommand() *cobra.Command {
	var roleName string
	cmd := &cobra.Command{
		Use:   "share [schedule-id] [username]",
		Short: "Grant a user a role on a schedule",
		Long: `Grant a user a role on a schedule the acting user owns.

Examples:
  calendar schedule share 1f0c... bob --role write`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			role, err := domain.ParseRole(roleName)
			if err != nil {
				return err
			}
			user, err := c.actor(ctx)
			if err != nil {
				return err
			}
			grantee, err := c.app.regs.Users.FindByUsername(ctx, args[1])
			if err != nil {
				return fmt.Errorf("failed to find %s: %w", args[1], err)
			}
			if err := c.app.calendar.Share(ctx, user.ID(), args[0], grantee.ID(), role); err != nil {
				return fmt.Errorf("failed to share schedule: %w", err)
			}
			fmt.Fprintf(c.out, "Shared %s with %s as %s\n", args[0], grantee.Username(), role)
			return nil
		},
	}
	cmd.Flags().StringVar(&roleName, "role", string(domain.RoleRead), "role to grant (owner, write, read)")
	return cmd
}

func (c *cli) scheduleUnshareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unshare [schedule-id] [username]",
		Short: "Revoke a user's role on a schedule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := c.actor(ctx)
			if err != nil {
				return err
			}
			member, err := c.app.regs.Users.FindByUsername(ctx, args[1])
			if err != nil {
				return fmt.Errorf("failed to find %s: %w", args[1], err)
			}
			if err := c.app.calendar.Unshare(ctx, user.ID(), args[0], member.ID()); err != nil {
				return fmt.Errorf("failed to unshare schedule: %w", err)
			}
			fmt.Fprintf(c.out, "Unshared %s from %s\n", args[0], member.Username())
			return nil
		},
	}
}

func (c *cli) scheduleDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete [schedule-id]",
		Short:   "Delete a schedule the acting user owns",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := c.actor(ctx)
			if err != nil {
				return err
			}
			if err := c.app.calendar.DeleteSchedule(ctx, user.ID(), args[0]); err != nil {
				return fmt.Errorf("failed to delete schedule: %w", err)
			}
			fmt.Fprintf(c.out, "Schedule deleted: %s\n", args[0])
			return nil
		},
	}
}
