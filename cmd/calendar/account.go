package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/shared-calendar/internal/application"
)

func (c *cli) signupCommand() *cobra.Command {
	var username, email string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account. The password is taken from --password.

Examples:
  calendar signup --username alice --email alice@example.com --password 'correct horse'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.app.accounts.SignUp(cmd.Context(), application.SignUpInput{
				Username: username,
				Email:    email,
				Password: c.password,
			})
			if err != nil {
				return fmt.Errorf("failed to sign up: %w", err)
			}
			fmt.Fprintf(c.out, "User created: %s\n", user.ID())
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check a username and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.actor(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to log in: %w", err)
			}
			fmt.Fprintf(c.out, "Logged in as %s (%s)\n", user.Username(), user.ID())
			return nil
		},
	}
}
