package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andy/billable/internal/app"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var usersAddCmd = &cobra.Command{
	Use:   "add [username]",
	Short: "Create a user account (prompts for the password)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")

		password, err := app.PromptPassword("Password for " + args[0] + ": ")
		if err != nil {
			return err
		}

		user, err := appInstance.Users.Register(cmd.Context(), args[0], email, name, password)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ User created: %s (ID: %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	usersCmd.AddCommand(usersAddCmd)

	usersAddCmd.Flags().String("email", "", "Email address")
	usersAddCmd.Flags().String("name", "", "Full name")
}
