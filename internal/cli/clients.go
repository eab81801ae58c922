package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andy/billable/internal/service"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage clients",
	Long:  `List, add, edit, and archive clients.`,
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		includeArchived, _ := cmd.Flags().GetBool("archived")

		clients, err := appInstance.Clients.List(cmd.Context(), user.ID, includeArchived)
		if err != nil {
			return fmt.Errorf("failed to list clients: %w", err)
		}

		if len(clients) == 0 {
			fmt.Fprintln(out, "No clients found")
			return nil
		}

		// Print table header
		fmt.Fprintf(out, "%-5s %-30s %-15s %-10s\n", "ID", "Name", "Hourly Rate", "Status")
		fmt.Fprintln(out, "----------------------------------------------------------------------")

		for _, client := range clients {
			status := "Active"
			if client.IsArchived {
				status = "Archived"
			}
			fmt.Fprintf(out, "%-5d %-30s %-15s %-10s\n",
				client.ID,
				truncate(client.Name, 30),
				client.HourlyRate.StringFixed(2),
				status,
			)
		}

		fmt.Fprintf(out, "\nTotal: %d client(s)\n", len(clients))
		return nil
	},
}

var clientsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a new client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}

		in, err := clientInput(cmd)
		if err != nil {
			return err
		}
		in.Name = &args[0]

		client, err := appInstance.Clients.Create(cmd.Context(), user.ID, in)
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Client created: %s (ID: %d)\n", client.Name, client.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "  Hourly Rate: %s\n", money(client.HourlyRate))
		return nil
	},
}

var clientsEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit an existing client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		id, err := parseID("client", args[0])
		if err != nil {
			return err
		}

		in, err := clientInput(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			in.Name = &name
		}

		client, err := appInstance.Clients.Update(cmd.Context(), user.ID, id, in)
		if err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Client updated: %s\n", client.Name)
		return nil
	},
}

var clientsArchiveCmd = &cobra.Command{
	Use:   "archive [id]",
	Short: "Archive a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		id, err := parseID("client", args[0])
		if err != nil {
			return err
		}

		client, err := appInstance.Clients.Archive(cmd.Context(), user.ID, id)
		if err != nil {
			return fmt.Errorf("failed to archive client: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Client archived: %s\n", client.Name)
		return nil
	},
}

var clientsUnarchiveCmd = &cobra.Command{
	Use:   "unarchive [id]",
	Short: "Unarchive a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		id, err := parseID("client", args[0])
		if err != nil {
			return err
		}

		client, err := appInstance.Clients.Unarchive(cmd.Context(), user.ID, id)
		if err != nil {
			return fmt.Errorf("failed to unarchive client: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Client unarchived: %s\n", client.Name)
		return nil
	},
}

// clientInput collects the optional client flags shared by add and edit
func clientInput(cmd *cobra.Command) (service.ClientInput, error) {
	var in service.ClientInput
	if cmd.Flags().Changed("rate") {
		raw, _ := cmd.Flags().GetString("rate")
		rate, err := parseAmount(raw)
		if err != nil {
			return in, err
		}
		in.HourlyRate = &rate
	}
	if cmd.Flags().Changed("email") {
		email, _ := cmd.Flags().GetString("email")
		in.Email = &email
	}
	if cmd.Flags().Changed("notes") {
		notes, _ := cmd.Flags().GetString("notes")
		in.Notes = &notes
	}
	return in, nil
}

func init() {
	clientsCmd.AddCommand(clientsListCmd)
	clientsCmd.AddCommand(clientsAddCmd)
	clientsCmd.AddCommand(clientsEditCmd)
	clientsCmd.AddCommand(clientsArchiveCmd)
	clientsCmd.AddCommand(clientsUnarchiveCmd)

	// List flags
	clientsListCmd.Flags().Bool("archived", false, "Include archived clients")

	for _, c := range []*cobra.Command{clientsAddCmd, clientsEditCmd} {
		c.Flags().String("rate", "", "Hourly rate")
		c.Flags().String("email", "", "Client email")
		c.Flags().String("notes", "", "Notes about the client")
	}
	clientsEditCmd.Flags().String("name", "", "New name")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
