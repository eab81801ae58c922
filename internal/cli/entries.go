package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/andy/billable/internal/service"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage time entries",
	Long:  `List, add, edit, and delete time entries.`,
}

var entriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List time entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}

		var q service.EntryQuery
		if cmd.Flags().Changed("project") {
			id, _ := cmd.Flags().GetInt64("project")
			q.ProjectID = &id
		}
		if cmd.Flags().Changed("start") {
			startStr, _ := cmd.Flags().GetString("start")
			t, err := parseDate(startStr)
			if err != nil {
				return fmt.Errorf("invalid start date: %w", err)
			}
			q.From = &t
		}
		if cmd.Flags().Changed("end") {
			endStr, _ := cmd.Flags().GetString("end")
			t, err := parseDate(endStr)
			if err != nil {
				return fmt.Errorf("invalid end date: %w", err)
			}
			// the end date is inclusive on the command line
			t = t.AddDate(0, 0, 1)
			q.To = &t
		}
		q.UnbilledOnly, _ = cmd.Flags().GetBool("unbilled")

		entries, err := appInstance.Tracking.ListEntries(cmd.Context(), user.ID, q)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, "No entries found")
			return nil
		}

		// Print table header
		fmt.Fprintf(out, "%-5s %-8s %-17s %-10s %-12s %-8s\n", "ID", "Project", "Start", "Duration", "Amount", "Status")
		fmt.Fprintln(out, "--------------------------------------------------------------------------------")

		var totalMinutes int64
		totalAmount := decimal.Zero
		for _, entry := range entries {
			status := "Unbilled"
			switch {
			case entry.IsRunning():
				status = "Running"
			case entry.InvoiceID != nil:
				status = "Invoiced"
			case !entry.IsBillable:
				status = "Internal"
			}

			fmt.Fprintf(out, "%-5d %-8d %-17s %-10s %-12s %-8s\n",
				entry.ID,
				entry.ProjectID,
				entry.StartTime.Local().Format("2006-01-02 15:04"),
				formatMinutes(entry.Minutes()),
				entry.Amount.StringFixed(2),
				status,
			)

			totalMinutes += entry.Minutes()
			totalAmount = totalAmount.Add(entry.Amount)
		}

		fmt.Fprintln(out, "--------------------------------------------------------------------------------")
		fmt.Fprintf(out, "Total: %d entries, %s, %s\n", len(entries), formatMinutes(totalMinutes), money(totalAmount))
		return nil
	},
}

var entriesAddCmd = &cobra.Command{
	Use:   "add [project_id] [start_time] [end_time] [description]",
	Short: "Add a completed time entry manually",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		projectID, err := parseID("project", args[0])
		if err != nil {
			return err
		}

		startTime, err := parseDateTime(args[1])
		if err != nil {
			return fmt.Errorf("invalid start time: %w", err)
		}
		endTime, err := parseDateTime(args[2])
		if err != nil {
			return fmt.Errorf("invalid end time: %w", err)
		}

		in := service.LogEntryInput{ProjectID: projectID, Start: startTime, End: endTime}
		if len(args) > 3 {
			in.Description = args[3]
		}
		if cmd.Flags().Changed("non-billable") {
			billable := false
			in.IsBillable = &billable
		}

		entry, err := appInstance.Tracking.LogTimeEntry(cmd.Context(), user.ID, in)
		if err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}

		fmt.Fprintf(out, "✓ Time entry created (ID: %d)\n", entry.ID)
		fmt.Fprintf(out, "  Duration: %s\n", formatMinutes(entry.Minutes()))
		fmt.Fprintf(out, "  Amount: %s\n", money(entry.Amount))
		return nil
	},
}

var entriesEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit the description, notes or billable flag of an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		id, err := parseID("entry", args[0])
		if err != nil {
			return err
		}

		var details service.EntryDetails
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			details.Description = &description
		}
		if cmd.Flags().Changed("notes") {
			notes, _ := cmd.Flags().GetString("notes")
			details.Notes = &notes
		}
		if cmd.Flags().Changed("billable") {
			billable, _ := cmd.Flags().GetBool("billable")
			details.IsBillable = &billable
		}

		entry, err := appInstance.Tracking.UpdateTimeEntryDetails(cmd.Context(), user.ID, id, details)
		if err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Entry updated (ID: %d)\n", entry.ID)
		return nil
	},
}

var entriesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a time entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		id, err := parseID("entry", args[0])
		if err != nil {
			return err
		}

		if err := appInstance.Tracking.DeleteTimeEntry(cmd.Context(), user.ID, id); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Entry deleted (ID: %d)\n", id)
		return nil
	},
}

var entriesHistoryCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show edit history for an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		id, err := parseID("entry", args[0])
		if err != nil {
			return err
		}

		history, err := appInstance.Tracking.GetHistory(cmd.Context(), user.ID, id)
		if err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}

		if len(history) == 0 {
			fmt.Fprintln(out, "No edit history for this entry")
			return nil
		}

		fmt.Fprintf(out, "Edit History for Entry #%d:\n\n", id)
		for _, h := range history {
			fmt.Fprintf(out, "%s - %s\n", h.ChangedAt.Local().Format("2006-01-02 15:04:05"), h.FieldName)
			fmt.Fprintf(out, "  %q -> %q\n\n", h.OldValue, h.NewValue)
		}
		return nil
	},
}

func init() {
	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesAddCmd)
	entriesCmd.AddCommand(entriesEditCmd)
	entriesCmd.AddCommand(entriesDeleteCmd)
	entriesCmd.AddCommand(entriesHistoryCmd)

	// List flags
	entriesListCmd.Flags().Int64("project", 0, "Filter by project ID")
	entriesListCmd.Flags().String("start", "", "Filter by start date (YYYY-MM-DD or 'today')")
	entriesListCmd.Flags().String("end", "", "Filter by end date, inclusive (YYYY-MM-DD or 'today')")
	entriesListCmd.Flags().Bool("unbilled", false, "Only entries not yet invoiced")

	// Add flags
	entriesAddCmd.Flags().Bool("non-billable", false, "Record internal, non-billable time")

	// Edit flags
	entriesEditCmd.Flags().String("description", "", "New description")
	entriesEditCmd.Flags().String("notes", "", "New notes")
	entriesEditCmd.Flags().Bool("billable", true, "Whether the entry is billable")
}

// parseDate parses a date string in the local time zone
func parseDate(s string) (time.Time, error) {
	now := appInstance.Clock.Now().Local()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	switch s {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	default:
		t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("expected format: YYYY-MM-DD, 'today', or 'yesterday'")
		}
		return t, nil
	}
}

// parseDateTime parses a datetime string in various formats
func parseDateTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		time.DateOnly,
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected format: YYYY-MM-DD or YYYY-MM-DD HH:MM:SS")
}
