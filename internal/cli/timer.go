package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/andy/billable/internal/service"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Manage the active timer",
	Long:  `Start, stop, discard, or check the status of the running timer.`,
}

var timerStartCmd = &cobra.Command{
	Use:   "start [project_id]",
	Short: "Start a timer on a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		projectID, err := parseID("project", args[0])
		if err != nil {
			return err
		}

		var assignmentID *int64
		if cmd.Flags().Changed("assignment") {
			id, _ := cmd.Flags().GetInt64("assignment")
			assignmentID = &id
		}

		entry, err := appInstance.Tracking.StartTimeTracking(ctx, user.ID, projectID, assignmentID)
		if err != nil {
			return fmt.Errorf("failed to start timer: %w", err)
		}

		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			entry, err = appInstance.Tracking.UpdateTimeEntryDetails(ctx, user.ID, entry.ID, service.EntryDetails{Description: &description})
			if err != nil {
				return fmt.Errorf("failed to set description: %w", err)
			}
		}

		project, _ := appInstance.Projects.Get(ctx, user.ID, projectID)
		projectName := fmt.Sprintf("Project #%d", projectID)
		if project != nil {
			projectName = project.Name
		}

		fmt.Fprintf(out, "✓ Timer started for %s\n", projectName)
		fmt.Fprintf(out, "  Rate: %s/h\n", money(entry.HourlyRate))
		if entry.Description != "" {
			fmt.Fprintf(out, "  Description: %s\n", entry.Description)
		}
		return nil
	},
}

var timerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active timer and save the time entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}

		entry, err := appInstance.Tracking.StopTimeTracking(cmd.Context(), user.ID)
		if err != nil {
			return fmt.Errorf("failed to stop timer: %w", err)
		}

		fmt.Fprintf(out, "✓ Timer stopped\n")
		fmt.Fprintf(out, "  Duration: %s\n", formatMinutes(entry.Minutes()))
		fmt.Fprintf(out, "  Amount: %s\n", money(entry.Amount))
		if entry.IsBillable {
			fmt.Fprintf(out, "  Withholding: %s\n", money(entry.WithholdingTaxAmount))
			fmt.Fprintf(out, "  Net: %s\n", money(entry.NetAmount))
		}
		return nil
	},
}

var timerDiscardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Discard the active timer without saving",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}

		if err := appInstance.Tracking.DiscardActive(cmd.Context(), user.ID); err != nil {
			return fmt.Errorf("failed to discard timer: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "✓ Timer discarded")
		return nil
	},
}

var timerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the active timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}

		entry, err := appInstance.Tracking.GetActiveTimeEntry(ctx, user.ID)
		if errors.Is(err, service.ErrNoActiveTimer) {
			fmt.Fprintln(out, "No active timer")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get active timer: %w", err)
		}

		project, _ := appInstance.Projects.Get(ctx, user.ID, entry.ProjectID)
		projectName := fmt.Sprintf("Project #%d", entry.ProjectID)
		if project != nil {
			projectName = project.Name
		}

		elapsed := appInstance.Clock.Now().Sub(entry.StartTime)
		fmt.Fprintf(out, "Timer running\n")
		fmt.Fprintf(out, "  Project: %s\n", projectName)
		if entry.Description != "" {
			fmt.Fprintf(out, "  Description: %s\n", entry.Description)
		}
		fmt.Fprintf(out, "  Started: %s\n", entry.StartTime.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "  Elapsed: %s\n", formatDuration(elapsed))
		fmt.Fprintf(out, "  Current Value: %s\n", money(entry.AccruedAmount(appInstance.Clock.Now())))
		return nil
	},
}

func init() {
	timerCmd.AddCommand(timerStartCmd)
	timerCmd.AddCommand(timerStopCmd)
	timerCmd.AddCommand(timerDiscardCmd)
	timerCmd.AddCommand(timerStatusCmd)

	timerStartCmd.Flags().Int64("assignment", 0, "Track against an assignment of the project")
	timerStartCmd.Flags().String("description", "", "What you are working on")
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID %q", what, s)
	}
	return id, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// money renders an amount with two places and the configured currency
func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + cfgInstance.Invoice.DefaultCurrency
}

func formatMinutes(m int64) string {
	return formatDuration(time.Duration(m) * time.Minute)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	} else if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
