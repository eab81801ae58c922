package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/service"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Inspect projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}

		var q service.ProjectQuery
		if cmd.Flags().Changed("client") {
			id, _ := cmd.Flags().GetInt64("client")
			q.ClientID = &id
		}
		if cmd.Flags().Changed("status") {
			raw, _ := cmd.Flags().GetString("status")
			status := domain.ProjectStatus(raw)
			q.Status = &status
		}

		projects, err := appInstance.Projects.List(cmd.Context(), user.ID, q)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		if len(projects) == 0 {
			fmt.Fprintln(out, "No projects found")
			return nil
		}

		fmt.Fprintf(out, "%-5s %-30s %-8s %-11s %-10s %-10s\n", "ID", "Name", "Client", "Status", "Rate", "Hours")
		fmt.Fprintln(out, "--------------------------------------------------------------------------------")
		for _, p := range projects {
			fmt.Fprintf(out, "%-5d %-30s %-8d %-11s %-10s %-10s\n",
				p.ID,
				truncate(p.Name, 30),
				p.ClientID,
				p.Status,
				p.HourlyRate.StringFixed(2),
				p.ActualHours.StringFixed(2),
			)
		}
		fmt.Fprintf(out, "\nTotal: %d project(s)\n", len(projects))
		return nil
	},
}

var projectsProgressCmd = &cobra.Command{
	Use:   "progress [id]",
	Short: "Show progress and profitability of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		id, err := parseID("project", args[0])
		if err != nil {
			return err
		}

		project, err := appInstance.Projects.Get(ctx, user.ID, id)
		if err != nil {
			return fmt.Errorf("failed to get project: %w", err)
		}
		progress, err := appInstance.Projects.GetProgress(ctx, user.ID, id)
		if err != nil {
			return fmt.Errorf("failed to get progress: %w", err)
		}
		prof, err := appInstance.Projects.CalculateProfitability(ctx, user.ID, id)
		if err != nil {
			return fmt.Errorf("failed to calculate profitability: %w", err)
		}

		fmt.Fprintf(out, "%s (%s)\n", project.Name, progress.Status)
		fmt.Fprintf(out, "  Hours: %s of %s (%d%%)\n",
			progress.ActualHours.StringFixed(2), progress.EstimatedHours.StringFixed(2), progress.CompletionPercentage)
		fmt.Fprintf(out, "  Remaining: %s h\n", progress.RemainingHours.StringFixed(2))
		if progress.Deadline != nil {
			fmt.Fprintf(out, "  Deadline: %s", progress.Deadline.Format(time.DateOnly))
			if progress.DaysRemaining != nil {
				fmt.Fprintf(out, " (%d days)", *progress.DaysRemaining)
			}
			if progress.IsOverdue {
				fmt.Fprint(out, " OVERDUE")
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "  Earnings: %s\n", money(prof.Earnings))
		fmt.Fprintf(out, "  Cost: %s\n", money(prof.ActualCost))
		fmt.Fprintf(out, "  Profit: %s (%s%%)\n", money(prof.Profit), prof.MarginPercent.StringFixed(1))
		return nil
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsProgressCmd)

	projectsListCmd.Flags().Int64("client", 0, "Filter by client ID")
	projectsListCmd.Flags().String("status", "", "Filter by status (planning, in_progress, on_hold, completed, cancelled)")
}
