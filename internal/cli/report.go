package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print today's and this week's totals and the money picture",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}

		d, err := appInstance.Reports.Dashboard(cmd.Context(), user.ID)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}

		fmt.Fprintf(out, "Today:    %s h (%s billable), %s\n",
			d.Today.TotalHours.StringFixed(2), d.Today.BillableHours.StringFixed(2), money(d.Today.TotalValue))
		fmt.Fprintf(out, "Week:     %s h (%s billable), %s\n",
			d.Week.TotalHours.StringFixed(2), d.Week.BillableHours.StringFixed(2), money(d.Week.TotalValue))
		fmt.Fprintf(out, "Unbilled: %s\n", money(d.Unbilled))
		fmt.Fprintf(out, "Outstanding: %s", money(d.Outstanding))
		if d.OverdueInvoices > 0 {
			fmt.Fprintf(out, " (%d overdue)", d.OverdueInvoices)
		}
		fmt.Fprintln(out)

		if d.Active != nil {
			fmt.Fprintf(out, "Running:  %s on project #%d, %s so far\n",
				formatDuration(d.Active.Elapsed), d.Active.Entry.ProjectID, money(d.Active.Accrued))
		}

		months := make([]time.Month, 0, len(d.RevenueByMonth))
		for m := range d.RevenueByMonth {
			months = append(months, m)
		}
		sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })
		if len(months) > 0 {
			fmt.Fprintf(out, "\nRevenue %d:\n", appInstance.Clock.Now().Year())
			for _, m := range months {
				fmt.Fprintf(out, "  %-10s %s\n", m, money(d.RevenueByMonth[m]))
			}
		}
		return nil
	},
}
