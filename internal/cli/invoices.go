package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andy/billable/internal/domain"
	"github.com/andy/billable/internal/service"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Manage invoices",
	Long:  `Bill time entries and manage the invoice lifecycle.`,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}

		var q service.InvoiceQuery
		if cmd.Flags().Changed("client") {
			id, _ := cmd.Flags().GetInt64("client")
			q.ClientID = &id
		}
		if cmd.Flags().Changed("status") {
			statusStr, _ := cmd.Flags().GetString("status")
			s := domain.InvoiceStatus(statusStr)
			q.Status = &s
		}
		q.OverdueOnly, _ = cmd.Flags().GetBool("overdue")

		invoices, err := appInstance.Invoices.ListInvoices(ctx, user.ID, q)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}

		if len(invoices) == 0 {
			fmt.Fprintln(out, "No invoices found")
			return nil
		}

		// Print table header
		fmt.Fprintf(out, "%-5s %-15s %-20s %-11s %-12s %-12s %-10s\n", "ID", "Number", "Client", "Due", "Total", "Outstanding", "Status")
		fmt.Fprintln(out, "--------------------------------------------------------------------------------------------")

		for _, invoice := range invoices {
			client, _ := appInstance.Clients.Get(ctx, user.ID, invoice.ClientID)
			clientName := fmt.Sprintf("Client #%d", invoice.ClientID)
			if client != nil {
				clientName = client.Name
			}

			fmt.Fprintf(out, "%-5d %-15s %-20s %-11s %-12s %-12s %-10s\n",
				invoice.ID,
				invoice.InvoiceNumber,
				truncate(clientName, 20),
				invoice.DueDate.Format(time.DateOnly),
				invoice.TotalAmount.StringFixed(2),
				invoice.OutstandingAmount.StringFixed(2),
				invoice.DisplayStatus,
			)
		}

		fmt.Fprintf(out, "\nTotal: %d invoice(s)\n", len(invoices))
		return nil
	},
}

var invoicesBillCmd = &cobra.Command{
	Use:   "bill [client_id] [entry_ids...]",
	Short: "Create a draft invoice from stopped time entries",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		clientID, err := parseID("client", args[0])
		if err != nil {
			return err
		}

		in := service.FromEntriesInput{ClientID: clientID}
		for _, raw := range args[1:] {
			id, err := parseID("entry", raw)
			if err != nil {
				return err
			}
			in.EntryIDs = append(in.EntryIDs, id)
		}
		if cmd.Flags().Changed("project") {
			id, _ := cmd.Flags().GetInt64("project")
			in.ProjectID = &id
		}
		if cmd.Flags().Changed("tax") {
			raw, _ := cmd.Flags().GetString("tax")
			rate, err := parseAmount(raw)
			if err != nil {
				return err
			}
			in.TaxRate = &rate
		}
		in.Notes, _ = cmd.Flags().GetString("notes")

		invoice, err := appInstance.Invoices.CreateInvoiceFromTimeEntries(cmd.Context(), user.ID, in)
		if err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Draft invoice created: %s (ID: %d)\n", invoice.InvoiceNumber, invoice.ID)
		printTotals(cmd.OutOrStdout(), invoice)
		return nil
	},
}

var invoicesShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show invoice details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		user, err := actingUser(cmd)
		if err != nil {
			return err
		}
		id, err := parseID("invoice", args[0])
		if err != nil {
			return err
		}

		invoice, err := appInstance.Invoices.GetInvoice(ctx, user.ID, id)
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}

		client, _ := appInstance.Clients.Get(ctx, user.ID, invoice.ClientID)
		clientName := fmt.Sprintf("Client #%d", invoice.ClientID)
		if client != nil {
			clientName = client.Name
		}

		// Print invoice details
		fmt.Fprintln(out, strings.Repeat("=", 80))
		fmt.Fprintf(out, "Invoice: %s\n", invoice.InvoiceNumber)
		fmt.Fprintln(out, strings.Repeat("=", 80))
		if from := cfgInstance.User; from.Name != "" {
			fmt.Fprintf(out, "From: %s\n", from.Name)
			for _, line := range []string{from.Address, from.Email, from.Phone} {
				if line != "" {
					fmt.Fprintf(out, "      %s\n", line)
				}
			}
		}
		fmt.Fprintf(out, "Client: %s\n", clientName)
		fmt.Fprintf(out, "Date: %s  Due: %s\n",
			invoice.InvoiceDate.Format(time.DateOnly),
			invoice.DueDate.Format(time.DateOnly),
		)
		fmt.Fprintf(out, "Status: %s\n", invoice.DisplayStatus)
		fmt.Fprintln(out)

		if len(invoice.Items) > 0 {
			fmt.Fprintln(out, "Line Items:")
			fmt.Fprintln(out, strings.Repeat("-", 80))
			fmt.Fprintf(out, "%-44s %8s %12s %12s\n", "Description", "Qty", "Unit Price", "Total")
			fmt.Fprintln(out, strings.Repeat("-", 80))
			for _, item := range invoice.Items {
				fmt.Fprintf(out, "%-44s %8s %12s %12s\n",
					truncate(item.Description, 44),
					item.Quantity.String(),
					item.UnitPrice.StringFixed(2),
					item.TotalPrice.StringFixed(2),
				)
			}
			fmt.Fprintln(out, strings.Repeat("-", 80))
		}

		fmt.Fprintln(out)
		printTotals(out, invoice)
		fmt.Fprintln(out, strings.Repeat("=", 80))
		return nil
	},
}

// invoiceAction builds a command that applies fn to one invoice
func invoiceAction(use, short, done string, fn func(cmd *cobra.Command, args []string, userID, id int64) (*service.InvoiceView, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("invoice", args[0])
			if err != nil {
				return err
			}

			invoice, err := fn(cmd, args, user.ID, id)
			if err != nil {
				return fmt.Errorf("failed to %s invoice: %w", cmd.Name(), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Invoice %s %s\n", invoice.InvoiceNumber, done)
			printTotals(cmd.OutOrStdout(), invoice)
			return nil
		},
	}
}

var invoicesSendCmd = invoiceAction("send [id]", "Mark a draft invoice as sent", "sent",
	func(cmd *cobra.Command, args []string, userID, id int64) (*service.InvoiceView, error) {
		return appInstance.Invoices.SendInvoice(cmd.Context(), userID, id)
	})

var invoicesPayCmd = invoiceAction("pay [id]", "Mark an invoice as paid in full", "paid",
	func(cmd *cobra.Command, args []string, userID, id int64) (*service.InvoiceView, error) {
		var paidAt *time.Time
		if cmd.Flags().Changed("date") {
			dateStr, _ := cmd.Flags().GetString("date")
			t, err := parseDate(dateStr)
			if err != nil {
				return nil, fmt.Errorf("invalid paid date: %w", err)
			}
			paidAt = &t
		}
		return appInstance.Invoices.MarkAsPaid(cmd.Context(), userID, id, paidAt)
	})

var invoicesCancelCmd = invoiceAction("cancel [id]", "Cancel an invoice and release its entries", "cancelled",
	func(cmd *cobra.Command, args []string, userID, id int64) (*service.InvoiceView, error) {
		return appInstance.Invoices.CancelInvoice(cmd.Context(), userID, id)
	})

var invoicesDiscountCmd = invoiceAction("discount [id] [amount]", "Apply a fixed discount to a draft invoice", "discounted",
	func(cmd *cobra.Command, args []string, userID, id int64) (*service.InvoiceView, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected an invoice ID and an amount")
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return nil, err
		}
		return appInstance.Invoices.ApplyDiscount(cmd.Context(), userID, id, amount)
	})

var invoicesNextNumberCmd = &cobra.Command{
	Use:   "next-number",
	Short: "Show the next invoice number without using it",
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := appInstance.Invoices.PeekInvoiceNumber(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get next invoice number: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), number)
		return nil
	},
}

func printTotals(out io.Writer, invoice *service.InvoiceView) {
	fmt.Fprintf(out, "  Subtotal: %s\n", money(invoice.Subtotal))
	if invoice.DiscountAmount.IsPositive() {
		fmt.Fprintf(out, "  Discount: -%s\n", money(invoice.DiscountAmount))
	}
	fmt.Fprintf(out, "  Tax (%s%%): %s\n", invoice.TaxRate.String(), money(invoice.TaxAmount))
	fmt.Fprintf(out, "  Total: %s\n", money(invoice.TotalAmount))
	if invoice.PaidAmount.IsPositive() {
		fmt.Fprintf(out, "  Paid: %s\n", money(invoice.PaidAmount))
	}
	fmt.Fprintf(out, "  Outstanding: %s\n", money(invoice.OutstandingAmount))
}

func init() {
	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesBillCmd)
	invoicesCmd.AddCommand(invoicesShowCmd)
	invoicesCmd.AddCommand(invoicesSendCmd)
	invoicesCmd.AddCommand(invoicesPayCmd)
	invoicesCmd.AddCommand(invoicesCancelCmd)
	invoicesCmd.AddCommand(invoicesDiscountCmd)
	invoicesCmd.AddCommand(invoicesNextNumberCmd)

	// List flags
	invoicesListCmd.Flags().Int64("client", 0, "Filter by client ID")
	invoicesListCmd.Flags().String("status", "", "Filter by status (draft, sent, paid, overdue, cancelled)")
	invoicesListCmd.Flags().Bool("overdue", false, "Only sent invoices past their due date")

	// Bill flags
	invoicesBillCmd.Flags().Int64("project", 0, "Require every entry to belong to this project")
	invoicesBillCmd.Flags().String("tax", "", "Tax rate in percent (defaults to invoice.default_tax_rate)")
	invoicesBillCmd.Flags().String("notes", "", "Notes printed on the invoice")

	// Pay flags
	invoicesPayCmd.Flags().String("date", "", "Payment date (defaults to today)")
}
