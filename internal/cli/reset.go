package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the acting user's data",
	Long: `Delete data belonging to the acting user. Invoice numbers already issued
are never handed out again.

Examples:
  billable reset invoices   # Delete invoices and unlock their time entries
  billable reset entries    # Delete time entries and invoices
  billable reset all        # Also delete projects and clients`,
}

// statement lists run in order inside one transaction; each takes the user id
var (
	resetInvoiceStmts = []string{
		"UPDATE time_entries SET invoice_id = NULL WHERE user_id = ? AND invoice_id IS NOT NULL",
		"DELETE FROM invoices WHERE user_id = ?",
	}
	resetEntryStmts = append(append([]string{}, resetInvoiceStmts...),
		"DELETE FROM time_entries WHERE user_id = ?",
		"UPDATE projects SET actual_hours = '0' WHERE user_id = ?",
		"UPDATE assignments SET actual_hours = '0' WHERE user_id = ?",
	)
	resetAllStmts = append(append([]string{}, resetEntryStmts...),
		"DELETE FROM projects WHERE user_id = ?",
		"DELETE FROM clients WHERE user_id = ?",
	)
)

func resetCommand(use, short, prompt, done string, stmts []string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := actingUser(cmd)
			if err != nil {
				return err
			}
			if appInstance.DB == nil {
				return errors.New("reset needs the SQLite database")
			}
			if !confirmPrompt(fmt.Sprintf("%s for %s. Continue?", prompt, user.Username)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			if err := execAll(cmd.Context(), appInstance.DB.DB, user.ID, stmts); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), done)
			return nil
		},
	}
}

func execAll(ctx context.Context, db *sql.DB, userID int64, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, userID); err != nil {
			return fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}
	return tx.Commit()
}

func confirmPrompt(message string) bool {
	fmt.Printf("%s [y/N] ", message)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func init() {
	resetCmd.AddCommand(resetCommand("invoices", "Delete all invoices and unlock their time entries",
		"This will delete ALL invoices", "All invoices have been deleted and time entries unlocked.", resetInvoiceStmts))
	resetCmd.AddCommand(resetCommand("entries", "Delete all time entries and invoices",
		"This will delete ALL time entries and invoices", "All time entries and invoices have been deleted.", resetEntryStmts))
	resetCmd.AddCommand(resetCommand("all", "Delete ALL data: clients, projects, entries, invoices",
		"This will delete ALL clients, projects, entries and invoices", "All data has been deleted.", resetAllStmts))
}
