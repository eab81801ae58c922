package cli

import (
	"github.com/spf13/cobra"

	"github.com/andy/billable/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the terminal UI",
	Long:  `Launch the interactive dashboard and timer for the acting user.`,
	RunE:  launchTUI,
}

func launchTUI(cmd *cobra.Command, args []string) error {
	user, err := actingUser(cmd)
	if err != nil {
		return err
	}
	return tui.Run(appInstance, user)
}
