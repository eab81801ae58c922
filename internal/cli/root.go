package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andy/billable/internal/app"
	"github.com/andy/billable/internal/config"
	"github.com/andy/billable/internal/domain"
)

var (
	appInstance *app.App
	cfgInstance *config.Config

	configPath string
	userFlag   string
)

// commands annotated with noApp run without opening the database
const noApp = "noApp"

var rootCmd = &cobra.Command{
	Use:   "billable",
	Short: "Time tracking and invoicing for freelancers",
	Long: `Billable tracks billable hours against clients and projects, turns them
into invoices and serves the same data over a JSON API.

By default, running billable without arguments launches the interactive TUI.
Use subcommands for CLI operations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgInstance == nil {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfgInstance = cfg
		}
		if appInstance != nil || !needsApp(cmd) {
			return nil
		}
		a, err := app.New(cmd.Context(), cfgInstance)
		if err != nil {
			return err
		}
		appInstance = a
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch TUI
		return launchTUI(cmd, args)
	},
}

// Execute runs the root command and closes the app afterwards
func Execute(ctx context.Context) error {
	defer func() {
		if appInstance != nil {
			appInstance.Close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// SetApp injects an already built app, skipping database setup
func SetApp(a *app.App) {
	appInstance = a
	cfgInstance = a.Config
}

func needsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, skip := c.Annotations[noApp]; skip {
			return false
		}
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

// actingUser resolves --user or the configured username
func actingUser(cmd *cobra.Command) (*domain.User, error) {
	u, err := appInstance.ActingUser(cmd.Context(), userFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return u, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "act as this user instead of user.username from the config")

	// Add all subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(tuiCmd)
}
