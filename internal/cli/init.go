package cli

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andy/billable/internal/app"
	"github.com/andy/billable/internal/crypto"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "First-run setup: write the config and create the encrypted database",
	Long: `Init writes a config file (unless one exists), stores the database key in
the system keyring and creates the database.

On platforms without a keyring the key is read from BILLABLE_DB_KEY; export it
before running init and keep it set afterwards.`,
	Annotations: map[string]string{noApp: ""},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cfg := cfgInstance

		_, statErr := os.Stat(configPath)
		writeConfig := errors.Is(statErr, os.ErrNotExist)
		if !writeConfig {
			writeConfig = confirmPrompt(fmt.Sprintf("%s exists. Overwrite it?", configPath))
		}
		if writeConfig {
			if userFlag != "" {
				cfg.User.Username = userFlag
			}
			if cfg.Auth.JWTSecret == "" {
				cfg.Auth.JWTSecret = rand.Text()
			}
			if err := cfg.Save(configPath); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(out, "✓ Config written to %s\n", configPath)
		}

		keys := crypto.NewKeyStore()
		key, err := keys.GetKey()
		if err == nil {
			fmt.Fprintf(out, "Using the database key from %s\n", keys.Source())
		} else {
			if !errors.Is(err, crypto.ErrNoKey) {
				fmt.Fprintf(out, "! %v\n", err)
			}
			fmt.Fprintln(out, "Your data will be encrypted with a password.")
			key, err = app.PromptPassword("Enter a password for database encryption: ")
			if err != nil {
				return err
			}
			if err := keys.SetKey(key); err != nil {
				// the database still gets created; later runs need the env var
				fmt.Fprintf(out, "! %v\n", err)
			}
		}

		a, err := app.Open(cmd.Context(), cfg, key)
		if err != nil {
			return err
		}
		appInstance = a
		version, err := a.DB.SchemaVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Database ready at %s (schema v%d)\n", cfg.Database.Path, version)

		if cfg.User.Username == "" {
			fmt.Fprintln(out, "\nNext: billable users add <username>, then set user.username in the config.")
		} else if _, err := a.Users.GetByUsername(cmd.Context(), cfg.User.Username); err != nil {
			fmt.Fprintf(out, "\nNext: billable users add %s\n", cfg.User.Username)
		}
		return nil
	},
}
