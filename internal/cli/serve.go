package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/andy/billable/internal/api"
	"github.com/andy/billable/internal/auth"
	"github.com/andy/billable/internal/config"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appInstance.Config
		logger := appInstance.Logger

		if cfg.Server.Mode != "" {
			gin.SetMode(cfg.Server.Mode)
		}
		issuer, err := appInstance.Issuer()
		if errors.Is(err, auth.ErrNoSecret) {
			return fmt.Errorf("set auth.jwt_secret in the config or %s", config.EnvJWTSecret)
		}
		if err != nil {
			return err
		}

		router := api.NewServer(appInstance.Services(), issuer, logger).Router()
		srv := api.HTTPServer(cfg.Server.Addr, router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", cfg.Server.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	},
}
