// Package cmd defines and implements the CLI commands for the rentalwatch executable.
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rentalwatch/internal/logging"
)

// newWatchCmd creates and configures the 'watch' subcommand. It starts the
// background crawl loop and the HTTP health surface, and blocks until the
// process receives an interrupt.
func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Starts the listing watcher",
		Long: `Runs the watcher loop: during active hours it repeatedly crawls the
configured sites, classifies whatever was queued and emails the results.
An HTTP endpoint is exposed for liveness checks and metrics.`,

		RunE: runWatchCommand,
	}
	return cmd
}

func runWatchCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := appInstance.GetConfig().Server.Port
	go func() {
		if err := appInstance.GetServer().ListenAndServe(port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()

	appInstance.GetScheduler().Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := appInstance.GetServer().Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}

	logging.L.Info("Watch command finished.")
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
