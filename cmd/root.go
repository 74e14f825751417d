// Package cmd implements the synap command line interface.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/synap0/synap/internal/app"
	"github.com/synap0/synap/internal/config"
	"github.com/synap0/synap/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "synap",
	Short: "Synap - semantic knowledge indexing engine",
	Long: `Synap indexes content into a searchable semantic space.

Submitted text is embedded, stored in pgvector, and automatically linked
to its most similar neighbors in a relationship graph. Use the subcommands
to ingest and search content directly, or run "synap serve" to expose the
engine over a JSON HTTP API.`,
	SilenceUsage: true,
}

// flagUser scopes every CLI operation; the HTTP API takes the owner from
// the X-User-ID header instead.
var flagUser string

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "local", "owner id for all operations")
}

// withApp loads configuration, wires the application and hands it to fn.
// The context is canceled on SIGINT/SIGTERM.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	return fn(ctx, a)
}
