package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:          "helpdeskctl",
	Short:        "Operate the SAP helpdesk from the command line",
	Long:         "Maintenance commands for the SAP helpdesk: schema migrations, ticket exports and one-off runs of the scheduled jobs.",
	SilenceUsage: true,
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
}
