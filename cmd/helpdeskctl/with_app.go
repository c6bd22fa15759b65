package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lorrc/sap-helpdesk/internal/app"
	"github.com/lorrc/sap-helpdesk/internal/config"
	"github.com/lorrc/sap-helpdesk/internal/infrastructure/logging"
)

// loadConfig reads the environment and checks the settings the CLI needs.
func loadConfig() (*config.Config, error) {
	cfg := config.LoadEnv()
	if logLevel != "" {
		if _, ok := logging.ParseLevel(logLevel); !ok {
			return nil, fmt.Errorf("unknown log level %q", logLevel)
		}
		cfg.Logging.Level = logLevel
	}
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      "text",
		Output:      cmd.ErrOrStderr(),
		ServiceName: "helpdeskctl",
		Environment: cfg.App.Environment,
	})
}

// withApp builds the application for the duration of one command.
func withApp(run func(cmd *cobra.Command, a *app.App) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cmd, cfg).With("command", cmd.CommandPath())

		a, err := app.New(cmd.Context(), cfg, logger, nil)
		if err != nil {
			return fmt.Errorf("initialize application: %w", err)
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Error("close application failed", "error", err)
			}
		}()

		return run(cmd, a)
	}
}
