package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorrc/sap-helpdesk/internal/adapters/secondary/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending PostgreSQL schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		url, _ := cmd.Flags().GetString("database-url")
		if url == "" {
			url = cfg.Store.DatabaseURL
		}
		if url == "" {
			return errors.New("no database URL: set DATABASE_URL or --database-url")
		}

		logger := newLogger(cmd, cfg)
		if err := postgres.Migrate(url); err != nil {
			return err
		}
		logger.Info("migrations applied")
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
		return err
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().String("database-url", "", "PostgreSQL URL; defaults to DATABASE_URL")
}
