package main

import (
	"os"

	"github.com/spf13/cobra"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	"docvault/internal/logging"
)

func newMigrateCommand(cfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.NewJSON(os.Stdout, cfg.LogLevel, cfg.Location())

			db, err := database.NewPostgres(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			return migration.EnsureMigrated(ctx, db, log, cfg.Database.Host)
		},
	}
}
