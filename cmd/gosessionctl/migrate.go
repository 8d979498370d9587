package main

import (
	"github.com/MrEthical07/goSession/pgstore"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending embedded migrations to the Postgres database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := newLogger(cfg)

			// Wait for the database before goose opens its own connection.
			pool, err := connectPostgres(ctx, logger, cfg.DatabaseURL, cfg.ConnectAttempts)
			if err != nil {
				return err
			}
			pool.Close()

			cmd.Println("Running migrations...")
			if err := pgstore.Migrate(ctx, cfg.DatabaseURL); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
}
