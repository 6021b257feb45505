package main

import (
	"context"
	"fmt"

	"degree_plan_review/internal/infra/config"
	idb "degree_plan_review/internal/infra/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store != config.StorePostgres {
			return fmt.Errorf("migrate needs STORE=%s, got %q", config.StorePostgres, cfg.Store)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("could not connect to database: %w", err)
		}
		defer db.Close()

		if err := idb.ApplySchema(ctx, db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema applied")
		return nil
	},
}
