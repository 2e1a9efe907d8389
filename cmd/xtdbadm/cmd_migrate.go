package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planetf1/egeria-connector-xtdb/internal/config"
	"github.com/planetf1/egeria-connector-xtdb/internal/connector"
	"github.com/planetf1/egeria-connector-xtdb/internal/dbpool"
	"github.com/planetf1/egeria-connector-xtdb/internal/pgstore"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the PostgreSQL backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if cfg.Backend != config.BackendPostgres {
				return fmt.Errorf("migrate requires XTDB_BACKEND=postgres, got %q", cfg.Backend)
			}

			log := connector.NewLogger(cfg)

			pool, err := dbpool.NewPool(cmd.Context(), cfg.DatabaseURL.Value())
			if err != nil {
				return err
			}
			defer pool.Close()

			return pgstore.RunMigrations(cmd.Context(), pool, log)
		},
	}
}
