package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/titanbreach/engine/internal/config"
	"github.com/titanbreach/engine/internal/db"
)

// migrateCmd applies internal/db/schema.sql against the configured
// database and exits — a one-shot operation distinct from `serve`'s
// long-running loop.
func migrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(*configFile)
		},
	}
}

func runMigrate(configFile string) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := db.Connect(ctx, cfg.Database.URL, int32(cfg.Database.MinConnections), int32(cfg.Database.MaxConnections), log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	log.Info("migration complete")
	return nil
}
