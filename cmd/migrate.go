package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/truthschool/prepscore/internal/adapters/repository"
	"github.com/truthschool/prepscore/internal/config"
	"github.com/truthschool/prepscore/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the aggregate tables of the configured SQL store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return migrate(cmd.Context(), cfg)
		},
	}
}

func migrate(ctx context.Context, cfg *config.Config) error {
	log := logger.Get().Named("migrate")
	if cfg.StoreDriver == config.DriverMemory {
		log.Info(ctx, "memory store needs no migration")
		return nil
	}
	store, err := repository.OpenGorm(cfg.StoreDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate %s: %w", cfg.StoreDriver, err)
	}
	log.Info(ctx, "migration complete", logger.String("driver", cfg.StoreDriver))
	return nil
}
