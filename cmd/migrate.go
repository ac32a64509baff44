package main

import (
	"errors"
	"fmt"

	"github.com/UnknownOlympus/waymark/internal/config"
	"github.com/UnknownOlympus/waymark/internal/repository"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the points table in PostgreSQL",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Store.Backend != config.BackendPostgres {
		return errors.New("migrate needs store.backend set to postgres")
	}

	logger := setupLogger(cfg.Env)

	dtb, err := repository.NewDatabase(ctx, repository.PoolConfig{DSN: cfg.Postgres.DSN(), MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer dtb.Close()

	if err = repository.NewRepository(dtb, logger).EnsureSchema(ctx); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Schema is up to date")
	return nil
}
