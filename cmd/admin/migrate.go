package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"kinship/internal/database"
	"kinship/internal/middleware"

	"github.com/spf13/cobra"
)

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	middleware.Logger.Info("sql migrations applied")
	return nil
}

func runMigrateAuto(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("auto schema apply failed: %w", err)
	}
	middleware.Logger.Info("automigrations applied")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
		status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
		len(status.AppliedVersions), len(status.PendingMigrations))
	for _, m := range status.PendingMigrations {
		fmt.Fprintf(out, "pending: %s\n", m.String())
	}
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := connect(ctx)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		version, err := database.RollbackLatest(ctx, db)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		middleware.Logger.Info("rolled back migration", slog.Int("version", version))
		return nil
	}

	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	middleware.Logger.Info("rolled back migration", slog.Int("version", version))
	return nil
}
