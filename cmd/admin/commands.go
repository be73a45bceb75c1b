package main

import (
	"context"
	"fmt"
	"time"

	"kinship/internal/bootstrap"
	"kinship/internal/config"
	"kinship/internal/middleware"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           "admin",
		Short:         "Kinship maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			middleware.ConfigureLogger(cfg.Env)
			return nil
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply, inspect or roll back SQL migrations",
	}
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply pending SQL migrations",
		RunE:  runMigrateUp,
	}
	migrateAutoCmd = &cobra.Command{
		Use:   "auto",
		Short: "Run GORM AutoMigrate for every persistent model",
		RunE:  runMigrateAuto,
	}
	migrateStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the schema policy and pending migrations",
		RunE:  runMigrateStatus,
	}
	migrateDownCmd = &cobra.Command{
		Use:   "down [version]",
		Short: "Roll back one migration, the latest when no version is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMigrateDown,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo users, posts and conversations",
		RunE:  runSeed,
	}

	notificationsCmd = &cobra.Command{
		Use:   "notifications",
		Short: "Notification maintenance",
	}
	notificationsPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete read notifications older than --older-than",
		RunE:  runNotificationsPrune,
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML with secrets masked",
		RunE:  runConfigShow,
	}
)

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateAutoCmd, migrateStatusCmd, migrateDownCmd)

	seedCmd.Flags().Int("users", 50, "number of users to create")
	seedCmd.Flags().Int("posts", 200, "number of posts to create")
	seedCmd.Flags().Bool("clean", false, "truncate social tables first")
	seedCmd.Flags().Bool("dry-run", false, "build entities without writing")
	seedCmd.Flags().Bool("fast", false, "store the demo password unhashed")

	notificationsPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "minimum age of read notifications to delete")
	notificationsCmd.AddCommand(notificationsPruneCmd)

	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(migrateCmd, seedCmd, notificationsCmd, configCmd)
}

// connect opens the database without applying the schema policy. Admin
// commands never touch redis, so the client is closed right away.
func connect(ctx context.Context) (*gorm.DB, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return db, nil
}
