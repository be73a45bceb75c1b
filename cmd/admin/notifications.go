package main

import (
	"fmt"
	"log/slog"

	"kinship/internal/middleware"
	"kinship/internal/repository"
	"kinship/internal/service"

	"github.com/spf13/cobra"
)

func runNotificationsPrune(cmd *cobra.Command, _ []string) error {
	olderThan, err := cmd.Flags().GetDuration("older-than")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	svc := service.NewNotificationService(repository.NewNotificationRepository(db))
	n, err := svc.Prune(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("prune notifications: %w", err)
	}
	middleware.Logger.Info("pruned notifications", slog.Int64("deleted", n), slog.Duration("older_than", olderThan))
	return nil
}
