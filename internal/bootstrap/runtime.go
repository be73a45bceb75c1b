// Package bootstrap opens the runtime dependencies shared by the server and
// the admin tool.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"kinship/internal/cache"
	"kinship/internal/config"
	"kinship/internal/database"
	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs the configured schema policy after connecting.
	ApplySchema bool
	// SeedDemo fills an empty development database with demo data.
	SeedDemo bool
}

// InitRuntime connects to the database and redis. The redis client is nil
// when redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.ConnectWithOptions(cfg, database.Options{ApplySchema: opts.ApplySchema})
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()

	if opts.SeedDemo {
		if err := seedEmptyDevDatabase(ctx, cfg, db); err != nil {
			return nil, nil, fmt.Errorf("seed demo data: %w", err)
		}
	}
	return db, rdb, nil
}

func seedEmptyDevDatabase(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg.Env != "development" {
		middleware.Logger.WarnContext(ctx, "demo seeding only runs in development", slog.String("env", cfg.Env))
		return nil
	}
	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		if models.IsSchemaMissingError(err) {
			middleware.Logger.WarnContext(ctx, "skipping demo seed, schema not applied")
			return nil
		}
		return err
	}
	if users > 0 {
		return nil
	}
	_, err := seed.Seed(ctx, db, seed.Options{NumUsers: 25, NumPosts: 100})
	return err
}
