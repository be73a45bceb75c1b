package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"kinship/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Aside reads key into dest, and on a miss calls fetch (which must populate
// dest) and stores the result for ttl. Redis failures degrade to calling
// fetch; only fetch errors are returned.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
		client.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		observability.GlobalLogger.WarnContext(ctx, "cache read failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}

	if err := fetch(); err != nil {
		return err
	}

	b, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, b, ttl).Err(); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "cache write failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}
