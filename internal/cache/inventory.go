package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix      = "profile:%d"
	ProfileStatsKeyPrefix = "profile:%d:stats"
	UserKeyPrefix         = "user:%d"
)

const (
	ProfileTTL      = 5 * time.Minute
	ProfileStatsTTL = time.Minute
	UserTTL         = 5 * time.Minute
)

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func ProfileStatsKey(userID uint) string {
	return fmt.Sprintf(ProfileStatsKeyPrefix, userID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// Invalidate deletes keys; a missing client makes it a no-op.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateUser drops everything cached about one user.
func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID), ProfileKey(userID), ProfileStatsKey(userID))
}

// InvalidateStats drops the counters of the given users.
func InvalidateStats(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, ProfileStatsKey(id))
	}
	Invalidate(ctx, keys...)
}
