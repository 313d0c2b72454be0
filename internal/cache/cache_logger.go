package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateSessionCache invalidates all caches touched by a session update
func InvalidateSessionCache(ctx context.Context, cm *CacheManager, sessionID uint, code string) {
	SafeDelete(ctx, cm.Session,
		fmt.Sprintf("id:%d", sessionID),
		fmt.Sprintf("code:%s", code))

	SafeInvalidatePattern(ctx, cm.Session, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("session:%d:*", sessionID))
}

// InvalidateAttemptCache invalidates per-session attempt listings
func InvalidateAttemptCache(ctx context.Context, cm *CacheManager, sessionID uint) {
	SafeInvalidatePattern(ctx, cm.Fast, fmt.Sprintf("attempts:session:%d:*", sessionID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("session:%d:*", sessionID))
}
