package redis

import (
	"context"
	"fmt"
	"time"
)

const (
	SystemStatusKey = "system-status"

	SystemTotalsCostKey      = "system_totals:cost"
	SystemTotalsTokensKey    = "system_totals:tokens"
	SystemTotalsSummariesKey = "system_totals:summaries"
)

// MonthlyUsageKey is a usage counter reset by the clear usage worker.
func MonthlyUsageKey(name string) string {
	return "monthly_usage:" + name
}

// UsageResetKey marks the month, formatted 2006-01, whose usage counters were already cleared.
func UsageResetKey(month string) string {
	return "usage-reset:" + month
}

func RefreshLockKey(channelURL string) string {
	return "refresh-lock:" + channelURL
}

// AcquireLock takes a best-effort distributed lock that expires on its own after ttl.
// It reports false when somebody else holds the lock.
func AcquireLock(ctx context.Context, c Client, key string, ttl time.Duration) (bool, error) {
	ok, err := c.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("AcquireLock: failed to set %s: %w", key, err)
	}
	return ok, nil
}

func ReleaseLock(ctx context.Context, c Client, key string) error {
	err := c.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("ReleaseLock: failed to delete %s: %w", key, err)
	}
	return nil
}
