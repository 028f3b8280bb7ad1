package domain

import (
	"context"
	"fmt"
	"time"
)

const (
	DashboardCacheKey        = "dashboard:snapshot"
	FinancePeriodCachePrefix = "finance:period:"
)

// FinancePeriodCacheKey is the cache key of one month's financial snapshot.
func FinancePeriodCacheKey(year, month int) string {
	return fmt.Sprintf("%s%04d:%02d", FinancePeriodCachePrefix, year, month)
}

// CacheRepository stores JSON-encodable values by key.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// InvalidateReports drops the dashboard and every cached financial period.
	InvalidateReports(ctx context.Context) error
}
