package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the cache interface used for queue stats snapshots
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate removes every key with the given prefix.
	Invalidate(ctx context.Context, prefix string) error
	Close() error
}

// StatsKey builds the cache key for a tenant/branch stats snapshot
func StatsKey(tenantID, branchID string) string {
	if branchID == "" {
		return "stats:" + tenantID
	}
	return "stats:" + tenantID + ":" + branchID
}

// TenantPrefix is the invalidation prefix covering every stats snapshot
// of a tenant, branch-scoped ones included
func TenantPrefix(tenantID string) string {
	return "stats:" + tenantID
}
