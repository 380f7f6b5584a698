// Package cache provides an optional Redis-backed cache for running
// balances. The entry log stays authoritative: the cache is invalidated in
// the same unit of work that appends an entry, and a miss always falls back
// to recomputation.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// BalanceCache caches owner running balances. A nil *BalanceCache is valid
// and behaves as a permanent miss.
type BalanceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New builds a cache on the given client.
func New(rdb *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{rdb: rdb, ttl: ttl}
}

func key(ownerKind, ownerID string) string {
	return fmt.Sprintf("balance:%s:%s", ownerKind, ownerID)
}

// Get returns (balance, true) on a hit.
func (c *BalanceCache) Get(ctx context.Context, ownerKind, ownerID string) (int64, bool) {
	if c == nil || c.rdb == nil {
		return 0, false
	}
	val, err := c.rdb.Get(ctx, key(ownerKind, ownerID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores a freshly computed balance.
func (c *BalanceCache) Set(ctx context.Context, ownerKind, ownerID string, balance int64) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Set(ctx, key(ownerKind, ownerID), strconv.FormatInt(balance, 10), c.ttl)
}

// Invalidate drops the cached balance. Called within the appending unit of
// work, before the new balance is recomputed.
func (c *BalanceCache) Invalidate(ctx context.Context, ownerKind, ownerID string) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, key(ownerKind, ownerID))
}
