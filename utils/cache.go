package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Hour
	cacheOpTimeout  = 2 * time.Second

	// PostListCachePrefix prefixes cached listing pages; any post or comment write invalidates it.
	PostListCachePrefix = "cache:posts:list:"
)

// PageCache stores rendered responses in Redis under a common key prefix so
// they can be dropped together. A nil client disables it; every method is
// then a no-op and Get always misses.
type PageCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// NewPageCache creates a PageCache. A non-positive ttl means one hour.
func NewPageCache(rc *redis.Client, prefix string, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &PageCache{rc: rc, prefix: prefix, ttl: ttl}
}

// PageKey names one listing page.
func (c *PageCache) PageKey(page, limit int) string {
	return fmt.Sprintf("%spage=%d:limit=%d", c.prefix, page, limit)
}

// Get returns the cached bytes for key. Errors count as a miss.
func (c *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Sugar.Warnf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

// SetJSON marshals v and stores it under key.
func (c *PageCache) SetJSON(ctx context.Context, key string, v interface{}) {
	if c == nil || c.rc == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		Sugar.Warnf("cache marshal failed key=%s err=%v", key, err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, c.ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// Invalidate deletes every key under the cache prefix using SCAN.
func (c *PageCache) Invalidate(ctx context.Context) {
	if c == nil || c.rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	iter := c.rc.Scan(ctx, 0, c.prefix+"*", 1000).Iterator()
	keys := make([]string, 0, 64)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		Sugar.Warnf("cache invalidate scan failed prefix=%s err=%v", c.prefix, err)
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rc.Del(ctx, keys...).Err(); err != nil {
		Sugar.Warnf("cache invalidate failed prefix=%s err=%v", c.prefix, err)
	}
}
