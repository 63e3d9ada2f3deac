package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KVCache mirrors small per-restaurant documents (settings, menu, cart
// drafts) in Redis under "<restaurantId>_<name>". A nil client makes every
// call a no-op miss so the app keeps working without Redis.
type KVCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewKVCache returns a cache whose entries expire after ttl (0 = never).
func NewKVCache(rdb *redis.Client, ttl time.Duration) *KVCache {
	return &KVCache{rdb: rdb, ttl: ttl}
}

// CacheKey builds the mirror key for name under restaurantID.
func CacheKey(restaurantID, name string) string {
	return fmt.Sprintf("%s_%s", restaurantID, name)
}

// GetJSON decodes the entry at key into dst. It reports false on a miss.
func (c *KVCache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kvcache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("kvcache: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v at key.
func (c *KVCache) SetJSON(ctx context.Context, key string, v interface{}) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kvcache: encode %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

// Delete drops key; missing keys are not an error.
func (c *KVCache) Delete(ctx context.Context, key string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, key).Err()
}
