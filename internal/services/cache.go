package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix  = "cache:"
	DefaultCacheTTL = 8 * time.Hour
	MinCacheTTL     = 1 * time.Minute
	MaxCacheTTL     = 12 * time.Hour
)

// CacheService is a JSON value cache in Redis.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

// Get decodes the cached value into dest. A miss is not an error.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := c.client.Get(ctx, CacheKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetWithTTL(ctx, key, value, DefaultCacheTTL)
}

// SetWithTTL stores value with ttl clamped to [MinCacheTTL, MaxCacheTTL].
func (c *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CacheKeyPrefix+key, jsonData, clampTTL(ttl)).Err()
}

func (c *CacheService) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, CacheKeyPrefix+key).Err()
}

// Counter reads an integer counter. A missing counter reads as zero.
func (c *CacheService) Counter(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, CacheKeyPrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Incr bumps a counter and returns the new value. Counters do not expire.
func (c *CacheService) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, CacheKeyPrefix+key).Result()
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < MinCacheTTL {
		return MinCacheTTL
	}
	if ttl > MaxCacheTTL {
		return MaxCacheTTL
	}
	return ttl
}

// CacheKey generates a cache key for a specific resource
func CacheKey(resource string, identifier string) string {
	return fmt.Sprintf("%s:%s", resource, identifier)
}
