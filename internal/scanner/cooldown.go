package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownKeyPrefix namespaces cooldown keys in Redis.
const CooldownKeyPrefix = "scan_cooldown:"

// Cooldown grants a key at most once per window. Acquire holds the key for
// ttl; Release shortens the hold so the key frees up window from now.
type Cooldown interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string, window time.Duration) error
}

// RedisCooldown shares cooldowns across instances with SET NX.
type RedisCooldown struct {
	client *redis.Client
}

func NewRedisCooldown(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{client: client}
}

func (c *RedisCooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, CooldownKeyPrefix+key, "1", ttl).Result()
}

func (c *RedisCooldown) Release(ctx context.Context, key string, window time.Duration) error {
	return c.client.Expire(ctx, CooldownKeyPrefix+key, window).Err()
}

// MemoryCooldown is a process-local Cooldown.
type MemoryCooldown struct {
	mu      sync.Mutex
	until   map[string]time.Time
	now     func() time.Time
	acquire int
}

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{until: make(map[string]time.Time), now: time.Now}
}

func (c *MemoryCooldown) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if t, ok := c.until[key]; ok && now.Before(t) {
		return false, nil
	}
	c.until[key] = now.Add(ttl)

	c.acquire++
	if c.acquire%256 == 0 {
		for k, t := range c.until {
			if !now.Before(t) {
				delete(c.until, k)
			}
		}
	}
	return true, nil
}

func (c *MemoryCooldown) Release(_ context.Context, key string, window time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.until[key]; ok {
		c.until[key] = c.now().Add(window)
	}
	return nil
}
