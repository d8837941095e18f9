package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	AnonymousKeyPrefix = "anon_points:"
	anonymousTTL       = 90 * 24 * time.Hour
)

// AnonymousPoints stores one device's pre-sign-in balance in Redis.
type AnonymousPoints struct {
	client   *redis.Client
	deviceID string
}

func NewAnonymousPoints(client *redis.Client, deviceID string) *AnonymousPoints {
	return &AnonymousPoints{client: client, deviceID: deviceID}
}

func (a *AnonymousPoints) key() string { return AnonymousKeyPrefix + a.deviceID }

// Load returns 0 when nothing is stored.
func (a *AnonymousPoints) Load(ctx context.Context) (int, error) {
	v, err := a.client.Get(ctx, a.key()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parsePoints(v), nil
}

func (a *AnonymousPoints) Save(ctx context.Context, points int) error {
	return a.client.Set(ctx, a.key(), strconv.Itoa(points), anonymousTTL).Err()
}

func (a *AnonymousPoints) Clear(ctx context.Context) error {
	return a.client.Del(ctx, a.key()).Err()
}

// parsePoints treats malformed or negative values as zero.
func parsePoints(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
