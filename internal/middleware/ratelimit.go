package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/ecoscan-backend/pkg/clientip"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests allowed in the window
	RateLimitMaxRequests = 120
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = 15 * time.Minute
)

// RedisRateLimit counts requests per IP in a fixed window shared by all
// instances and blocks IPs that exceed it. Redis failures let requests
// through.
func RedisRateLimit(client *redis.Client, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientip.RealClientIP(r)

			blockedKey := BlockedIPKeyPrefix + ip
			isBlocked, err := client.Exists(ctx, blockedKey).Result()
			if err == nil && isBlocked > 0 {
				writeTooMany(w, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
				return
			}

			rateLimitKey := RateLimitKeyPrefix + ip
			count, err := client.Incr(ctx, rateLimitKey).Result()
			if err != nil {
				log.Debugw("rate limit unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				client.Expire(ctx, rateLimitKey, RateLimitWindow)
			}

			if count > RateLimitMaxRequests {
				if err := client.Set(ctx, blockedKey, "1", BlockedIPDuration).Err(); err == nil {
					log.Warnw("blocked IP after excessive requests", "ip", ip, "count", count)
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(BlockedIPDuration.Seconds())))
				writeTooMany(w, "Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(RateLimitMaxRequests-count, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(RateLimitWindow).Unix(), 10))
			next.ServeHTTP(w, r)
		})
	}
}
