package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	rateLimitKeyPrefix = "ratelimit:"
	rateLimitWindow    = 60 * time.Second
)

var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    return 0
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

return 1
`)

// RateLimiter enforces a per-sender sliding window over one minute.
type RateLimiter struct {
	client *Client
	limit  int
}

func NewRateLimiter(client *Client, limit int) *RateLimiter {
	return &RateLimiter{client: client, limit: limit}
}

// Allow reports whether the sender may deliver another message in the
// current window. Redis failures fail open so a cache outage never
// blocks the intake flow.
func (rl *RateLimiter) Allow(ctx context.Context, sender string) bool {
	if rl == nil || rl.client == nil {
		return true
	}

	now := time.Now().Unix()
	key := rateLimitKeyPrefix + sender

	result, err := rateLimitScript.Run(ctx, rl.client.Client, []string{key},
		now, int64(rateLimitWindow.Seconds()), rl.limit).Int64()
	if err != nil {
		log.Warn().Err(err).Str("sender", sender).Msg("redis rate limit check failed, allowing message")
		return true
	}

	return result == 1
}
