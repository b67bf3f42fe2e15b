package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua script for an atomic fixed-window check-and-increment. Avoids the race
// in a GET → check → INCR sequence under concurrent requests.
const windowLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")

if current + 1 > limit then
    return {0, current}
end

local newVal = redis.call("INCR", key)
if newVal == 1 then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}
`

// Limiter is a Redis-backed fixed-window rate limiter, keyed per caller.
// A nil Limiter allows everything, so callers can treat it as optional.
type Limiter struct {
	redis        *redis.Client
	prefix       string
	limit        int
	window       time.Duration
	windowScript *redis.Script
}

// New creates a limiter allowing `limit` requests per `window` for each key.
func New(redisClient *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		redis:        redisClient,
		prefix:       prefix,
		limit:        limit,
		window:       window,
		windowScript: redis.NewScript(windowLuaScript),
	}
}

// Allow reports whether one more request is permitted for the given key
// inside the current window. Redis failures fail open: a broken limiter
// should never take the issuance endpoint down with it.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.redis == nil || l.limit <= 0 || l.window <= 0 {
		return true
	}

	windowStart := time.Now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowStart)

	result, err := l.windowScript.Run(ctx, l.redis,
		[]string{redisKey}, l.limit, int(l.window.Seconds())).Slice()
	if err != nil {
		log.Printf("[ratelimit] redis error for key=%s: %v", key, err)
		return true
	}
	if len(result) < 1 {
		return true
	}

	allowed, _ := result[0].(int64)
	return allowed == 1
}
