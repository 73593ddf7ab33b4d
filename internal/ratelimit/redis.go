package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var slidingWindowScript = redis.NewScript(`
-- KEYS[1] = sorted set of request timestamps (ms)
-- ARGV[1] = now_ms
-- ARGV[2] = window_ms
-- ARGV[3] = limit
-- ARGV[4] = unique member for this request
--
-- Returns {allowed (1|0), count, retry_after_ms}
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
if count >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local retry = tonumber(oldest[2]) + window - now
  return {0, count, retry}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, count + 1, 0}
`)

// RedisLimiter is a sliding-log limiter shared by all processes using the same Redis.
// The prune, count and insert happen in one Lua script, so they are atomic per key.
type RedisLimiter struct {
	rdb      *redis.Client
	policies Policies
	clock    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(rdb *redis.Client, p Policies) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, policies: p, clock: time.Now}
}

// WithClock overrides the time source (tests).
func (l *RedisLimiter) WithClock(fn func() time.Time) *RedisLimiter {
	l.clock = fn
	return l
}

func (l *RedisLimiter) Admit(ctx context.Context, clientKey string, class Class) (Decision, error) {
	if l.rdb == nil {
		return Decision{}, fmt.Errorf("ratelimit: redis client is nil")
	}
	pol, err := l.policies.For(class)
	if err != nil {
		return Decision{}, err
	}

	nowMs := l.clock().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, l.rdb,
		[]string{storageKey(class, clientKey)},
		nowMs, pol.Window.Milliseconds(), pol.Limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis admit: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}

	count := int(res[1])
	if res[0] == 0 {
		return Decision{
			Allowed:    false,
			Limit:      pol.Limit,
			Remaining:  0,
			RetryAfter: time.Duration(res[2]) * time.Millisecond,
		}, nil
	}
	remaining := pol.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Limit: pol.Limit, Remaining: remaining}, nil
}
