package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// The bridge throttles in requests-per-minute: Flodesk publishes its own
// quota per minute, so every bucket slides over the same window.
const window = time.Minute

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter enforces per-bucket requests-per-minute caps with a Redis
// sorted-set sliding window. It protects per-account Flodesk quotas from
// runaway workflows. A nil or unreachable Redis fails open: a throttle
// outage must not take the bridge down with it.
type Limiter struct {
	rdb *redis.Client
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

// slidingWindowScript atomically drops entries older than the window, admits
// the request if the bucket is under its cap, and refreshes the key TTL.
// KEYS[1] = bucket key
// ARGV[1] = window start (unix micro)
// ARGV[2] = now (unix micro), doubles as member uniqueness
// ARGV[3] = per-minute cap
// ARGV[4] = key TTL seconds
// Returns: [current_count, 1=allowed/0=denied]
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, ttl)
    return {count + 1, 1}
end

redis.call('EXPIRE', key, ttl)
return {count, 0}
`)

// Check admits or denies one request against the bucket's per-minute cap.
func (l *Limiter) Check(ctx context.Context, bucket string, perMinute int) (LimitResult, error) {
	limit := int64(perMinute)
	now := time.Now()

	if l.rdb == nil {
		return LimitResult{Allowed: true, Remaining: limit - 1, ResetAt: now.Add(window)}, nil
	}

	result, err := slidingWindowScript.Run(ctx, l.rdb, []string{"flodesk:rl:" + bucket},
		now.Add(-window).UnixMicro(),
		now.UnixMicro(),
		limit,
		int64(window.Seconds())+1,
	).Int64Slice()
	if err != nil {
		// Fail open on Redis errors
		return LimitResult{Allowed: true, Remaining: limit, ResetAt: now.Add(window)}, nil
	}

	count, allowed := result[0], result[1] == 1
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	out := LimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   now.Add(window),
	}
	if !allowed {
		out.RetryAfter = window / 2 // conservative estimate
	}
	return out, nil
}
