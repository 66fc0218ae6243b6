package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter tracks per-client request counts in Redis so several
// gateway replicas share one budget. Counters are per-minute keys bumped
// by an atomic Lua script that sets the TTL on first increment; the
// allowance per window is rpm plus the burst headroom.
type RedisRateLimiter struct {
	redis *redis.Client
	rpm   int
	burst int
}

// NewRedisRateLimiter connects to addr and verifies the connection with
// a short ping before returning.
func NewRedisRateLimiter(addr string, rpm, burst int) (*RedisRateLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("rate limiter redis at %s: %w", addr, err)
	}

	if rpm <= 0 {
		rpm = 60
	}
	if burst < 0 {
		burst = 0
	}
	return &RedisRateLimiter{redis: client, rpm: rpm, burst: burst}, nil
}

// checkScript increments the minute counter and compares it against the
// limit in one round trip, setting a 70s TTL (10s of clock-skew slack)
// when the key is new.
var checkScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])

	local count = redis.call('INCR', key)
	if count == 1 then redis.call('EXPIRE', key, 70) end

	if count > limit then
		return {0, count}
	end
	return {1, count}
`)

// Check consumes one unit of the client's per-minute allowance.
func (rl *RedisRateLimiter) Check(ctx context.Context, clientID string) (Decision, error) {
	now := time.Now()
	key := fmt.Sprintf("gateway:rl:%s:%s", clientID, now.Format("2006-01-02T15:04"))
	allowance := rl.rpm + rl.burst

	result, err := checkScript.Run(ctx, rl.redis, []string{key}, allowance).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limiter redis check: %w", err)
	}

	vals, ok := result.([]interface{})
	if !ok || len(vals) < 2 {
		return Decision{}, fmt.Errorf("rate limiter redis returned unexpected shape %T", result)
	}
	admitted := vals[0].(int64) == 1
	count := vals[1].(int64)

	d := Decision{Allowed: admitted, Limit: rl.rpm}
	if admitted {
		d.Remaining = allowance - int(count)
		if d.Remaining < 0 {
			d.Remaining = 0
		}
		return d, nil
	}

	wait := 60 - now.Second()
	if wait <= 0 {
		wait = 1
	}
	d.RetryAfter = time.Duration(wait) * time.Second
	return d, nil
}

// Close releases the Redis connection.
func (rl *RedisRateLimiter) Close() error {
	if rl.redis != nil {
		return rl.redis.Close()
	}
	return nil
}
