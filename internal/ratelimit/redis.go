package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/spacebook/internal/config"
)

const keyPrefix = "spacebook:ratelimit:%s"

const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
  ts = now
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  local refill = (delta / 1000) * rate
  tokens = math.min(burst, tokens + refill)
  ts = now
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens)}
`

// RedisLimiter shares token buckets between instances. Refill uses the
// redis server clock.
type RedisLimiter struct {
	client redis.Scripter
	script *redis.Script
	policy *config.PolicyHolder
}

func NewRedisLimiter(client redis.Scripter, policy *config.PolicyHolder) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(tokenBucketScript),
		policy: policy,
	}
}

func (t *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, ErrEmptyKey
	}
	p := t.policy.Get().RateLimit
	ttl := bucketTTL(p.Rate, p.Burst)

	res, err := t.script.Run(
		ctx,
		t.client,
		[]string{fmt.Sprintf(keyPrefix, key)},
		p.Rate,
		p.Burst,
		int64(ttl/time.Millisecond),
	).Slice()
	if err != nil {
		return Result{}, err
	}
	if len(res) < 2 {
		return Result{}, errors.New("invalid rate limit script response")
	}

	allowed, _ := res[0].(int64)
	tokens := parseTokens(res[1])

	out := Result{
		Allowed:   allowed == 1,
		Limit:     p.Burst,
		Remaining: int(math.Max(0, math.Floor(tokens))),
	}
	if !out.Allowed {
		out.RetryAfter = retryAfter(tokens, p.Rate)
	}
	return out, nil
}

// Lua numbers are truncated to integers on return, so tokens come back as a string.
func parseTokens(v interface{}) float64 {
	switch val := v.(type) {
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return f
	case int64:
		return float64(val)
	default:
		return 0
	}
}

func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Ceil((float64(burst) / rate) * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

var _ Limiter = (*RedisLimiter)(nil)
