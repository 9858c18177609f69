package ratelimit

import (
	"context"
	"math"
	"sync"

	"github.com/smallbiznis/spacebook/internal/clock"
	"github.com/smallbiznis/spacebook/internal/config"
	"golang.org/x/time/rate"
)

const defaultMaxKeys = 10000

// LocalLimiter keeps one token bucket per key in process memory. Buckets
// that have refilled completely are dropped once maxKeys is reached.
type LocalLimiter struct {
	policy  *config.PolicyHolder
	clock   clock.Clock
	maxKeys int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewLocalLimiter(policy *config.PolicyHolder, clk clock.Clock) *LocalLimiter {
	return &LocalLimiter{
		policy:   policy,
		clock:    clk,
		maxKeys:  defaultMaxKeys,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, ErrEmptyKey
	}
	p := l.policy.Get().RateLimit
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= l.maxKeys {
			l.evictLocked(p.Burst)
		}
		lim = rate.NewLimiter(rate.Limit(p.Rate), p.Burst)
		l.limiters[key] = lim
	}
	if lim.Limit() != rate.Limit(p.Rate) {
		lim.SetLimitAt(now, rate.Limit(p.Rate))
	}
	if lim.Burst() != p.Burst {
		lim.SetBurstAt(now, p.Burst)
	}

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)

	res := Result{
		Allowed:   allowed,
		Limit:     p.Burst,
		Remaining: int(math.Max(0, math.Floor(tokens))),
	}
	if !allowed {
		res.RetryAfter = retryAfter(tokens, p.Rate)
	}
	return res, nil
}

func (l *LocalLimiter) evictLocked(burst int) {
	now := l.clock.Now()
	for key, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(burst) {
			delete(l.limiters, key)
		}
	}
	if len(l.limiters) < l.maxKeys {
		return
	}
	// every bucket is in use; drop an arbitrary one
	for key := range l.limiters {
		delete(l.limiters, key)
		return
	}
}

var _ Limiter = (*LocalLimiter)(nil)
