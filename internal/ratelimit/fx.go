package ratelimit

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/spacebook/internal/clock"
	"github.com/smallbiznis/spacebook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewLimiter),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       config.Config
	Log       *zap.Logger
	Policy    *config.PolicyHolder
	Clock     clock.Clock
}

// NewLimiter selects the backend from RATE_LIMIT_BACKEND.
func NewLimiter(p Params) (Limiter, error) {
	log := p.Log.Named("ratelimit")
	if p.Cfg.RateLimitBackend != config.RateLimitBackendRedis {
		log.Info("using in-process rate limiter")
		return NewLocalLimiter(p.Policy, p.Clock), nil
	}

	if p.Cfg.Redis.Addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     p.Cfg.Redis.Addr,
		Password: p.Cfg.Redis.Password,
		DB:       p.Cfg.Redis.DB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.String("addr", p.Cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("using redis rate limiter", zap.String("addr", p.Cfg.Redis.Addr))
	return NewRedisLimiter(client, p.Policy), nil
}
