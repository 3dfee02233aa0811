package cyclelock

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/buildingbills/internal/config"
	"github.com/smallbiznis/buildingbills/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("cyclelock",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
	Metrics   *metrics.EngineMetrics `optional:"true"`
}

// New returns a Redis-backed locker when REDIS_ADDR is set and an
// in-process one otherwise.
func New(p Params) Locker {
	log := p.Log.Named("cyclelock")
	addr := strings.TrimSpace(p.Config.RedisAddr)
	if addr == "" {
		log.Info("redis not configured, using in-process cycle lock")
		return NewLocalLocker(p.Metrics)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(p.Config.RedisPassword),
		DB:       p.Config.RedisDB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewRedisLocker(client, log, p.Metrics)
}
