package cyclelock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/buildingbills/internal/observability/metrics"
	"go.uber.org/zap"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type RedisLocker struct {
	client   redis.UniversalClient
	script   *redis.Script
	log      *zap.Logger
	metrics  *metrics.EngineMetrics
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
}

func NewRedisLocker(client redis.UniversalClient, log *zap.Logger, m *metrics.EngineMetrics) *RedisLocker {
	return &RedisLocker{
		client:   client,
		script:   redis.NewScript(lockReleaseScript),
		log:      log,
		metrics:  m,
		ttl:      DefaultTTL,
		wait:     DefaultWait,
		interval: defaultInterval,
	}
}

func (l *RedisLocker) Backend() string { return metrics.LockBackendRedis }

func (l *RedisLocker) Acquire(ctx context.Context, cycleID snowflake.ID) (func(), error) {
	key := fmt.Sprintf(keyCycleLock, cycleID.String())
	start := time.Now()
	deadline := start.Add(l.wait)
	contended := false

	for {
		token, ok, err := l.tryLock(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			l.metrics.ObserveLockWait(metrics.LockBackendRedis, time.Since(start), contended)
			return l.releaseFunc(key, token), nil
		}
		contended = true
		if time.Now().After(deadline) {
			l.metrics.ObserveLockWait(metrics.LockBackendRedis, time.Since(start), contended)
			return nil, ErrLockTimeout
		}

		timer := time.NewTimer(l.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) tryLock(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RedisLocker) releaseFunc(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.script.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Warn("failed to release cycle lock", zap.String("key", key), zap.Error(err))
			}
		})
	}
}
