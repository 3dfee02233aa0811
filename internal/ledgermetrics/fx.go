package ledgermetrics

import (
	"context"
	"time"

	"github.com/smallbiznis/buildingbills/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("ledger.metrics",
	fx.Provide(NewGauges),
	fx.Provide(NewPusher),
	fx.Invoke(startWorker),
)

func startWorker(lc fx.Lifecycle, cfg config.Config, gauges *Gauges, pusher Pusher, db *gorm.DB, logger *zap.Logger) {
	if pusher == nil {
		return
	}
	log := logger.Named("ledger.metrics")
	interval := cfg.MetricsPush.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting ledger metrics pusher", zap.Duration("interval", interval))
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					pushOnce(ctx, gauges, pusher, db, log)
					select {
					case <-ticker.C:
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func pushOnce(ctx context.Context, gauges *Gauges, pusher Pusher, db *gorm.DB, log *zap.Logger) {
	pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()
	if err := gauges.Refresh(pushCtx, db); err != nil {
		log.Warn("ledger gauges refresh failed", zap.Error(err))
		return
	}
	if err := pusher.Push(pushCtx, gauges.Gatherer()); err != nil {
		log.Warn("ledger metrics push failed", zap.Error(err))
	}
}
