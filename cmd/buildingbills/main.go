package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/buildingbills/internal/audit"
	"github.com/smallbiznis/buildingbills/internal/authorization"
	"github.com/smallbiznis/buildingbills/internal/billingcycle"
	"github.com/smallbiznis/buildingbills/internal/charge"
	"github.com/smallbiznis/buildingbills/internal/clock"
	"github.com/smallbiznis/buildingbills/internal/config"
	"github.com/smallbiznis/buildingbills/internal/cyclelock"
	"github.com/smallbiznis/buildingbills/internal/ledgermetrics"
	"github.com/smallbiznis/buildingbills/internal/migration"
	"github.com/smallbiznis/buildingbills/internal/notification"
	"github.com/smallbiznis/buildingbills/internal/observability"
	"github.com/smallbiznis/buildingbills/internal/payment"
	"github.com/smallbiznis/buildingbills/internal/providers"
	"github.com/smallbiznis/buildingbills/internal/reference"
	"github.com/smallbiznis/buildingbills/internal/server"
	"github.com/smallbiznis/buildingbills/internal/snapshot"
	"github.com/smallbiznis/buildingbills/internal/statement"
	"github.com/smallbiznis/buildingbills/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		cyclelock.Module,
		providers.Module,

		// Domains
		authorization.Module,
		audit.Module,
		reference.Module,
		billingcycle.Module,
		charge.Module,
		payment.Module,
		statement.Module,
		snapshot.Module,
		notification.Module,
		ledgermetrics.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
