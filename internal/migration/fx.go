package migration

import (
	"strings"

	"github.com/smallbiznis/buildingbills/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}
		if !cfg.DBAutoMigrate {
			log.Info("schema auto-migration disabled", zap.String("db_type", cfg.DBType))
			return nil
		}
		return AutoMigrate(conn)
	}),
)
