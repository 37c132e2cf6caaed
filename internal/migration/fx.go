package migration

import (
	"github.com/somagouache/gouache/internal/config"
	"github.com/somagouache/gouache/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.DBMigrate {
			return nil
		}

		if db.IsSQLite(conn) {
			log.Info("applying sqlite schema")
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		log.Info("applying postgres migrations")
		return RunMigrations(sqlDB)
	}),
)
