package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/spacebook/internal/config"
	"github.com/smallbiznis/spacebook/internal/seed"
	pkgdb "github.com/smallbiznis/spacebook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, policy *config.PolicyHolder, node *snowflake.Node, log *zap.Logger) error {
		log = log.Named("migration")

		switch pkgdb.DialectName(conn) {
		case pkgdb.DialectPostgres:
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		default:
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}
		log.Info("schema ready", zap.String("dialect", pkgdb.DialectName(conn)))

		if !cfg.SeedDemoSpaces {
			return nil
		}
		seeded, err := seed.EnsureDemoSpaces(context.Background(), conn, node, policy.Get().DefaultCurrency)
		if err != nil {
			return err
		}
		log.Info("demo spaces ensured", zap.Int("inserted", seeded))
		return nil
	}),
)
