package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/spacebook/internal/authorization"
	"github.com/smallbiznis/spacebook/internal/booking"
	"github.com/smallbiznis/spacebook/internal/catalog"
	"github.com/smallbiznis/spacebook/internal/clock"
	"github.com/smallbiznis/spacebook/internal/config"
	"github.com/smallbiznis/spacebook/internal/invoice"
	"github.com/smallbiznis/spacebook/internal/observability"
	"github.com/smallbiznis/spacebook/internal/payment"
	"github.com/smallbiznis/spacebook/internal/providers"
	"github.com/smallbiznis/spacebook/internal/reconciliation"
	"github.com/smallbiznis/spacebook/internal/scheduler"
	"github.com/smallbiznis/spacebook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// The sweeper runs payment reconciliation without serving HTTP, so it can
// be scaled apart from the API. Schema migrations stay with the API process.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by the sweep
		authorization.Module,
		catalog.Module,
		booking.Module,
		providers.Module,
		invoice.Module,
		payment.Module,
		reconciliation.Module,
		scheduler.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.SnowflakeNode, err)
	}
	return node, nil
}
