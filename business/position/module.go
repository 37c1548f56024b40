// Package position implements the position bounded context: the lifecycle
// of admitted trades from entry to close.
package position

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	connectionDI "github.com/fd1az/pool-sniper/business/connection/di"
	executionDI "github.com/fd1az/pool-sniper/business/execution/di"
	marketDI "github.com/fd1az/pool-sniper/business/market/di"
	"github.com/fd1az/pool-sniper/business/position/app"
	"github.com/fd1az/pool-sniper/business/position/domain"
	positionDI "github.com/fd1az/pool-sniper/business/position/di"
	"github.com/fd1az/pool-sniper/business/position/infra/trader"
	strategyDI "github.com/fd1az/pool-sniper/business/strategy/di"
	"github.com/fd1az/pool-sniper/internal/config"
	"github.com/fd1az/pool-sniper/internal/di"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/monolith"
)

// Module implements the position bounded context.
type Module struct {
	manager *app.Manager
}

// RegisterServices registers the trader and the manager.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, positionDI.Trader, func(sr di.ServiceRegistry) app.TradeExecutor {
		cfg := sr.Get("config").(*config.Config)
		return trader.New(
			strategyDI.GetEngine(sr),
			executionDI.GetLegExecutor(sr),
			decimal.NewFromFloat(cfg.Trading.MaxSlippage),
		)
	})

	di.RegisterToken(c, positionDI.Manager, func(sr di.ServiceRegistry) *app.Manager {
		cfg := sr.Get("config").(*config.Config)
		mgr, err := app.NewManager(
			ManagerConfig(cfg.Position),
			positionDI.GetTrader(sr),
			marketDI.GetStore(sr),
			connectionDI.GetStateTracker(sr),
			sr.Get("bus").(*eventbus.Bus),
			sr.Get("clock").(clockwork.Clock),
			sr.Get("logger").(logger.LoggerInterface),
		)
		if err != nil {
			panic("failed to create position manager: " + err.Error())
		}
		return mgr
	})

	return nil
}

// Startup subscribes the manager to connectivity changes.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	m.manager = positionDI.GetManager(mono.Services())
	m.manager.Start(ctx)
	mono.Logger().Info(ctx, "position module started",
		"monitor_interval", mono.Config().Position.MonitorInterval,
		"paused", m.manager.Paused())
	return nil
}

// Shutdown stops every monitor.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.manager == nil {
		return nil
	}
	return m.manager.Stop(ctx)
}

// ManagerConfig maps configuration onto monitor settings.
func ManagerConfig(cfg config.PositionConfig) app.Config {
	return app.Config{
		MonitorInterval: cfg.MonitorInterval,
		AdjustFraction:  decimal.NewFromFloat(cfg.AdjustFraction),
		Thresholds: domain.Thresholds{
			TargetProfit:     cfg.TargetProfit,
			StopLoss:         cfg.StopLoss,
			MaxRisk:          cfg.MaxRisk,
			MaxLossThreshold: cfg.MaxLossThreshold,
			MaxRiskThreshold: cfg.MaxRiskThreshold,
			MaxHold:          cfg.MaxHold,
		},
	}
}
