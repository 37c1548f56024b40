// Package strategy implements the strategy bounded context: scoring market
// data into opportunities and executing them as order legs.
package strategy

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	connectionDI "github.com/fd1az/pool-sniper/business/connection/di"
	executionDI "github.com/fd1az/pool-sniper/business/execution/di"
	marketDI "github.com/fd1az/pool-sniper/business/market/di"
	pathDI "github.com/fd1az/pool-sniper/business/pathfinding/di"
	"github.com/fd1az/pool-sniper/business/pathfinding/infra/bookquote"
	"github.com/fd1az/pool-sniper/business/strategy/app"
	"github.com/fd1az/pool-sniper/business/strategy/domain"
	strategyDI "github.com/fd1az/pool-sniper/business/strategy/di"
	"github.com/fd1az/pool-sniper/business/strategy/infra/impact"
	"github.com/fd1az/pool-sniper/business/strategy/infra/mempool"
	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/config"
	"github.com/fd1az/pool-sniper/internal/di"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/monolith"
)

// Module implements the strategy bounded context.
type Module struct {
	engine *app.Engine
}

// RegisterServices registers the strategies and the engine.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, strategyDI.Simulator, func(sr di.ServiceRegistry) app.Simulator {
		return impact.New(bookquote.New())
	})

	di.RegisterToken(c, strategyDI.PendingFeed, func(sr di.ServiceRegistry) app.PendingFeed {
		cfg := sr.Get("config").(*config.Config)
		if !cfg.Strategy.SandwichEnabled || cfg.Stream.MempoolURL == "" {
			return nil
		}
		feed, err := mempool.NewFeed(
			cfg.Stream.MempoolURL,
			sr.Get("assetRegistry").(*asset.Registry),
			sr.Get("clock").(clockwork.Clock),
			sr.Get("logger").(logger.LoggerInterface),
		)
		if err != nil {
			panic("failed to create mempool feed: " + err.Error())
		}
		return feed
	})

	di.RegisterToken(c, strategyDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		clk := sr.Get("clock").(clockwork.Clock)
		bus := sr.Get("bus").(*eventbus.Bus)

		store := marketDI.GetStore(sr)
		sim := strategyDI.GetSimulator(sr)
		legs := executionDI.GetLegExecutor(sr)
		feed := strategyDI.GetPendingFeed(sr)

		set := NewStrategies(cfg, store, sim, legs, clk, feed != nil)
		engine, err := app.NewEngine(
			app.EngineConfig{ScanInterval: cfg.Strategy.ScanInterval},
			set,
			pathDI.GetFinder(sr),
			store,
			feed,
			connectionDI.GetStateTracker(sr),
			bus, clk, log,
		)
		if err != nil {
			panic("failed to create strategy engine: " + err.Error())
		}
		return engine
	})

	return nil
}

// Startup starts the engine.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	m.engine = strategyDI.GetEngine(mono.Services())
	if err := m.engine.Start(ctx); err != nil {
		return err
	}
	mono.Logger().Info(ctx, "strategy module started",
		"sandwich", mono.Config().Strategy.SandwichEnabled,
		"paused", m.engine.Paused())
	return nil
}

// Shutdown stops the engine.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.engine != nil {
		m.engine.Stop()
	}
	return nil
}

// NewStrategies builds the fixed strategy set from configuration. Sandwich
// is only built when a pending feed is available.
func NewStrategies(
	cfg *config.Config,
	pools app.PoolSource,
	sim app.Simulator,
	legs app.LegExecutor,
	clk clockwork.Clock,
	withSandwich bool,
) app.Strategies {
	sizes := domain.SizeBounds{
		Min:          cfg.Trading.MinTradeSizeDecimal(),
		Max:          cfg.Trading.MaxTradeSizeDecimal(),
		MinLiquidity: cfg.Market.MinLiquidityDecimal(),
	}
	capture := decimal.NewFromFloat(cfg.Strategy.CaptureFraction)
	slippage := decimal.NewFromFloat(cfg.Trading.MaxSlippage)

	set := app.Strategies{
		Spread: app.NewSpread(app.SpreadConfig{
			CaptureFraction: capture,
			MinProfit:       decimal.NewFromFloat(cfg.Strategy.MinProfitThreshold),
			MinConfidence:   cfg.Strategy.MinConfidence,
			MinLiquidity:    sizes.MinLiquidity,
			Sizes:           sizes,
		}, pools, legs, clk),
		Arbitrage: app.NewArbitrage(app.ArbitrageConfig{
			Threshold:    decimal.NewFromFloat(cfg.Strategy.ArbitrageThreshold),
			MinLiquidity: sizes.MinLiquidity,
			MaxSlippage:  slippage,
			Sizes:        sizes,
		}, pools, sim, legs, clk),
	}
	if withSandwich {
		set.Sandwich = app.NewSandwich(app.SandwichConfig{
			MinSwapSize:     decimal.NewFromFloat(cfg.Strategy.MinSwapSize),
			CaptureFraction: capture,
			MaxBundleSize:   cfg.Strategy.MaxBundleSize,
			MaxSlippage:     slippage,
			Sizes:           sizes,
		}, pools, sim, legs, clk)
	}
	return set
}
