// Package pathfinding implements the pathfinding bounded context: cycle
// enumeration over the pool graph and per-path profitability.
package pathfinding

import (
	"context"

	"github.com/shopspring/decimal"

	marketDI "github.com/fd1az/pool-sniper/business/market/di"
	"github.com/fd1az/pool-sniper/business/pathfinding/app"
	pathDI "github.com/fd1az/pool-sniper/business/pathfinding/di"
	"github.com/fd1az/pool-sniper/business/pathfinding/infra/bookquote"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/config"
	"github.com/fd1az/pool-sniper/internal/di"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/monolith"
)

// Module implements the pathfinding bounded context.
type Module struct{}

// RegisterServices registers the finder and its order book quoter.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pathDI.Quoter, func(sr di.ServiceRegistry) app.Quoter {
		return bookquote.New()
	})

	di.RegisterToken(c, pathDI.Finder, func(sr di.ServiceRegistry) *app.Finder {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		fc, err := FinderConfig(cfg, registry)
		if err != nil {
			panic("failed to create path finder: " + err.Error())
		}
		return app.NewFinder(fc, marketDI.GetStore(sr), pathDI.GetQuoter(sr), log)
	})

	return nil
}

// Startup resolves the finder eagerly so configuration errors surface at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	pathDI.GetFinder(mono.Services())
	mono.Logger().Info(ctx, "pathfinding module started",
		"max_depth", mono.Config().Pathfinding.MaxDepth)
	return nil
}

// FinderConfig maps the pathfinding and market sections onto the finder.
// Start tokens are resolved by symbol or mint.
func FinderConfig(cfg *config.Config, registry *asset.Registry) (app.FinderConfig, error) {
	fc := app.FinderConfig{
		MaxDepth:     cfg.Pathfinding.MaxDepth,
		MinProfit:    decimal.NewFromFloat(cfg.Pathfinding.MinProfit),
		MinLiquidity: cfg.Market.MinLiquidityDecimal(),
	}
	for _, ref := range cfg.Pathfinding.StartTokens {
		a, err := registry.Resolve(ref)
		if err != nil {
			return app.FinderConfig{}, apperror.Wrap(err, apperror.CodeConfigurationError,
				"pathfinding.start_tokens")
		}
		fc.Starts = append(fc.Starts, a.Mint())
	}
	return fc, nil
}
