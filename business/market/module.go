// Package market implements the market bounded context: the live state of
// every tracked pool.
package market

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	connectionDI "github.com/fd1az/pool-sniper/business/connection/di"
	"github.com/fd1az/pool-sniper/business/market/app"
	marketDI "github.com/fd1az/pool-sniper/business/market/di"
	"github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/business/market/infra/poolfile"
	"github.com/fd1az/pool-sniper/business/market/infra/rpcbook"
	"github.com/fd1az/pool-sniper/business/market/infra/stream"
	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/config"
	"github.com/fd1az/pool-sniper/internal/di"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/monolith"
)

// Module implements the market bounded context.
type Module struct {
	store *app.Store
}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, marketDI.OrderBookLoader, func(sr di.ServiceRegistry) app.OrderBookLoader {
		cfg := sr.Get("config").(*config.Config)
		clk := sr.Get("clock").(clockwork.Clock)
		return rpcbook.NewLoader(connectionDI.GetRPCClient(sr), cfg.Market.ReloadTTL, clk)
	})

	di.RegisterToken(c, marketDI.AccountSubscriber, func(sr di.ServiceRegistry) app.AccountSubscriber {
		return stream.NewSubscriber(connectionDI.GetStreamSupervisor(sr))
	})

	di.RegisterToken(c, marketDI.Store, func(sr di.ServiceRegistry) *app.Store {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		clk := sr.Get("clock").(clockwork.Clock)
		bus := sr.Get("bus").(*eventbus.Bus)

		store, err := app.NewStore(
			app.StoreConfig{MinLiquidity: cfg.Market.MinLiquidityDecimal()},
			marketDI.GetOrderBookLoader(sr),
			marketDI.GetAccountSubscriber(sr),
			bus, clk, log,
		)
		if err != nil {
			panic("failed to create market store: " + err.Error())
		}
		return store
	})

	return nil
}

// Startup tracks the configured pool universe and starts applying updates.
// A pool that fails to load is logged and skipped.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	m.store = marketDI.GetStore(mono.Services())

	specs, err := Universe(mono.Config(), mono.AssetRegistry())
	if err != nil {
		return err
	}

	m.store.Start(ctx)
	for _, spec := range specs {
		if err := m.store.Track(ctx, spec); err != nil {
			log.Error(ctx, "failed to track pool", "address", spec.Address, "error", err)
		}
	}

	log.Info(ctx, "market module started",
		"pools", len(m.store.Pools()), "valid", len(m.store.ValidPools()))
	return nil
}

// Shutdown unsubscribes every pool.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	return m.store.Stop(ctx)
}

// Universe merges market.pools with the pool file, registering any tokens
// the file declares.
func Universe(cfg *config.Config, registry *asset.Registry) ([]domain.PoolSpec, error) {
	pools := append([]config.PoolConfig(nil), cfg.Market.Pools...)

	if cfg.Market.PoolsFile != "" {
		f, err := poolfile.Load(cfg.Market.PoolsFile)
		if err != nil {
			return nil, err
		}
		for _, tc := range f.Tokens {
			if _, ok := registry.Get(tc.Mint); ok {
				continue
			}
			a, err := asset.NewAsset(tc.Mint, tc.Symbol, tc.Decimals)
			if err != nil {
				return nil, fmt.Errorf("pool file tokens: %w", err)
			}
			if err := registry.Register(a); err != nil {
				return nil, fmt.Errorf("pool file tokens: %w", err)
			}
		}
		pools = append(pools, f.Pools...)
	}

	return app.ResolvePools(registry, pools)
}
