package strategy

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/pool-sniper/business/pathfinding/infra/bookquote"
	"github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/business/strategy/infra/impact"
	"github.com/fd1az/pool-sniper/internal/config"
)

func strategyConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Trading.MinTradeSize = 1
	cfg.Trading.MaxTradeSize = 10
	cfg.Trading.MaxSlippage = 0.01
	cfg.Market.MinLiquidity = 1000
	cfg.Strategy.CaptureFraction = 0.5
	cfg.Strategy.MinProfitThreshold = 0.013
	cfg.Strategy.MinConfidence = 0.7
	cfg.Strategy.ArbitrageThreshold = 0.002
	cfg.Strategy.MinSwapSize = 10
	cfg.Strategy.MaxBundleSize = 3
	return cfg
}

func TestNewStrategies(t *testing.T) {
	sim := impact.New(bookquote.New())

	set := NewStrategies(strategyConfig(), nil, sim, nil, clockwork.NewFakeClock(), false)
	require.NotNil(t, set.Spread)
	require.NotNil(t, set.Arbitrage)
	assert.Nil(t, set.Sandwich, "no feed, no sandwich")
	assert.Equal(t, domain.TypeSpread, set.Spread.Type())

	set = NewStrategies(strategyConfig(), nil, sim, nil, clockwork.NewFakeClock(), true)
	require.NotNil(t, set.Sandwich)
	assert.Equal(t, domain.TypeSandwich, set.Sandwich.Type())
}
