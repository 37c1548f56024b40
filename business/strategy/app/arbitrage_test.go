package app

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pathDomain "github.com/fd1az/pool-sniper/business/pathfinding/domain"
	"github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
)

func triangle() pathDomain.Path {
	return pathDomain.NewPath(asset.SOL, []pathDomain.Hop{
		{Pool: "P1", From: asset.SOL, To: asset.USDC},
		{Pool: "P2", From: asset.USDC, To: asset.USDT},
		{Pool: "P3", From: asset.USDT, To: asset.SOL},
	})
}

func newArbitrage(sim Simulator, legs LegExecutor) *Arbitrage {
	pools := newFakePools(
		bookPool("P1", "100", "101", "50"),
		bookPool("P2", "1", "1.01", "5000"),
		bookPool("P3", "0.0099", "0.01", "500000"),
	)
	return NewArbitrage(ArbitrageConfig{
		Threshold:    d("0.002"),
		MinLiquidity: d("1000"),
		MaxSlippage:  d("0.01"),
		Sizes:        sizes(),
	}, pools, sim, legs, clockwork.NewFakeClock())
}

func TestArbitrage_ProducesOpportunity(t *testing.T) {
	a := newArbitrage(fakeSim{rate: d("1")}, &fakeLegs{})

	// per-hop outputs 1 → 1.02 → 1.01 → 1.015
	opp, err := a.Analyze(context.Background(), domain.PathInput{
		Path:              triangle(),
		Profit:            d("1.015").Sub(d("1")),
		ThinnestLiquidity: d("10000"),
	})
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.Equal(t, domain.TypeArbitrage, opp.Type)
	assert.True(t, opp.ExpectedProfit.Equal(d("0.015")))
	assert.Equal(t, "P1", opp.Pool, "first hop")
	assert.Equal(t, "SOL→USDC→USDT→SOL", opp.Path.String())
	assert.InDelta(t, 1.0, opp.Confidence, 1e-9)
	assert.True(t, opp.EntryPrice.Equal(d("100.5")))
}

func TestArbitrage_BelowThreshold(t *testing.T) {
	a := newArbitrage(fakeSim{rate: d("1")}, &fakeLegs{})

	opp, err := a.Analyze(context.Background(), domain.PathInput{
		Path:              triangle(),
		Profit:            d("0.0019"),
		ThinnestLiquidity: d("10000"),
	})
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestArbitrage_Confidence(t *testing.T) {
	a := newArbitrage(fakeSim{}, &fakeLegs{})
	assert.InDelta(t, 0.55, a.Confidence(d("1000")), 1e-9)
	assert.InDelta(t, 0.75, a.Confidence(d("5000")), 1e-9)
	assert.InDelta(t, 1.0, a.Confidence(d("50000")), 1e-9)
}

func TestArbitrage_PlanChainsMinimumOutputs(t *testing.T) {
	a := newArbitrage(fakeSim{rate: d("2")}, &fakeLegs{})

	legs, err := a.Plan(domain.Opportunity{Path: triangle(), SuggestedSize: d("1")})
	require.NoError(t, err)
	require.Len(t, legs, 3)

	// each hop doubles, then 1% slippage is kept back
	assert.True(t, legs[0].AmountIn.Equal(d("1")))
	assert.True(t, legs[0].MinOut.Equal(d("1.98")))
	assert.True(t, legs[1].AmountIn.Equal(d("1.98")))
	assert.True(t, legs[1].MinOut.Equal(d("3.9204")))
	assert.Equal(t, asset.SOL, legs[2].To)
}

func TestArbitrage_ExecuteErrors(t *testing.T) {
	a := newArbitrage(fakeSim{err: errors.New("book exhausted")}, &fakeLegs{})
	_, err := a.Execute(context.Background(), domain.Opportunity{ID: "x", Path: triangle(), SuggestedSize: d("1")})
	require.Error(t, err)

	legs := &fakeLegs{}
	a = newArbitrage(fakeSim{rate: d("1")}, legs)
	res, err := a.Execute(context.Background(), domain.Opportunity{ID: "y", Path: triangle(), SuggestedSize: d("1")})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.Fills, 3)
}
