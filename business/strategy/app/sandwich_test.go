package app

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/asset"
)

func newSandwich(bundle int, legs LegExecutor) (*Sandwich, domain.PendingInput) {
	pool := bookPool("P1", "100", "101", "100")
	s := NewSandwich(SandwichConfig{
		MinSwapSize:     d("10"),
		CaptureFraction: d("0.5"),
		MaxBundleSize:   bundle,
		MaxSlippage:     d("0.01"),
		Sizes:           sizes(),
	}, newFakePools(pool), fakeSim{rate: d("100"), impact: d("0.02")}, legs, clockwork.NewFakeClock())

	in := domain.PendingInput{
		Pool: pool,
		Swap: domain.PendingSwap{
			Signature: "victim",
			Pool:      "P1",
			From:      asset.USDC,
			To:        asset.SOL,
			AmountIn:  d("30"),
		},
	}
	return s, in
}

func TestSandwich_Analyze(t *testing.T) {
	s, in := newSandwich(3, &fakeLegs{})

	opp, err := s.Analyze(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.Equal(t, domain.TypeSandwich, opp.Type)
	assert.True(t, opp.ExpectedProfit.Equal(d("0.01")), "half the impact")
	assert.InDelta(t, 0.75, opp.Confidence, 1e-9)
	require.NotNil(t, opp.Pending)
	assert.Equal(t, "victim", opp.Pending.Signature)
}

func TestSandwich_SmallSwapIgnored(t *testing.T) {
	s, in := newSandwich(3, &fakeLegs{})
	in.Swap.AmountIn = d("9.99")

	opp, err := s.Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestSandwich_Execute(t *testing.T) {
	legs := &fakeLegs{}
	s, in := newSandwich(3, legs)
	opp, err := s.Analyze(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, opp)

	_, err = s.Execute(context.Background(), *opp)
	require.NoError(t, err)
	require.Len(t, legs.calls, 1)
	plan := legs.calls[0]
	require.Len(t, plan, 2)
	assert.Equal(t, asset.USDC, plan[0].From, "front-run follows the victim")
	assert.Equal(t, asset.SOL, plan[1].From, "back-run unwinds")
	assert.True(t, plan[1].AmountIn.Equal(plan[0].MinOut))
	assert.True(t, plan[1].MinOut.Equal(opp.SuggestedSize))
}

func TestSandwich_BundleLimit(t *testing.T) {
	legs := &fakeLegs{}
	s, in := newSandwich(2, legs)
	opp, err := s.Analyze(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, opp)

	_, err = s.Execute(context.Background(), *opp)
	assert.True(t, apperror.IsLimitExceeded(err))
	assert.Empty(t, legs.calls)
}
