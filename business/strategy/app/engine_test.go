package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	pathApp "github.com/fd1az/pool-sniper/business/pathfinding/app"
	"github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/eventbus"
)

type oppCollector struct {
	mu   sync.Mutex
	seen []domain.Opportunity
}

func collect(bus *eventbus.Bus) *oppCollector {
	c := &oppCollector{}
	bus.Subscribe(eventbus.TopicOpportunity, "test", func(_ context.Context, ev eventbus.Event) {
		c.mu.Lock()
		c.seen = append(c.seen, ev.Payload.(domain.Opportunity))
		c.mu.Unlock()
	})
	return c
}

func (c *oppCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *oppCollector) last() domain.Opportunity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[len(c.seen)-1]
}

type engineFixture struct {
	engine  *Engine
	bus     *eventbus.Bus
	clock   *clockwork.FakeClock
	scanner *fakeScanner
	feed    *fakeFeed
	legs    *fakeLegs
	opps    *oppCollector
}

func newEngineFixture(t *testing.T, status connDomain.State) *engineFixture {
	t.Helper()
	clk := clockwork.NewFakeClock()
	bus := eventbus.New(testLogger())
	t.Cleanup(bus.Close)

	pools := newFakePools(
		bookPool("P1", "100", "103", "10"),
		bookPool("P2", "1", "1.01", "5000"),
		bookPool("P3", "0.0099", "0.01", "500000"),
	)
	legs := &fakeLegs{}
	sim := fakeSim{rate: d("1"), impact: d("0.02")}

	strategies := Strategies{
		Spread: NewSpread(SpreadConfig{
			CaptureFraction: d("0.5"),
			MinProfit:       d("0.013"),
			MinConfidence:   0.5,
			MinLiquidity:    d("1000"),
			Sizes:           sizes(),
		}, pools, legs, clk),
		Arbitrage: NewArbitrage(ArbitrageConfig{
			Threshold:    d("0.002"),
			MinLiquidity: d("1000"),
			MaxSlippage:  d("0.01"),
			Sizes:        sizes(),
		}, pools, sim, legs, clk),
		Sandwich: NewSandwich(SandwichConfig{
			MinSwapSize:     d("10"),
			CaptureFraction: d("0.5"),
			MaxBundleSize:   3,
			MaxSlippage:     d("0.01"),
			Sizes:           sizes(),
		}, pools, sim, legs, clk),
	}
	scanner := &fakeScanner{}
	feed := &fakeFeed{ch: make(chan domain.PendingSwap, 4)}

	e, err := NewEngine(EngineConfig{ScanInterval: time.Second}, strategies, scanner, pools, feed,
		fakeStatus{state: status}, bus, clk, testLogger())
	require.NoError(t, err)

	f := &engineFixture{engine: e, bus: bus, clock: clk, scanner: scanner, feed: feed, legs: legs, opps: collect(bus)}
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Stop)
	return f
}

func TestEngine_PoolUpdateDrivesSpread(t *testing.T) {
	f := newEngineFixture(t, healthy())

	f.bus.Publish(context.Background(), eventbus.TopicPoolUpdate, bookPool("P1", "100", "103", "10"))
	f.bus.Publish(context.Background(), eventbus.TopicPoolUpdate, bookPool("P1", "100", "100.5", "10"))

	require.Eventually(t, func() bool { return f.opps.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.TypeSpread, f.opps.last().Type)
	assert.Never(t, func() bool { return f.opps.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestEngine_PausedOnConnectionLoss(t *testing.T) {
	f := newEngineFixture(t, healthy())
	require.False(t, f.engine.Paused())

	f.bus.Publish(context.Background(), eventbus.TopicConnectionChanged,
		connDomain.State{RPCConnected: true, WSConnected: false})
	require.Eventually(t, f.engine.Paused, time.Second, 5*time.Millisecond)

	f.bus.Publish(context.Background(), eventbus.TopicPoolUpdate, bookPool("P1", "100", "103", "10"))
	assert.Never(t, func() bool { return f.opps.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	f.bus.Publish(context.Background(), eventbus.TopicConnectionChanged, healthy())
	require.Eventually(t, func() bool { return !f.engine.Paused() }, time.Second, 5*time.Millisecond)
}

func TestEngine_StartsPausedWhenUnhealthy(t *testing.T) {
	f := newEngineFixture(t, connDomain.State{Fatal: true})
	assert.True(t, f.engine.Paused())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(time.Second)
	assert.Never(t, func() bool { return f.scanner.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestEngine_ScanTick(t *testing.T) {
	f := newEngineFixture(t, healthy())
	f.scanner.mu.Lock()
	f.scanner.candidates = []pathApp.Candidate{{
		Path:              triangle(),
		Profit:            d("0.015"),
		ThinnestLiquidity: d("5000"),
	}}
	f.scanner.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(time.Second)

	require.Eventually(t, func() bool { return f.opps.count() == 1 }, time.Second, 5*time.Millisecond)
	opp := f.opps.last()
	assert.Equal(t, domain.TypeArbitrage, opp.Type)
	assert.True(t, opp.ExpectedProfit.Equal(d("0.015")))
	assert.Equal(t, 1, f.scanner.count())
}

func TestEngine_PendingSwapDrivesSandwich(t *testing.T) {
	f := newEngineFixture(t, healthy())

	f.feed.ch <- domain.PendingSwap{Signature: "untracked", Pool: "PX", From: asset.USDC, To: asset.SOL, AmountIn: d("50")}
	f.feed.ch <- domain.PendingSwap{Signature: "victim", Pool: "P1", From: asset.USDC, To: asset.SOL, AmountIn: d("50")}

	require.Eventually(t, func() bool { return f.opps.count() == 1 }, time.Second, 5*time.Millisecond)
	opp := f.opps.last()
	assert.Equal(t, domain.TypeSandwich, opp.Type)
	assert.Equal(t, "victim", opp.Pending.Signature)
}

func TestEngine_ExecuteDispatchesByType(t *testing.T) {
	f := newEngineFixture(t, healthy())

	res, err := f.engine.Execute(context.Background(), domain.Opportunity{
		ID: "a", Type: domain.TypeArbitrage, Path: triangle(), SuggestedSize: d("1"),
	})
	require.NoError(t, err)
	assert.Len(t, res.Fills, 3)

	_, err = f.engine.Execute(context.Background(), domain.Opportunity{ID: "b", Type: "UNKNOWN"})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.engine.Analyze(context.Background(), nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestEngine_PlanDoesNotSubmit(t *testing.T) {
	f := newEngineFixture(t, healthy())

	legs, err := f.engine.Plan(domain.Opportunity{
		ID: "a", Type: domain.TypeSpread, Pool: "P1", SuggestedSize: d("2"),
	})
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, asset.USDC, legs[0].From)
	assert.Equal(t, asset.SOL, legs[1].From)

	legs, err = f.engine.Plan(domain.Opportunity{
		ID: "b", Type: domain.TypeArbitrage, Path: triangle(), SuggestedSize: d("1"),
	})
	require.NoError(t, err)
	assert.Len(t, legs, 3)
	assert.Zero(t, f.legs.count())

	_, err = f.engine.Plan(domain.Opportunity{ID: "c", Type: "UNKNOWN"})
	assert.True(t, apperror.IsValidation(err))
}

func TestEngine_StopIsSynchronous(t *testing.T) {
	f := newEngineFixture(t, healthy())
	f.engine.Stop()
	f.engine.Stop()

	f.bus.Publish(context.Background(), eventbus.TopicPoolUpdate, bookPool("P1", "100", "103", "10"))
	assert.Never(t, func() bool { return f.opps.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}
