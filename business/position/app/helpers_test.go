package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	market "github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/business/position/domain"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testOpp() strategy.Opportunity {
	return strategy.Opportunity{
		ID:            "opp",
		Type:          strategy.TypeSpread,
		Pool:          "P1",
		TokenA:        asset.SOL,
		TokenB:        asset.USDC,
		SuggestedSize: d("2"),
		EntryPrice:    d("100"),
		Liquidity:     d("20000"),
	}
}

// fakePools serves one pool whose mid price tests move.
type fakePools struct {
	mu    sync.Mutex
	pool  market.Pool
	reads int
}

func newFakePools(mid string) *fakePools {
	f := &fakePools{}
	f.setMid(mid)
	return f
}

func (f *fakePools) setMid(mid string) {
	m := d(mid)
	half := d("0.5")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pool = market.Pool{
		Address: "P1",
		TokenA:  asset.SOL,
		TokenB:  asset.USDC,
		Book: market.OrderBook{
			Bids: []market.Level{{Price: m.Sub(half), Size: d("100")}},
			Asks: []market.Level{{Price: m.Add(half), Size: d("100")}},
		},
		Liquidity: d("20000"),
	}
}

func (f *fakePools) Pool(address string) (market.Pool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if address != f.pool.Address {
		return market.Pool{}, false
	}
	return f.pool, true
}

func (f *fakePools) ValidPools() []market.Pool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []market.Pool{f.pool}
}

func (f *fakePools) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

type exit struct {
	amount decimal.Decimal
	price  decimal.Decimal
}

type fakeTrader struct {
	mu       sync.Mutex
	enterErr []error // consumed one per call, nil once empty
	exitErr  error
	enters   int
	exits    []exit
	unwinds  []domain.Entry
}

// Plan buys SuggestedSize of base at the entry price, then sells it back.
func (f *fakeTrader) Plan(_ context.Context, opp strategy.Opportunity) (domain.Entry, error) {
	buy := strategy.Leg{
		Pool:     opp.Pool,
		From:     opp.TokenB,
		To:       opp.TokenA,
		AmountIn: opp.SuggestedSize.Mul(opp.EntryPrice),
		MinOut:   opp.SuggestedSize,
		Size:     opp.SuggestedSize,
	}
	sell := buy.Reverse(buy.MinOut, buy.AmountIn)
	return domain.NewEntry(opp.Type, []strategy.Leg{buy, sell}), nil
}

func (f *fakeTrader) Enter(_ context.Context, _ string, e domain.Entry) (domain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enters++
	if len(f.enterErr) > 0 {
		err := f.enterErr[0]
		f.enterErr = f.enterErr[1:]
		if err != nil {
			return e, err
		}
	}
	e.Filled = len(e.Legs)
	return e, nil
}

func (f *fakeTrader) Unwind(_ context.Context, _ string, e domain.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unwinds = append(f.unwinds, e)
	return nil
}

func (f *fakeTrader) Exit(_ context.Context, _ domain.Position, amount, price decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exitErr != nil {
		return f.exitErr
	}
	f.exits = append(f.exits, exit{amount, price})
	return nil
}

func (f *fakeTrader) setExitErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exitErr = err
}

func (f *fakeTrader) exitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.exits)
}

func (f *fakeTrader) enterCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enters
}

// planFunc serves a fixed plan for every opportunity.
type planFunc func(opp strategy.Opportunity) ([]strategy.Leg, error)

func (p planFunc) Plan(opp strategy.Opportunity) ([]strategy.Leg, error) { return p(opp) }

// legLog runs legs in order like the executor does and records every leg it
// was asked to submit. failures maps a submission index to the error it
// returns once.
type legLog struct {
	mu        sync.Mutex
	submitted []strategy.Leg
	ids       []string
	failures  map[int]error
}

func (l *legLog) ExecuteLegs(_ context.Context, id string, legs []strategy.Leg) ([]strategy.Fill, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
	var fills []strategy.Fill
	for _, leg := range legs {
		n := len(l.submitted)
		l.submitted = append(l.submitted, leg)
		if err, ok := l.failures[n]; ok {
			delete(l.failures, n)
			return fills, err
		}
		fills = append(fills, strategy.Fill{Leg: leg, Signature: fmt.Sprintf("sig-%d", n)})
	}
	return fills, nil
}

// route renders submitted legs as "FROM->TO amountIn".
func (l *legLog) route() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.submitted))
	for _, leg := range l.submitted {
		out = append(out, fmt.Sprintf("%s->%s %s", leg.From.Symbol(), leg.To.Symbol(), leg.AmountIn))
	}
	return out
}

func (l *legLog) orderIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids...)
}

type fakeStatus struct{ st connDomain.State }

func (f fakeStatus) Snapshot() connDomain.State { return f.st }

func healthy() connDomain.State {
	return connDomain.State{RPCConnected: true, WSConnected: true}
}

type recorder struct {
	mu     sync.Mutex
	events map[eventbus.Topic][]any
}

func record(t *testing.T, bus *eventbus.Bus, topics ...eventbus.Topic) *recorder {
	t.Helper()
	r := &recorder{events: map[eventbus.Topic][]any{}}
	for _, topic := range topics {
		sub := bus.Subscribe(topic, "test", func(_ context.Context, ev eventbus.Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events[ev.Topic] = append(r.events[ev.Topic], ev.Payload)
		})
		t.Cleanup(sub.Unsubscribe)
	}
	return r
}

func (r *recorder) count(topic eventbus.Topic) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events[topic])
}

func (r *recorder) last(topic eventbus.Topic) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev := r.events[topic]
	if len(ev) == 0 {
		return nil
	}
	return ev[len(ev)-1]
}

type fixture struct {
	clock   *clockwork.FakeClock
	bus     *eventbus.Bus
	pools   *fakePools
	trader  *fakeTrader
	manager *Manager
	events  *recorder
}

func testConfig() Config {
	return Config{
		MonitorInterval: time.Second,
		AdjustFraction:  d("0.5"),
		Thresholds: domain.Thresholds{
			TargetProfit:     0.02,
			StopLoss:         0.05,
			MaxRisk:          0.9,
			MaxLossThreshold: 0.02,
			MaxRiskThreshold: 0.7,
			MaxHold:          time.Hour,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, func(*fakePools) TradeExecutor { return &fakeTrader{} })
}

// newFixtureWith builds a fixture around the trade port newTrader returns.
// f.trader is set only when that port is the fake.
func newFixtureWith(t *testing.T, newTrader func(pools *fakePools) TradeExecutor) *fixture {
	t.Helper()
	clk := clockwork.NewFakeClock()
	bus := eventbus.New(testLogger())
	pools := newFakePools("100")
	tr := newTrader(pools)
	trader, _ := tr.(*fakeTrader)
	m, err := NewManager(testConfig(), tr, pools, fakeStatus{healthy()}, bus, clk, testLogger())
	require.NoError(t, err)
	f := &fixture{
		clock:   clk,
		bus:     bus,
		pools:   pools,
		trader:  trader,
		manager: m,
		events:  record(t, bus, eventbus.TopicPositionOpen, eventbus.TopicPositionClose, eventbus.TopicPositionUpdate),
	}
	m.Start(context.Background())
	t.Cleanup(func() {
		_ = m.Stop(context.Background())
		bus.Close()
	})
	return f
}

// tick waits for n monitors to park on their tickers and fires one tick.
func (f *fixture) tick(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, n))
	f.clock.Advance(time.Second)
}
