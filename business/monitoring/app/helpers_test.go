package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	positionDomain "github.com/fd1az/pool-sniper/business/position/domain"
	riskDomain "github.com/fd1az/pool-sniper/business/risk/domain"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

type fakeRisk struct{ state riskDomain.State }

func (f fakeRisk) Snapshot() riskDomain.State { return f.state }

type fakePositions struct {
	mu   sync.Mutex
	open []positionDomain.Position
}

func (f *fakePositions) Positions() []positionDomain.Position {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]positionDomain.Position(nil), f.open...)
}

type fakeBalances struct {
	mu       sync.Mutex
	lamports uint64
	err      error
	calls    int
}

func (f *fakeBalances) GetBalance(_ context.Context, _ string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.lamports, f.err
}

func (f *fakeBalances) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errRPC = errors.New("rpc down")

type recorder struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func record(t *testing.T, bus *eventbus.Bus, topic eventbus.Topic) *recorder {
	t.Helper()
	r := &recorder{}
	sub := bus.Subscribe(topic, "test.recorder", func(_ context.Context, ev eventbus.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	})
	t.Cleanup(sub.Unsubscribe)
	return r
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) last() eventbus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	clock     *clockwork.FakeClock
	bus       *eventbus.Bus
	positions *fakePositions
	balances  *fakeBalances
	monitor   *Monitor
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		clock:     clockwork.NewFakeClockAt(t0),
		bus:       eventbus.New(testLogger()),
		positions: &fakePositions{},
		balances:  &fakeBalances{lamports: 1_500_000_000},
	}
	risk := fakeRisk{state: riskDomain.State{
		Mode:            riskDomain.ModeNormal,
		DailyVolume:     decimal.NewFromInt(400),
		DailyProfitLoss: decimal.NewFromInt(-3),
	}}

	m, err := NewMonitor(cfg, risk, f.positions, f.balances, f.bus, f.clock, testLogger())
	require.NoError(t, err)
	f.monitor = m
	t.Cleanup(func() {
		_ = m.Close()
		f.bus.Close()
	})
	return f
}

func closed(id string, pnl int64, filled bool) positionDomain.Position {
	return positionDomain.Position{
		ID:            id,
		Pool:          "P1",
		Type:          "SPREAD",
		Status:        positionDomain.StatusClosed,
		EntryFilled:   filled,
		InitialAmount: decimal.NewFromInt(2),
		EntryPrice:    decimal.NewFromInt(100),
		RealizedPnL:   decimal.NewFromInt(pnl),
		CloseReason:   "target profit reached",
		CloseTime:     t0,
	}
}
