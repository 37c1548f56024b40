package app

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/shopspring/decimal"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	market "github.com/fd1az/pool-sniper/business/market/domain"
	pathApp "github.com/fd1az/pool-sniper/business/pathfinding/app"
	"github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sizes() domain.SizeBounds {
	return domain.SizeBounds{Min: d("1"), Max: d("10"), MinLiquidity: d("1000")}
}

// bookPool builds a SOL/USDC pool with one level per side.
func bookPool(address, bid, ask, size string) market.Pool {
	book := market.OrderBook{
		Bids: []market.Level{{Price: d(bid), Size: d(size)}},
		Asks: []market.Level{{Price: d(ask), Size: d(size)}},
	}
	return market.Pool{
		Address:   address,
		TokenA:    asset.SOL,
		TokenB:    asset.USDC,
		Book:      book,
		Liquidity: book.Liquidity(),
	}
}

type fakePools struct {
	mu    sync.Mutex
	pools map[string]market.Pool
}

func newFakePools(pools ...market.Pool) *fakePools {
	f := &fakePools{pools: map[string]market.Pool{}}
	for _, p := range pools {
		f.pools[p.Address] = p
	}
	return f
}

func (f *fakePools) Pool(address string) (market.Pool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pools[address]
	return p, ok
}

func (f *fakePools) ValidPools() []market.Pool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]market.Pool, 0, len(f.pools))
	for _, p := range f.pools {
		out = append(out, p)
	}
	return out
}

// fakeSim returns amountIn·rate and a fixed impact.
type fakeSim struct {
	rate   decimal.Decimal
	impact decimal.Decimal
	err    error
}

func (f fakeSim) Simulate(_ market.Pool, _, _ *asset.Asset, amountIn decimal.Decimal) (Simulation, error) {
	if f.err != nil {
		return Simulation{}, f.err
	}
	return Simulation{AmountOut: amountIn.Mul(f.rate), Impact: f.impact}, nil
}

type fakeLegs struct {
	mu    sync.Mutex
	calls [][]domain.Leg
	err   error
}

func (f *fakeLegs) ExecuteLegs(_ context.Context, _ string, legs []domain.Leg) ([]domain.Fill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, legs)
	if f.err != nil {
		return nil, f.err
	}
	fills := make([]domain.Fill, len(legs))
	for i, l := range legs {
		fills[i] = domain.Fill{Leg: l, Signature: "sig"}
	}
	return fills, nil
}

func (f *fakeLegs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeScanner struct {
	mu         sync.Mutex
	calls      int
	candidates []pathApp.Candidate
}

func (f *fakeScanner) Scan(_ context.Context, _ []market.Pool) ([]pathApp.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.candidates, nil
}

func (f *fakeScanner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFeed struct {
	ch chan domain.PendingSwap
}

func (f *fakeFeed) Subscribe(_ context.Context) (<-chan domain.PendingSwap, error) {
	if f.ch == nil {
		return nil, errors.New("feed down")
	}
	return f.ch, nil
}

type fakeStatus struct {
	state connDomain.State
}

func (f fakeStatus) Snapshot() connDomain.State { return f.state }

func healthy() connDomain.State {
	return connDomain.State{RPCConnected: true, WSConnected: true}
}
