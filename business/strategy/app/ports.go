// Package app contains the strategies, the engine that drives them, and the
// ports they consume.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	market "github.com/fd1az/pool-sniper/business/market/domain"
	pathApp "github.com/fd1az/pool-sniper/business/pathfinding/app"
	"github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
)

// Strategy turns one input variant into an opportunity and executes it.
// Analyze returns (nil, nil) when the input is not viable. Plan prices the
// legs Execute would submit.
type Strategy interface {
	Type() domain.Type
	Analyze(ctx context.Context, in domain.Input) (*domain.Opportunity, error)
	Plan(opp domain.Opportunity) ([]domain.Leg, error)
	Execute(ctx context.Context, opp domain.Opportunity) (domain.ExecutionResult, error)
}

// Simulation is the result of pricing a swap against a book.
type Simulation struct {
	AmountOut decimal.Decimal
	// Impact is the relative distance between the average fill and the top
	// of the book.
	Impact decimal.Decimal
}

// Simulator prices swaps against a pool's current book.
type Simulator interface {
	Simulate(pool market.Pool, from, to *asset.Asset, amountIn decimal.Decimal) (Simulation, error)
}

// PoolSource reads pool snapshots.
type PoolSource interface {
	Pool(address string) (market.Pool, bool)
	ValidPools() []market.Pool
}

// PathScanner returns profitable cycles over the given pools.
type PathScanner interface {
	Scan(ctx context.Context, pools []market.Pool) ([]pathApp.Candidate, error)
}

// PendingFeed surfaces swaps before they confirm. The channel closes when
// ctx ends.
type PendingFeed interface {
	Subscribe(ctx context.Context) (<-chan domain.PendingSwap, error)
}

// LegExecutor submits legs in order and stops at the first failure. The
// returned fills cover the legs that landed.
type LegExecutor interface {
	ExecuteLegs(ctx context.Context, opportunityID string, legs []domain.Leg) ([]domain.Fill, error)
}

// ConnectionStatus exposes the current connectivity picture.
type ConnectionStatus interface {
	Snapshot() connDomain.State
}
