package domain

import (
	"time"

	"github.com/shopspring/decimal"

	market "github.com/fd1az/pool-sniper/business/market/domain"
	pathDomain "github.com/fd1az/pool-sniper/business/pathfinding/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
)

// Input is what a strategy analyzes. The concrete variant decides which
// strategy runs.
type Input interface {
	input()
}

// PoolInput is a fresh pool snapshot.
type PoolInput struct {
	Pool market.Pool
}

// PathInput is a priced cycle.
type PathInput struct {
	Path              pathDomain.Path
	Profit            decimal.Decimal
	ThinnestLiquidity decimal.Decimal
}

// PendingInput is an observed unconfirmed swap against a tracked pool.
type PendingInput struct {
	Swap PendingSwap
	Pool market.Pool
}

func (PoolInput) input()    {}
func (PathInput) input()    {}
func (PendingInput) input() {}

// PendingSwap is a swap seen before confirmation, with its inferred size
// and direction.
type PendingSwap struct {
	Signature    string
	Pool         string
	From         *asset.Asset
	To           *asset.Asset
	AmountIn     decimal.Decimal
	MinAmountOut decimal.Decimal
	SeenAt       time.Time
}
