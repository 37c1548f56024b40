package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/internal/asset"
)

// PoolSpec identifies a pool to track.
type PoolSpec struct {
	Address string
	TokenA  *asset.Asset
	TokenB  *asset.Asset
}

// Pool is an immutable snapshot of a tracked pool. The store hands out
// copies; nothing that receives a Pool can change the store's state.
type Pool struct {
	Address    string
	TokenA     *asset.Asset
	TokenB     *asset.Asset
	Book       OrderBook
	Liquidity  decimal.Decimal
	LastUpdate time.Time
	Slot       uint64
}

// Pair returns "A/B" by symbol.
func (p Pool) Pair() string {
	return p.TokenA.Symbol() + "/" + p.TokenB.Symbol()
}

// Other returns the pool's token that is not mint, and false if mint is not
// one of the pool's tokens.
func (p Pool) Other(mint string) (*asset.Asset, bool) {
	switch mint {
	case p.TokenA.Mint():
		return p.TokenB, true
	case p.TokenB.Mint():
		return p.TokenA, true
	}
	return nil, false
}

// Valid reports whether the pool meets the liquidity floor.
func (p Pool) Valid(minLiquidity decimal.Decimal) bool {
	return p.Liquidity.GreaterThanOrEqual(minLiquidity)
}

// Clone returns a copy with its own book slices.
func (p Pool) Clone() Pool {
	out := p
	out.Book = p.Book.Clone()
	return out
}

// AccountUpdate is a change notification for a pool account.
type AccountUpdate struct {
	Slot uint64
	Data []byte
}
