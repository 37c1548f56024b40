// Package app evaluates arbitrage cycles over the valid-pool graph.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	market "github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
)

// Quoter prices one swap against a pool snapshot.
type Quoter interface {
	Quote(ctx context.Context, pool market.Pool, from, to *asset.Asset, amountIn decimal.Decimal) (decimal.Decimal, error)
}

// PoolSource looks up the latest snapshot of a pool.
type PoolSource interface {
	Pool(address string) (market.Pool, bool)
}
