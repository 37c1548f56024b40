// Package impact prices swaps for the strategies by walking the stored book.
package impact

import (
	"github.com/shopspring/decimal"

	market "github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/business/pathfinding/infra/bookquote"
	"github.com/fd1az/pool-sniper/business/strategy/app"
	"github.com/fd1az/pool-sniper/internal/asset"
)

// Simulator adapts the book quoter to app.Simulator.
type Simulator struct {
	quoter *bookquote.Quoter
}

// New creates a simulator over quoter.
func New(quoter *bookquote.Quoter) *Simulator {
	return &Simulator{quoter: quoter}
}

// Simulate walks the pool's book for amountIn of from.
func (s *Simulator) Simulate(pool market.Pool, from, to *asset.Asset, amountIn decimal.Decimal) (app.Simulation, error) {
	fill, err := s.quoter.Walk(pool, from, to, amountIn)
	if err != nil {
		return app.Simulation{}, err
	}
	return app.Simulation{AmountOut: fill.AmountOut, Impact: fill.Impact}, nil
}
