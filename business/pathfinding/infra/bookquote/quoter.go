// Package bookquote prices swaps by walking a pool's order book.
package bookquote

import (
	"context"

	"github.com/shopspring/decimal"

	market "github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/asset"
)

// Quoter fills against the book level by level. Selling TokenA walks the
// bids; buying TokenA with TokenB walks the asks.
type Quoter struct{}

// New creates a Quoter.
func New() *Quoter {
	return &Quoter{}
}

// Fill is the result of walking one side of a book.
type Fill struct {
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal
	// AvgPrice is the volume-weighted price in TokenB per TokenA.
	AvgPrice decimal.Decimal
	// Impact is |AvgPrice − top of book| / top of book.
	Impact decimal.Decimal
	Levels int
}

// Quote implements the pathfinding quoter port.
func (q *Quoter) Quote(ctx context.Context, pool market.Pool, from, to *asset.Asset, amountIn decimal.Decimal) (decimal.Decimal, error) {
	fill, err := q.Walk(pool, from, to, amountIn)
	if err != nil {
		return decimal.Zero, err
	}
	return fill.AmountOut, nil
}

// Walk fills amountIn of from against the pool and reports the execution.
// It fails when the book cannot absorb the whole amount.
func (q *Quoter) Walk(pool market.Pool, from, to *asset.Asset, amountIn decimal.Decimal) (Fill, error) {
	if !amountIn.IsPositive() {
		return Fill{}, apperror.Validation(apperror.CodeInvalidQuote, "amount must be positive")
	}

	var selling bool
	switch {
	case from.Equals(pool.TokenA) && to.Equals(pool.TokenB):
		selling = true
	case from.Equals(pool.TokenB) && to.Equals(pool.TokenA):
		selling = false
	default:
		return Fill{}, apperror.Validation(apperror.CodeInvalidQuote,
			pool.Address+" does not trade "+from.Symbol()+"→"+to.Symbol())
	}

	levels := pool.Book.Asks
	if selling {
		levels = pool.Book.Bids
	}
	if len(levels) == 0 {
		return Fill{}, apperror.Validation(apperror.CodeInsufficientLiquidity, pool.Address+": empty side")
	}

	remaining := amountIn
	out := decimal.Zero
	baseFilled := decimal.Zero // TokenA traded, for the average price
	used := 0

	for _, l := range levels {
		if !remaining.IsPositive() {
			break
		}
		used++
		if selling {
			qty := decimal.Min(remaining, l.Size)
			out = out.Add(qty.Mul(l.Price))
			baseFilled = baseFilled.Add(qty)
			remaining = remaining.Sub(qty)
			continue
		}
		cost := decimal.Min(remaining, l.Value())
		qty := cost.Div(l.Price)
		out = out.Add(qty)
		baseFilled = baseFilled.Add(qty)
		remaining = remaining.Sub(cost)
	}

	if remaining.IsPositive() {
		return Fill{}, apperror.Validation(apperror.CodeInsufficientLiquidity,
			pool.Address+": book cannot fill "+amountIn.String()+" "+from.Symbol())
	}

	quoteTraded := out
	if !selling {
		quoteTraded = amountIn
	}
	avg := quoteTraded.Div(baseFilled)
	top := levels[0].Price

	return Fill{
		AmountIn:  amountIn,
		AmountOut: out,
		AvgPrice:  avg,
		Impact:    avg.Sub(top).Abs().Div(top),
		Levels:    used,
	}, nil
}
