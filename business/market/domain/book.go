// Package domain contains the core domain types for the market context.
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/internal/apperror"
)

var two = decimal.NewFromInt(2)

// Level is one price level. Price is TokenB per TokenA; Size is in TokenA.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Value returns price·size.
func (l Level) Value() decimal.Decimal {
	return l.Price.Mul(l.Size)
}

// OrderBook is a pool's two-sided book. Bids are sorted best (highest)
// first, asks best (lowest) first.
type OrderBook struct {
	Bids []Level
	Asks []Level
}

// Validate reports a malformed book: non-positive levels, unsorted sides or
// a crossed top of book.
func (b OrderBook) Validate() error {
	if err := validateSide("bid", b.Bids, func(prev, cur decimal.Decimal) bool { return cur.LessThanOrEqual(prev) }); err != nil {
		return err
	}
	if err := validateSide("ask", b.Asks, func(prev, cur decimal.Decimal) bool { return cur.GreaterThanOrEqual(prev) }); err != nil {
		return err
	}
	if len(b.Bids) > 0 && len(b.Asks) > 0 && b.Bids[0].Price.GreaterThanOrEqual(b.Asks[0].Price) {
		return apperror.Validation(apperror.CodeInvalidOrderBook,
			fmt.Sprintf("crossed book: bid %s >= ask %s", b.Bids[0].Price, b.Asks[0].Price))
	}
	return nil
}

func validateSide(side string, levels []Level, ordered func(prev, cur decimal.Decimal) bool) error {
	for i, l := range levels {
		if !l.Price.IsPositive() || !l.Size.IsPositive() {
			return apperror.Validation(apperror.CodeInvalidOrderBook,
				fmt.Sprintf("%s level %d: price %s size %s", side, i, l.Price, l.Size))
		}
		if i > 0 && !ordered(levels[i-1].Price, l.Price) {
			return apperror.Validation(apperror.CodeInvalidOrderBook,
				fmt.Sprintf("%s level %d out of order", side, i))
		}
	}
	return nil
}

// Liquidity is Σ bid price·size + Σ ask price·size.
func (b OrderBook) Liquidity() decimal.Decimal {
	return b.BidValue().Add(b.AskValue())
}

// BidValue is Σ price·size over bids.
func (b OrderBook) BidValue() decimal.Decimal {
	return sideValue(b.Bids)
}

// AskValue is Σ price·size over asks.
func (b OrderBook) AskValue() decimal.Decimal {
	return sideValue(b.Asks)
}

func sideValue(levels []Level) decimal.Decimal {
	total := decimal.Zero
	for _, l := range levels {
		total = total.Add(l.Value())
	}
	return total
}

// BestBid returns the highest bid.
func (b OrderBook) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask.
func (b OrderBook) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// MidPrice returns the mid-market price, or zero for a one-sided book.
func (b OrderBook) MidPrice() decimal.Decimal {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero
	}
	return bid.Price.Add(ask.Price).Div(two)
}

// Clone deep-copies the level slices.
func (b OrderBook) Clone() OrderBook {
	return OrderBook{
		Bids: append([]Level(nil), b.Bids...),
		Asks: append([]Level(nil), b.Asks...),
	}
}
