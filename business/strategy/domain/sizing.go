package domain

import "github.com/shopspring/decimal"

// SizeBounds are the configured trade size limits plus the liquidity floor
// sizing is measured against.
type SizeBounds struct {
	Min          decimal.Decimal
	Max          decimal.Decimal
	MinLiquidity decimal.Decimal
}

// SuggestSize scales the midpoint of the bounds by available liquidity
// (capped at the floor) and confidence, then clamps to the bounds.
func SuggestSize(b SizeBounds, liquidity decimal.Decimal, confidence float64) decimal.Decimal {
	base := b.Min.Add(b.Max).Div(decimal.NewFromInt(2))

	liqFactor := decimal.NewFromInt(1)
	if b.MinLiquidity.IsPositive() {
		liqFactor = decimal.Min(liquidity.Div(b.MinLiquidity), liqFactor)
	}
	if liqFactor.IsNegative() {
		liqFactor = decimal.Zero
	}

	size := base.Mul(liqFactor).Mul(decimal.NewFromFloat(confidence))
	if size.LessThan(b.Min) {
		return b.Min
	}
	if size.GreaterThan(b.Max) {
		return b.Max
	}
	return size
}
