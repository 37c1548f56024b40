package asset

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrNilAsset        = errors.New("asset: nil asset")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrAssetMismatch   = errors.New("asset: cannot operate on different assets")
	ErrNegativeResult  = errors.New("asset: operation would result in negative amount")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for asset")
	ErrOverflow        = errors.New("asset: amount overflows u64")
)

// Amount is an immutable quantity of an asset in its smallest unit.
type Amount struct {
	raw   uint64
	asset *Asset
}

// NewAmount creates an Amount from a raw smallest-unit value.
func NewAmount(a *Asset, raw uint64) Amount {
	if a == nil {
		panic(ErrNilAsset)
	}
	return Amount{raw: raw, asset: a}
}

// Zero creates a zero Amount for the given asset.
func Zero(a *Asset) Amount {
	return NewAmount(a, 0)
}

// FromDecimal converts a human-unit value. Values with more precision than
// the mint supports are rejected rather than rounded.
func FromDecimal(a *Asset, d decimal.Decimal) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	scaled := d.Shift(a.decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, fmt.Errorf("%w: %s has %d decimals, got %s", ErrTooManyDecimals, a.symbol, a.decimals, d)
	}
	if scaled.GreaterThan(decimal.NewFromUint64(math.MaxUint64)) {
		return Amount{}, ErrOverflow
	}
	return NewAmount(a, scaled.BigInt().Uint64()), nil
}

// FromDecimalTruncated converts a human-unit value, dropping excess precision.
func FromDecimalTruncated(a *Asset, d decimal.Decimal) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	return FromDecimal(a, d.Truncate(a.decimals))
}

// Raw returns the smallest-unit value.
func (a Amount) Raw() uint64 {
	return a.raw
}

// Asset returns the asset this amount is denominated in.
func (a Amount) Asset() *Asset {
	return a.asset
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool {
	return a.raw == 0
}

// ToDecimal returns the value in human units.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromUint64(a.raw).Shift(-a.asset.decimals)
}

// Add adds two amounts of the same asset.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	sum := a.raw + b.raw
	if sum < a.raw {
		return Amount{}, ErrOverflow
	}
	return NewAmount(a.asset, sum), nil
}

// Sub subtracts b from a (same asset only).
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	if a.raw < b.raw {
		return Amount{}, ErrNegativeResult
	}
	return NewAmount(a.asset, a.raw-b.raw), nil
}

// Cmp compares two amounts of the same asset.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.checkSameAsset(b); err != nil {
		return 0, err
	}
	switch {
	case a.raw < b.raw:
		return -1, nil
	case a.raw > b.raw:
		return 1, nil
	}
	return 0, nil
}

func (a Amount) checkSameAsset(b Amount) error {
	if !a.asset.Equals(b.asset) {
		return ErrAssetMismatch
	}
	return nil
}

// String returns e.g. "1.5 SOL".
func (a Amount) String() string {
	if a.asset == nil {
		return "0"
	}
	return a.ToDecimal().String() + " " + a.asset.symbol
}
