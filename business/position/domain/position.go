// Package domain contains the core domain types for the position context.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
)

// Status is a position's lifecycle state. It only moves OPEN to CLOSED.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Side is the direction of the base token exposure.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Position is an admitted trade from entry until close. Amount is in the
// base token; prices and P&L are in the quote token.
type Position struct {
	ID             string
	OpportunityID  string
	Pool           string
	Type           strategy.Type
	Side           Side
	TokenA         *asset.Asset
	TokenB         *asset.Asset
	Amount         decimal.Decimal
	InitialAmount  decimal.Decimal
	EntryPrice     decimal.Decimal
	EntryLiquidity decimal.Decimal
	ExpectedProfit decimal.Decimal
	OpenTime       time.Time
	CloseTime      time.Time
	Status         Status
	EntryFilled    bool
	Adjustments    int
	RealizedPnL    decimal.Decimal
	CloseReason    string
}

// New builds an open position for opp.
func New(opp strategy.Opportunity, now time.Time) Position {
	return Position{
		ID:             uuid.NewString(),
		OpportunityID:  opp.ID,
		Pool:           opp.Pool,
		Type:           opp.Type,
		Side:           SideOf(opp),
		TokenA:         opp.TokenA,
		TokenB:         opp.TokenB,
		Amount:         opp.SuggestedSize,
		InitialAmount:  opp.SuggestedSize,
		EntryPrice:     opp.EntryPrice,
		EntryLiquidity: opp.Liquidity,
		ExpectedProfit: opp.ExpectedProfit,
		OpenTime:       now,
		Status:         StatusOpen,
		RealizedPnL:    decimal.Zero,
	}
}

// SideOf infers the exposure an opportunity leaves. Sandwiches follow the
// victim's direction; everything else holds the base token.
func SideOf(opp strategy.Opportunity) Side {
	if opp.Type == strategy.TypeSandwich && opp.Pending != nil &&
		opp.Pending.From != nil && opp.TokenA != nil && opp.Pending.From.Equals(opp.TokenA) {
		return SideShort
	}
	return SideLong
}

// PnLFraction is the unrealized return at price relative to entry, signed
// for the position's side.
func (p Position) PnLFraction(price decimal.Decimal) float64 {
	if !p.EntryPrice.IsPositive() {
		return 0
	}
	diff := price.Sub(p.EntryPrice)
	if p.Side == SideShort {
		diff = diff.Neg()
	}
	return diff.Div(p.EntryPrice).InexactFloat64()
}

// PnLAt is the quote-token result of exiting amount at price.
func (p Position) PnLAt(amount, price decimal.Decimal) decimal.Decimal {
	diff := price.Sub(p.EntryPrice)
	if p.Side == SideShort {
		diff = diff.Neg()
	}
	return diff.Mul(amount)
}

// Volume is the entry notional in the quote token.
func (p Position) Volume() decimal.Decimal {
	return p.InitialAmount.Mul(p.EntryPrice)
}

// TradeFilled reports whether the entry executed.
func (p Position) TradeFilled() bool { return p.EntryFilled }

// TradePool is the pool the position traded on.
func (p Position) TradePool() string { return p.Pool }

// TradePnL is the realized quote-token result.
func (p Position) TradePnL() decimal.Decimal { return p.RealizedPnL }

// TradeVolume is the entry notional.
func (p Position) TradeVolume() decimal.Decimal { return p.Volume() }
