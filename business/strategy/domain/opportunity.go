// Package domain contains the core domain types for the strategy context.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pathDomain "github.com/fd1az/pool-sniper/business/pathfinding/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
)

// Type identifies the strategy that produced an opportunity.
type Type string

const (
	TypeSpread    Type = "SPREAD"
	TypeArbitrage Type = "ARBITRAGE"
	TypeSandwich  Type = "SANDWICH"
)

// Opportunity is a scored, time-stamped candidate trade. It is passed by
// value and owns copies of its slices.
type Opportunity struct {
	ID        string
	Type      Type
	Pool      string
	TokenA    *asset.Asset
	TokenB    *asset.Asset
	Path      pathDomain.Path
	Pending   *PendingSwap
	Timestamp time.Time

	// ExpectedProfit is a fraction of SuggestedSize.
	ExpectedProfit decimal.Decimal
	Confidence     float64
	SuggestedSize  decimal.Decimal
	Liquidity      decimal.Decimal
	// EntryPrice is the pool mid price when the opportunity was found.
	EntryPrice decimal.Decimal
}

// NewOpportunity stamps o with an id and timestamp and detaches it from
// the caller's path and pending swap.
func NewOpportunity(o Opportunity, now time.Time) Opportunity {
	o.ID = uuid.NewString()
	o.Timestamp = now
	o.Path = o.Path.Clone()
	if o.Pending != nil {
		p := *o.Pending
		o.Pending = &p
	}
	return o
}

// Pair renders the pool pair, e.g. "SOL/USDC".
func (o Opportunity) Pair() string {
	if o.TokenA == nil || o.TokenB == nil {
		return ""
	}
	return o.TokenA.Symbol() + "/" + o.TokenB.Symbol()
}

// Describe is a short human-readable label.
func (o Opportunity) Describe() string {
	switch o.Type {
	case TypeArbitrage:
		return string(o.Type) + " " + o.Path.String()
	default:
		return string(o.Type) + " " + o.Pair()
	}
}
