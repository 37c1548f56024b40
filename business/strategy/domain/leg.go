package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/internal/asset"
)

// Leg is one swap of an execution plan: spend AmountIn of From on Pool and
// receive at least MinOut of To. Size is the trade size the leg counts
// against exposure limits.
type Leg struct {
	Pool     string
	From     *asset.Asset
	To       *asset.Asset
	AmountIn decimal.Decimal
	MinOut   decimal.Decimal
	Size     decimal.Decimal
}

// Reverse returns the leg that unwinds l, spending what l received.
func (l Leg) Reverse(amountIn, minOut decimal.Decimal) Leg {
	return Leg{Pool: l.Pool, From: l.To, To: l.From, AmountIn: amountIn, MinOut: minOut, Size: l.Size}
}

// Fill is the outcome of one submitted leg.
type Fill struct {
	Leg       Leg
	Signature string
}

// ExecutionResult reports how far a plan got.
type ExecutionResult struct {
	OpportunityID string
	Fills         []Fill
	Success       bool
}
