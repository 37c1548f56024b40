package domain

import (
	"github.com/shopspring/decimal"

	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
)

// Entry is the leg sequence that opens a position and how far it got.
//
// Spread and sandwich entries are the plan's first leg only: it leaves base
// token exposure that the monitor later unwinds. Arbitrage entries are the
// whole cycle; they end holding the start token again, so the position is
// settled when the last leg lands and never exits.
type Entry struct {
	Legs      []strategy.Leg
	Filled    int
	RoundTrip bool
}

// NewEntry selects the entry legs of a strategy plan.
func NewEntry(t strategy.Type, plan []strategy.Leg) Entry {
	if t == strategy.TypeArbitrage {
		return Entry{Legs: append([]strategy.Leg(nil), plan...), RoundTrip: true}
	}
	if len(plan) == 0 {
		return Entry{}
	}
	return Entry{Legs: []strategy.Leg{plan[0]}}
}

// Done reports whether every entry leg landed.
func (e Entry) Done() bool {
	return len(e.Legs) > 0 && e.Filled >= len(e.Legs)
}

// Remaining returns the legs still to submit.
func (e Entry) Remaining() []strategy.Leg {
	if e.Filled >= len(e.Legs) {
		return nil
	}
	return e.Legs[e.Filled:]
}

// Landed returns the legs that already executed.
func (e Entry) Landed() []strategy.Leg {
	return e.Legs[:min(e.Filled, len(e.Legs))]
}

// RoundTripPnL is what a completed cycle returns beyond what it spent, in
// the start token, taken at each leg's minimum output.
func (e Entry) RoundTripPnL() decimal.Decimal {
	if !e.RoundTrip || !e.Done() {
		return decimal.Zero
	}
	return e.Legs[len(e.Legs)-1].MinOut.Sub(e.Legs[0].AmountIn)
}

// Exposure is the side and base token amount a one-leg entry leaves: a leg
// that receives base is long its minimum output, a leg that spends base is
// short its input. ok is false when the leg does not touch base.
func Exposure(leg strategy.Leg, base *asset.Asset) (side Side, amount decimal.Decimal, ok bool) {
	switch {
	case base == nil:
		return "", decimal.Zero, false
	case leg.To != nil && leg.To.Equals(base):
		return SideLong, leg.MinOut, true
	case leg.From != nil && leg.From.Equals(base):
		return SideShort, leg.AmountIn, true
	}
	return "", decimal.Zero, false
}

// WithEntry sizes p from what its entry actually holds. Round trips keep the
// opportunity size as their notional.
func (p Position) WithEntry(e Entry) Position {
	if e.RoundTrip || len(e.Legs) == 0 {
		return p
	}
	if side, amount, ok := Exposure(e.Legs[0], p.TokenA); ok && amount.IsPositive() {
		p.Side = side
		p.Amount = amount
		p.InitialAmount = amount
	}
	return p
}
