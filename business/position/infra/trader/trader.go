// Package trader submits position entries from strategy plans and exits as
// single swap legs.
package trader

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/business/position/domain"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
)

// Planner prices an opportunity's legs without submitting them.
type Planner interface {
	Plan(opp strategy.Opportunity) ([]strategy.Leg, error)
}

// LegRunner submits swap legs.
type LegRunner interface {
	ExecuteLegs(ctx context.Context, opportunityID string, legs []strategy.Leg) ([]strategy.Fill, error)
}

// Trader implements the position manager's trade port.
type Trader struct {
	plans    Planner
	legs     LegRunner
	slippage decimal.Decimal
}

// New creates a trader. slippage bounds the minimum output of exits.
func New(plans Planner, legs LegRunner, slippage decimal.Decimal) *Trader {
	return &Trader{plans: plans, legs: legs, slippage: slippage}
}

// Plan prices opp and keeps the legs that open its position.
func (t *Trader) Plan(_ context.Context, opp strategy.Opportunity) (domain.Entry, error) {
	legs, err := t.plans.Plan(opp)
	if err != nil {
		return domain.Entry{}, err
	}
	return domain.NewEntry(opp.Type, legs), nil
}

// Enter submits the legs of e that have not landed yet and advances Filled
// past every one that did. A resumed entry gets its own order ids so legs
// from an earlier attempt are never submitted again.
func (t *Trader) Enter(ctx context.Context, id string, e domain.Entry) (domain.Entry, error) {
	remaining := e.Remaining()
	if len(remaining) == 0 {
		return e, nil
	}
	if e.Filled > 0 {
		id = fmt.Sprintf("%s@%d", id, e.Filled)
	}
	fills, err := t.legs.ExecuteLegs(ctx, id, remaining)
	e.Filled += min(len(fills), len(remaining))
	return e, err
}

// Exit swaps amount of the position's exposure back.
func (t *Trader) Exit(ctx context.Context, pos domain.Position, amount, price decimal.Decimal) error {
	id := fmt.Sprintf("%s/exit-%d", pos.ID, pos.Adjustments)
	_, err := t.legs.ExecuteLegs(ctx, id, []strategy.Leg{ExitLeg(pos, amount, price, t.slippage)})
	return err
}

// Unwind reverses the landed legs of an unfinished entry, newest first.
func (t *Trader) Unwind(ctx context.Context, id string, e domain.Entry) error {
	landed := e.Landed()
	if len(landed) == 0 {
		return nil
	}
	keep := decimal.NewFromInt(1).Sub(t.slippage)
	legs := make([]strategy.Leg, 0, len(landed))
	for _, leg := range slices.Backward(landed) {
		legs = append(legs, leg.Reverse(leg.MinOut, leg.AmountIn.Mul(keep)))
	}
	_, err := t.legs.ExecuteLegs(ctx, id+"/unwind", legs)
	return err
}

// ExitLeg unwinds amount of base token: a long sells it for quote, a short
// buys it back with quote.
func ExitLeg(pos domain.Position, amount, price, slippage decimal.Decimal) strategy.Leg {
	keep := decimal.NewFromInt(1).Sub(slippage)
	if pos.Side == domain.SideShort {
		return strategy.Leg{
			Pool:     pos.Pool,
			From:     pos.TokenB,
			To:       pos.TokenA,
			AmountIn: amount.Mul(price),
			MinOut:   amount.Mul(keep),
			Size:     amount,
		}
	}
	return strategy.Leg{
		Pool:     pos.Pool,
		From:     pos.TokenA,
		To:       pos.TokenB,
		AmountIn: amount,
		MinOut:   amount.Mul(price).Mul(keep),
		Size:     amount,
	}
}
