package app

import (
	"context"
	"fmt"

	"github.com/fd1az/pool-sniper/business/execution/domain"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
)

// LegExecutor runs a plan's legs one after another and stops at the first
// failure.
type LegExecutor struct {
	executor *Executor
}

// NewLegExecutor creates a leg executor.
func NewLegExecutor(executor *Executor) *LegExecutor {
	return &LegExecutor{executor: executor}
}

// ExecuteLegs submits legs in order. Fills cover the legs that landed
// before any failure.
func (l *LegExecutor) ExecuteLegs(ctx context.Context, opportunityID string, legs []strategy.Leg) ([]strategy.Fill, error) {
	fills := make([]strategy.Fill, 0, len(legs))
	for i, leg := range legs {
		rec, err := l.executor.Execute(ctx, OrderFromLeg(opportunityID, i, leg))
		if err != nil {
			return fills, err
		}
		fills = append(fills, strategy.Fill{Leg: leg, Signature: rec.Signature})
	}
	return fills, nil
}

// OrderFromLeg converts leg i of an opportunity into an order.
func OrderFromLeg(opportunityID string, i int, leg strategy.Leg) domain.Order {
	return domain.Order{
		ID:            fmt.Sprintf("%s/%d", opportunityID, i),
		OpportunityID: opportunityID,
		Pool:          leg.Pool,
		From:          leg.From,
		To:            leg.To,
		AmountIn:      leg.AmountIn,
		MinOut:        leg.MinOut,
		Size:          leg.Size,
	}
}
