package app

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
)

// sandwichBundle counts the front-run, the victim and the back-run.
const sandwichBundle = 3

// SandwichConfig holds the sandwich strategy thresholds.
type SandwichConfig struct {
	MinSwapSize     decimal.Decimal
	CaptureFraction decimal.Decimal
	MaxBundleSize   int
	MaxSlippage     decimal.Decimal
	Sizes           domain.SizeBounds
}

// Sandwich brackets a large pending swap: buy ahead of it in the same
// direction, sell back after it.
type Sandwich struct {
	cfg   SandwichConfig
	pools PoolSource
	sim   Simulator
	legs  LegExecutor
	clock clockwork.Clock
}

// NewSandwich creates the sandwich strategy.
func NewSandwich(cfg SandwichConfig, pools PoolSource, sim Simulator, legs LegExecutor, clk clockwork.Clock) *Sandwich {
	if cfg.MaxBundleSize <= 0 {
		cfg.MaxBundleSize = 3
	}
	return &Sandwich{cfg: cfg, pools: pools, sim: sim, legs: legs, clock: clk}
}

func (s *Sandwich) Type() domain.Type { return domain.TypeSandwich }

// Analyze simulates the pending swap against the pool and keeps the
// capture fraction of its price impact.
func (s *Sandwich) Analyze(_ context.Context, in domain.Input) (*domain.Opportunity, error) {
	pi, ok := in.(domain.PendingInput)
	if !ok {
		return nil, apperror.Validation(apperror.CodeInvalidOpportunity, "sandwich expects a pending input")
	}
	swap := pi.Swap
	if swap.From == nil || swap.To == nil {
		return nil, apperror.Validation(apperror.CodeInvalidOpportunity, "pending swap without tokens")
	}
	if swap.AmountIn.LessThan(s.cfg.MinSwapSize) {
		return nil, nil
	}

	sim, err := s.sim.Simulate(pi.Pool, swap.From, swap.To, swap.AmountIn)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidQuote, "pending "+swap.Signature)
	}
	profit := sim.Impact.Mul(s.cfg.CaptureFraction)
	if !profit.IsPositive() {
		return nil, nil
	}

	conf := 1.0
	if s.cfg.MinSwapSize.IsPositive() {
		conf = swap.AmountIn.Div(swap.AmountIn.Add(s.cfg.MinSwapSize)).InexactFloat64()
	}
	liq := pi.Pool.Liquidity
	opp := domain.NewOpportunity(domain.Opportunity{
		Type:           domain.TypeSandwich,
		Pool:           pi.Pool.Address,
		TokenA:         pi.Pool.TokenA,
		TokenB:         pi.Pool.TokenB,
		Pending:        &swap,
		ExpectedProfit: profit,
		Confidence:     conf,
		SuggestedSize:  domain.SuggestSize(s.cfg.Sizes, liq, conf),
		Liquidity:      liq,
		EntryPrice:     pi.Pool.Book.MidPrice(),
	}, s.clock.Now())
	return &opp, nil
}

// Execute submits the front-run and back-run legs. The victim swap counts
// toward the bundle size.
func (s *Sandwich) Execute(ctx context.Context, opp domain.Opportunity) (domain.ExecutionResult, error) {
	legs, err := s.Plan(opp)
	if err != nil {
		return domain.ExecutionResult{OpportunityID: opp.ID}, err
	}
	return runLegs(ctx, s.legs, opp.ID, legs)
}

// Plan builds the front-run and back-run legs.
func (s *Sandwich) Plan(opp domain.Opportunity) ([]domain.Leg, error) {
	if opp.Pending == nil {
		return nil, apperror.Validation(apperror.CodeInvalidOpportunity, "sandwich without pending swap")
	}
	if sandwichBundle > s.cfg.MaxBundleSize {
		return nil, apperror.Limit(apperror.CodeLimitExceeded,
			fmt.Sprintf("bundle of %d exceeds max %d", sandwichBundle, s.cfg.MaxBundleSize))
	}
	pool, ok := s.pools.Pool(opp.Pool)
	if !ok {
		return nil, apperror.NotFound(apperror.CodeNotFound, "pool "+opp.Pool)
	}

	swap := opp.Pending
	sim, err := s.sim.Simulate(pool, swap.From, swap.To, opp.SuggestedSize)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidQuote, "front-run "+opp.ID)
	}
	front := domain.Leg{
		Pool:     pool.Address,
		From:     swap.From,
		To:       swap.To,
		AmountIn: opp.SuggestedSize,
		MinOut:   sim.AmountOut.Mul(decimal.NewFromInt(1).Sub(s.cfg.MaxSlippage)),
		Size:     opp.SuggestedSize,
	}
	back := front.Reverse(front.MinOut, opp.SuggestedSize)
	return []domain.Leg{front, back}, nil
}
