package app

import (
	"context"
	"math"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
)

// ArbitrageConfig holds the arbitrage strategy thresholds.
type ArbitrageConfig struct {
	Threshold    decimal.Decimal
	MinLiquidity decimal.Decimal
	MaxSlippage  decimal.Decimal
	Sizes        domain.SizeBounds
}

// Arbitrage trades priced cycles.
type Arbitrage struct {
	cfg   ArbitrageConfig
	pools PoolSource
	sim   Simulator
	legs  LegExecutor
	clock clockwork.Clock
}

// NewArbitrage creates the arbitrage strategy.
func NewArbitrage(cfg ArbitrageConfig, pools PoolSource, sim Simulator, legs LegExecutor, clk clockwork.Clock) *Arbitrage {
	return &Arbitrage{cfg: cfg, pools: pools, sim: sim, legs: legs, clock: clk}
}

func (a *Arbitrage) Type() domain.Type { return domain.TypeArbitrage }

// Confidence grows from 0.5 with the thinnest hop's liquidity and reaches 1
// at ten times the floor.
func (a *Arbitrage) Confidence(thinnest decimal.Decimal) float64 {
	if !a.cfg.MinLiquidity.IsPositive() {
		return 1
	}
	ratio := thinnest.Div(a.cfg.MinLiquidity).InexactFloat64()
	return math.Max(0, math.Min(1, 0.5+ratio/20))
}

// Analyze admits a cycle whose profitability clears the threshold.
func (a *Arbitrage) Analyze(_ context.Context, in domain.Input) (*domain.Opportunity, error) {
	pi, ok := in.(domain.PathInput)
	if !ok {
		return nil, apperror.Validation(apperror.CodeInvalidOpportunity, "arbitrage expects a path input")
	}
	if pi.Path.Len() == 0 {
		return nil, apperror.Validation(apperror.CodeInvalidOpportunity, "empty path")
	}
	if pi.Profit.LessThan(a.cfg.Threshold) {
		return nil, nil
	}

	first := pi.Path.Hops[0]
	conf := a.Confidence(pi.ThinnestLiquidity)
	o := domain.Opportunity{
		Type:           domain.TypeArbitrage,
		Pool:           first.Pool,
		TokenA:         first.From,
		TokenB:         first.To,
		Path:           pi.Path,
		ExpectedProfit: pi.Profit,
		Confidence:     conf,
		SuggestedSize:  domain.SuggestSize(a.cfg.Sizes, pi.ThinnestLiquidity, conf),
		Liquidity:      pi.ThinnestLiquidity,
	}
	if pool, ok := a.pools.Pool(first.Pool); ok {
		o.EntryPrice = pool.Book.MidPrice()
	}
	opp := domain.NewOpportunity(o, a.clock.Now())
	return &opp, nil
}

// Execute re-prices the cycle at SuggestedSize against current books and
// submits one leg per hop. Each hop spends the previous hop's minimum output.
func (a *Arbitrage) Execute(ctx context.Context, opp domain.Opportunity) (domain.ExecutionResult, error) {
	legs, err := a.Plan(opp)
	if err != nil {
		return domain.ExecutionResult{OpportunityID: opp.ID}, err
	}
	return runLegs(ctx, a.legs, opp.ID, legs)
}

// Plan builds the legs for opp without submitting them.
func (a *Arbitrage) Plan(opp domain.Opportunity) ([]domain.Leg, error) {
	if opp.Path.Len() == 0 {
		return nil, apperror.Validation(apperror.CodeInvalidOpportunity, "arbitrage without path")
	}
	keep := decimal.NewFromInt(1).Sub(a.cfg.MaxSlippage)

	amount := opp.SuggestedSize
	legs := make([]domain.Leg, 0, opp.Path.Len())
	for _, hop := range opp.Path.Hops {
		pool, ok := a.pools.Pool(hop.Pool)
		if !ok {
			return nil, apperror.NotFound(apperror.CodeNotFound, "pool "+hop.Pool)
		}
		sim, err := a.sim.Simulate(pool, hop.From, hop.To, amount)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInvalidQuote, opp.Path.String())
		}
		minOut := sim.AmountOut.Mul(keep)
		legs = append(legs, domain.Leg{
			Pool:     hop.Pool,
			From:     hop.From,
			To:       hop.To,
			AmountIn: amount,
			MinOut:   minOut,
			Size:     opp.SuggestedSize,
		})
		amount = minOut
	}
	return legs, nil
}
