package app

import (
	"context"
	"math"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
)

// Spread confidence weights.
const (
	tightnessWeight = 0.4
	depthWeight     = 0.3
	balanceWeight   = 0.3

	// depthLevels is the level count that earns a full depth score.
	depthLevels = 100
)

// SpreadConfig holds the spread strategy thresholds.
type SpreadConfig struct {
	CaptureFraction decimal.Decimal
	MinProfit       decimal.Decimal
	MinConfidence   float64
	MinLiquidity    decimal.Decimal
	Sizes           domain.SizeBounds
}

// Spread quotes inside a pool's bid/ask gap: buy at the best bid, sell at
// the best ask.
type Spread struct {
	cfg   SpreadConfig
	pools PoolSource
	legs  LegExecutor
	clock clockwork.Clock
}

// NewSpread creates the spread strategy.
func NewSpread(cfg SpreadConfig, pools PoolSource, legs LegExecutor, clk clockwork.Clock) *Spread {
	return &Spread{cfg: cfg, pools: pools, legs: legs, clock: clk}
}

func (s *Spread) Type() domain.Type { return domain.TypeSpread }

// SpreadScore is the breakdown behind a spread decision.
type SpreadScore struct {
	Spread         decimal.Decimal
	ExpectedProfit decimal.Decimal
	Confidence     float64
	Liquidity      decimal.Decimal
}

// Score computes spread, expected profit, confidence and the usable
// liquidity for a book. ok is false for a one-sided book.
func (s *Spread) Score(in domain.PoolInput) (SpreadScore, bool) {
	book := in.Pool.Book
	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	if !okBid || !okAsk || !bid.Price.IsPositive() {
		return SpreadScore{}, false
	}

	spread := ask.Price.Sub(bid.Price).Div(bid.Price)
	bidValue, askValue := book.BidValue(), book.AskValue()

	sf := spread.InexactFloat64()
	tightness := math.Max(0, 1-10*sf)
	depth := math.Min(float64(min(len(book.Bids), len(book.Asks)))/depthLevels, 1)
	balance := 0.0
	if bidValue.IsPositive() && askValue.IsPositive() {
		b, a := bidValue.InexactFloat64(), askValue.InexactFloat64()
		balance = math.Min(b/a, a/b)
	}

	return SpreadScore{
		Spread:         spread,
		ExpectedProfit: spread.Mul(s.cfg.CaptureFraction),
		Confidence:     tightnessWeight*tightness + depthWeight*depth + balanceWeight*balance,
		Liquidity:      decimal.Min(bidValue, askValue),
	}, true
}

// Analyze scores a pool snapshot.
func (s *Spread) Analyze(_ context.Context, in domain.Input) (*domain.Opportunity, error) {
	pi, ok := in.(domain.PoolInput)
	if !ok {
		return nil, apperror.Validation(apperror.CodeInvalidOpportunity, "spread expects a pool input")
	}
	score, ok := s.Score(pi)
	if !ok {
		return nil, nil
	}
	if score.ExpectedProfit.LessThan(s.cfg.MinProfit) ||
		score.Confidence < s.cfg.MinConfidence ||
		score.Liquidity.LessThan(s.cfg.MinLiquidity) {
		return nil, nil
	}

	mid := pi.Pool.Book.MidPrice()
	opp := domain.NewOpportunity(domain.Opportunity{
		Type:           domain.TypeSpread,
		Pool:           pi.Pool.Address,
		TokenA:         pi.Pool.TokenA,
		TokenB:         pi.Pool.TokenB,
		ExpectedProfit: score.ExpectedProfit,
		Confidence:     score.Confidence,
		SuggestedSize:  domain.SuggestSize(s.cfg.Sizes, score.Liquidity, score.Confidence),
		Liquidity:      score.Liquidity,
		EntryPrice:     mid,
	}, s.clock.Now())
	return &opp, nil
}

// Execute buys SuggestedSize at the current best bid, then sells it at the
// current best ask.
func (s *Spread) Execute(ctx context.Context, opp domain.Opportunity) (domain.ExecutionResult, error) {
	legs, err := s.Plan(opp)
	if err != nil {
		return domain.ExecutionResult{OpportunityID: opp.ID}, err
	}
	return runLegs(ctx, s.legs, opp.ID, legs)
}

// Plan builds the buy and sell legs against the current book.
func (s *Spread) Plan(opp domain.Opportunity) ([]domain.Leg, error) {
	pool, ok := s.pools.Pool(opp.Pool)
	if !ok {
		return nil, apperror.NotFound(apperror.CodeNotFound, "pool "+opp.Pool)
	}
	bid, okBid := pool.Book.BestBid()
	ask, okAsk := pool.Book.BestAsk()
	if !okBid || !okAsk {
		return nil, apperror.Validation(apperror.CodeInsufficientLiquidity, "one-sided book "+opp.Pool)
	}

	size := opp.SuggestedSize
	buy := domain.Leg{
		Pool:     pool.Address,
		From:     pool.TokenB,
		To:       pool.TokenA,
		AmountIn: size.Mul(bid.Price),
		MinOut:   size,
		Size:     size,
	}
	sell := buy.Reverse(size, size.Mul(ask.Price))
	return []domain.Leg{buy, sell}, nil
}

func runLegs(ctx context.Context, ex LegExecutor, id string, legs []domain.Leg) (domain.ExecutionResult, error) {
	fills, err := ex.ExecuteLegs(ctx, id, legs)
	res := domain.ExecutionResult{OpportunityID: id, Fills: fills, Success: err == nil}
	if err != nil {
		return res, apperror.Wrap(err, apperror.CodeExecutionError, id)
	}
	return res, nil
}
