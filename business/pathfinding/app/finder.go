package app

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	market "github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/business/pathfinding/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/logger"
)

const tracerName = "github.com/fd1az/pool-sniper/business/pathfinding"

// FinderConfig holds the search bounds.
type FinderConfig struct {
	MaxDepth     int
	MinProfit    decimal.Decimal
	MinLiquidity decimal.Decimal
	// Starts are the mints cycles begin from. Empty means every token.
	Starts []string
}

// Candidate is a cycle with its simulated return on one unit of Start.
type Candidate struct {
	Path   domain.Path
	Profit decimal.Decimal
	// ThinnestLiquidity is the lowest pool liquidity along the path.
	ThinnestLiquidity decimal.Decimal
}

// Finder enumerates and prices cycles.
type Finder struct {
	cfg    FinderConfig
	source PoolSource
	quoter Quoter
	log    logger.LoggerInterface
	tracer trace.Tracer
}

// NewFinder creates a finder. source backs Profitability; Evaluate uses the
// pools it is given.
func NewFinder(cfg FinderConfig, source PoolSource, quoter Quoter, log logger.LoggerInterface) *Finder {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = domain.DefaultMaxDepth
	}
	return &Finder{
		cfg:    cfg,
		source: source,
		quoter: quoter,
		log:    log,
		tracer: otel.Tracer(tracerName),
	}
}

// Profitability simulates the path on one unit of its start token and
// returns out − 1.
func (f *Finder) Profitability(ctx context.Context, path domain.Path) (decimal.Decimal, error) {
	return f.profitability(ctx, path, f.source.Pool)
}

func (f *Finder) profitability(ctx context.Context, path domain.Path, lookup func(string) (market.Pool, bool)) (decimal.Decimal, error) {
	if path.Len() == 0 {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidOpportunity, "empty path")
	}
	amount := decimal.NewFromInt(1)
	for _, hop := range path.Hops {
		pool, ok := lookup(hop.Pool)
		if !ok {
			return decimal.Zero, apperror.NotFound(apperror.CodeNotFound, "pool "+hop.Pool)
		}
		out, err := f.quoter.Quote(ctx, pool, hop.From, hop.To, amount)
		if err != nil {
			return decimal.Zero, apperror.Wrap(err, apperror.CodeInvalidQuote, path.String())
		}
		if !out.IsPositive() {
			return decimal.Zero, apperror.Validation(apperror.CodeInvalidQuote,
				path.String()+": hop "+hop.Pool+" quoted nothing")
		}
		amount = out
	}
	return amount.Sub(decimal.NewFromInt(1)), nil
}

// Scan evaluates pools from the configured start tokens.
func (f *Finder) Scan(ctx context.Context, pools []market.Pool) ([]Candidate, error) {
	return f.Evaluate(ctx, pools, f.cfg.Starts)
}

// Evaluate builds the graph from pools, enumerates cycles from every start
// mint (every graph token when starts is empty) and returns the ones at or
// above MinProfit, best first. Paths that cannot be quoted are skipped.
func (f *Finder) Evaluate(ctx context.Context, pools []market.Pool, starts []string) ([]Candidate, error) {
	ctx, span := f.tracer.Start(ctx, "pathfinding.evaluate")
	defer span.End()

	graph := domain.NewGraph(pools, f.cfg.MinLiquidity)
	byAddress := make(map[string]market.Pool, len(pools))
	for _, p := range pools {
		byAddress[p.Address] = p
	}
	lookup := func(address string) (market.Pool, bool) {
		p, ok := byAddress[address]
		return p, ok
	}

	if len(starts) == 0 {
		starts = nil
		for _, t := range graph.Tokens() {
			starts = append(starts, t.Mint())
		}
	}

	var (
		out      []Candidate
		explored int
	)
	for _, start := range starts {
		for _, path := range graph.FindCycles(start, f.cfg.MaxDepth) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			explored++
			profit, err := f.profitability(ctx, path, lookup)
			if err != nil {
				f.log.Debug(ctx, "path skipped", "path", path.String(), "error", err)
				continue
			}
			if profit.LessThan(f.cfg.MinProfit) {
				continue
			}
			out = append(out, Candidate{
				Path:              path,
				Profit:            profit,
				ThinnestLiquidity: thinnest(path, byAddress),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Profit.GreaterThan(out[j].Profit) })

	span.SetAttributes(
		attribute.Int("pools", graph.PoolCount()),
		attribute.Int("paths", explored),
		attribute.Int("candidates", len(out)),
	)
	return out, nil
}

func thinnest(path domain.Path, pools map[string]market.Pool) decimal.Decimal {
	var lowest decimal.Decimal
	for i, h := range path.Hops {
		liq := pools[h.Pool].Liquidity
		if i == 0 || liq.LessThan(lowest) {
			lowest = liq
		}
	}
	return lowest
}
