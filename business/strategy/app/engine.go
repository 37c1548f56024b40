package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	market "github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
)

const (
	tracerName = "github.com/fd1az/pool-sniper/business/strategy"
	meterName  = tracerName

	defaultScanInterval = time.Second
)

// EngineConfig holds the engine schedule.
type EngineConfig struct {
	ScanInterval time.Duration
}

// Strategies is the fixed strategy set. Sandwich is nil when no pending
// feed is configured.
type Strategies struct {
	Spread    *Spread
	Arbitrage *Arbitrage
	Sandwich  *Sandwich
}

type engineMetrics struct {
	opportunities metric.Int64Counter
	scans         metric.Int64Counter
}

// Engine feeds market data to the strategies and publishes what they find.
// Pool updates drive the spread strategy, a periodic graph scan drives
// arbitrage, and the pending feed drives sandwich. Everything is paused
// while connectivity is degraded.
type Engine struct {
	cfg        EngineConfig
	strategies Strategies
	scanner    PathScanner
	pools      PoolSource
	feed       PendingFeed
	status     ConnectionStatus
	bus        *eventbus.Bus
	clock      clockwork.Clock
	log        logger.LoggerInterface
	tracer     trace.Tracer
	metrics    *engineMetrics

	paused atomic.Bool

	runMu  sync.Mutex
	subs   []*eventbus.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates an engine. feed may be nil.
func NewEngine(
	cfg EngineConfig,
	strategies Strategies,
	scanner PathScanner,
	pools PoolSource,
	feed PendingFeed,
	status ConnectionStatus,
	bus *eventbus.Bus,
	clk clockwork.Clock,
	log logger.LoggerInterface,
) (*Engine, error) {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = defaultScanInterval
	}
	if strategies.Spread == nil || strategies.Arbitrage == nil {
		return nil, apperror.Validation(apperror.CodeConfigurationError, "spread and arbitrage strategies are required")
	}
	e := &Engine{
		cfg:        cfg,
		strategies: strategies,
		scanner:    scanner,
		pools:      pools,
		feed:       feed,
		status:     status,
		bus:        bus,
		clock:      clk,
		log:        log,
		tracer:     otel.Tracer(tracerName),
	}
	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return e, nil
}

func (e *Engine) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &engineMetrics{}

	e.metrics.opportunities, err = meter.Int64Counter(
		"opportunities_total",
		metric.WithDescription("Opportunities published, by strategy"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return err
	}

	e.metrics.scans, err = meter.Int64Counter(
		"arbitrage_scans_total",
		metric.WithDescription("Graph scans run"),
		metric.WithUnit("{scan}"),
	)
	return err
}

// Start subscribes to the bus and runs the scan and pending loops until Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil {
		return nil
	}

	if e.status != nil {
		e.setPaused(ctx, !e.status.Snapshot().Healthy())
	}

	var pending <-chan domain.PendingSwap
	ctx, cancel := context.WithCancel(ctx)
	if e.feed != nil && e.strategies.Sandwich != nil {
		ch, err := e.feed.Subscribe(ctx)
		if err != nil {
			cancel()
			return err
		}
		pending = ch
	}

	e.subs = []*eventbus.Subscription{
		e.bus.Subscribe(eventbus.TopicConnectionChanged, "strategy.engine", e.onConnection),
		e.bus.Subscribe(eventbus.TopicPoolUpdate, "strategy.spread", e.onPoolUpdate),
	}
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx, e.done, pending)
	return nil
}

// Stop unsubscribes and waits for the loops to exit.
func (e *Engine) Stop() {
	e.runMu.Lock()
	subs, cancel, done := e.subs, e.cancel, e.done
	e.subs, e.cancel, e.done = nil, nil, nil
	e.runMu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	if cancel != nil {
		cancel()
		<-done
	}
}

// Paused reports whether analysis is suspended.
func (e *Engine) Paused() bool {
	return e.paused.Load()
}

func (e *Engine) setPaused(ctx context.Context, paused bool) {
	if e.paused.Swap(paused) != paused {
		if paused {
			e.log.Warn(ctx, "strategy engine paused")
		} else {
			e.log.Info(ctx, "strategy engine resumed")
		}
	}
}

func (e *Engine) onConnection(ctx context.Context, ev eventbus.Event) {
	st, ok := ev.Payload.(connDomain.State)
	if !ok {
		return
	}
	e.setPaused(ctx, !st.Healthy())
}

func (e *Engine) onPoolUpdate(ctx context.Context, ev eventbus.Event) {
	pool, ok := ev.Payload.(market.Pool)
	if !ok || e.Paused() {
		return
	}
	e.consider(ctx, domain.PoolInput{Pool: pool})
}

func (e *Engine) run(ctx context.Context, done chan struct{}, pending <-chan domain.PendingSwap) {
	defer close(done)

	ticker := e.clock.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if !e.Paused() {
				e.Scan(ctx)
			}
		case swap, ok := <-pending:
			if !ok {
				pending = nil
				continue
			}
			if !e.Paused() {
				e.onPending(ctx, swap)
			}
		}
	}
}

// Scan runs one arbitrage pass over the valid pools.
func (e *Engine) Scan(ctx context.Context) {
	ctx, span := e.tracer.Start(ctx, "strategy.scan")
	defer span.End()

	e.metrics.scans.Add(ctx, 1)
	candidates, err := e.scanner.Scan(ctx, e.pools.ValidPools())
	if err != nil {
		span.RecordError(err)
		e.log.Warn(ctx, "arbitrage scan failed", "error", err)
		return
	}
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	for _, c := range candidates {
		e.consider(ctx, domain.PathInput{
			Path:              c.Path,
			Profit:            c.Profit,
			ThinnestLiquidity: c.ThinnestLiquidity,
		})
	}
}

func (e *Engine) onPending(ctx context.Context, swap domain.PendingSwap) {
	pool, ok := e.pools.Pool(swap.Pool)
	if !ok {
		e.log.Debug(ctx, "pending swap on untracked pool", "pool", swap.Pool, "signature", swap.Signature)
		return
	}
	e.consider(ctx, domain.PendingInput{Swap: swap, Pool: pool})
}

func (e *Engine) consider(ctx context.Context, in domain.Input) {
	opp, err := e.Analyze(ctx, in)
	if err != nil {
		e.log.Debug(ctx, "input discarded", "error", err)
		return
	}
	if opp == nil {
		return
	}
	e.metrics.opportunities.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(opp.Type))))
	e.log.Info(ctx, "opportunity found",
		"id", opp.ID,
		"opportunity", opp.Describe(),
		"expected_profit", opp.ExpectedProfit.StringFixed(4),
		"confidence", opp.Confidence,
		"size", opp.SuggestedSize.String(),
	)
	e.bus.Publish(ctx, eventbus.TopicOpportunity, *opp)
}

// Analyze dispatches in to the strategy for its variant.
func (e *Engine) Analyze(ctx context.Context, in domain.Input) (*domain.Opportunity, error) {
	s, err := e.forInput(in)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, in)
}

// Execute dispatches opp to the strategy that produced it.
func (e *Engine) Execute(ctx context.Context, opp domain.Opportunity) (domain.ExecutionResult, error) {
	ctx, span := e.tracer.Start(ctx, "strategy.execute",
		trace.WithAttributes(attribute.String("type", string(opp.Type)), attribute.String("id", opp.ID)))
	defer span.End()

	s, err := e.forType(opp.Type)
	if err != nil {
		return domain.ExecutionResult{OpportunityID: opp.ID}, err
	}
	res, err := s.Execute(ctx, opp)
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}

// Plan prices the legs of opp with the strategy that produced it.
func (e *Engine) Plan(opp domain.Opportunity) ([]domain.Leg, error) {
	s, err := e.forType(opp.Type)
	if err != nil {
		return nil, err
	}
	return s.Plan(opp)
}

func (e *Engine) forInput(in domain.Input) (Strategy, error) {
	switch in.(type) {
	case domain.PoolInput:
		return e.strategies.Spread, nil
	case domain.PathInput:
		return e.strategies.Arbitrage, nil
	case domain.PendingInput:
		if e.strategies.Sandwich == nil {
			return nil, apperror.Validation(apperror.CodeInvalidOpportunity, "sandwich strategy disabled")
		}
		return e.strategies.Sandwich, nil
	default:
		return nil, apperror.Validation(apperror.CodeInvalidOpportunity, fmt.Sprintf("unknown input %T", in))
	}
}

func (e *Engine) forType(t domain.Type) (Strategy, error) {
	switch t {
	case domain.TypeSpread:
		return e.strategies.Spread, nil
	case domain.TypeArbitrage:
		return e.strategies.Arbitrage, nil
	case domain.TypeSandwich:
		if e.strategies.Sandwich != nil {
			return e.strategies.Sandwich, nil
		}
	}
	return nil, apperror.Validation(apperror.CodeInvalidOpportunity, "no strategy for "+string(t))
}
