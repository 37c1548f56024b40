package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/business/position/domain"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/apm"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
)

const (
	tracerName = "github.com/fd1az/pool-sniper/business/position"
	meterName  = tracerName

	defaultMaxClosed = 1000

	reasonRoundTrip = "round trip"
)

// Config holds the monitor settings.
type Config struct {
	MonitorInterval time.Duration
	AdjustFraction  decimal.Decimal
	Thresholds      domain.Thresholds
	// MaxClosed caps the archive of closed positions.
	MaxClosed int
}

// Update is the position:update payload.
type Update struct {
	Position domain.Position
	Metrics  domain.Metrics
	Exited   decimal.Decimal
}

type managerMetrics struct {
	opened      metric.Int64Counter
	closed      metric.Int64Counter
	adjustments metric.Int64Counter
	open        metric.Int64UpDownCounter
}

type tracked struct {
	pos     domain.Position
	opp     strategy.Opportunity
	entry   domain.Entry
	closing bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Manager owns open positions. Each one has a monitor goroutine that
// closes or trims it as the market moves.
type Manager struct {
	cfg    Config
	trader TradeExecutor
	pools  PoolSource
	status ConnectionStatus
	bus    *eventbus.Bus
	clock  clockwork.Clock
	log    logger.LoggerInterface

	tracer  apm.Tracer
	metrics *managerMetrics

	paused atomic.Bool

	mu      sync.Mutex
	open    map[string]*tracked
	closed  []domain.Position
	stopped bool
	wg      sync.WaitGroup

	subMu sync.Mutex
	subs  []*eventbus.Subscription
}

// NewManager creates a manager. status may be nil.
func NewManager(
	cfg Config,
	trader TradeExecutor,
	pools PoolSource,
	status ConnectionStatus,
	bus *eventbus.Bus,
	clk clockwork.Clock,
	log logger.LoggerInterface,
) (*Manager, error) {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = time.Second
	}
	if cfg.MaxClosed <= 0 {
		cfg.MaxClosed = defaultMaxClosed
	}
	m := &Manager{
		cfg:    cfg,
		trader: trader,
		pools:  pools,
		status: status,
		bus:    bus,
		clock:  clk,
		log:    log,
		tracer: apm.NewTracer(tracerName),
		open:   make(map[string]*tracked),
	}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return m, nil
}

func (m *Manager) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	m.metrics = &managerMetrics{}

	m.metrics.opened, err = meter.Int64Counter(
		"positions_opened_total",
		metric.WithDescription("Positions opened"),
		metric.WithUnit("{position}"),
	)
	if err != nil {
		return err
	}

	m.metrics.closed, err = meter.Int64Counter(
		"positions_closed_total",
		metric.WithDescription("Positions closed"),
		metric.WithUnit("{position}"),
	)
	if err != nil {
		return err
	}

	m.metrics.adjustments, err = meter.Int64Counter(
		"position_adjustments_total",
		metric.WithDescription("Partial exits"),
		metric.WithUnit("{adjustment}"),
	)
	if err != nil {
		return err
	}

	m.metrics.open, err = meter.Int64UpDownCounter(
		"positions_open",
		metric.WithDescription("Currently open positions"),
		metric.WithUnit("{position}"),
	)
	return err
}

// Start follows connectivity so monitors skip decisions while it is lost.
func (m *Manager) Start(ctx context.Context) {
	if m.status != nil {
		m.paused.Store(!m.status.Snapshot().Healthy())
	}
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if m.subs == nil {
		m.subs = []*eventbus.Subscription{
			m.bus.Subscribe(eventbus.TopicConnectionChanged, "position.manager", m.onConnection),
		}
	}
}

func (m *Manager) onConnection(ctx context.Context, ev eventbus.Event) {
	st, ok := ev.Payload.(connDomain.State)
	if !ok {
		return
	}
	paused := !st.Healthy()
	if m.paused.Swap(paused) != paused {
		m.log.Info(ctx, "position monitors", "paused", paused)
	}
}

// Paused reports whether monitors are skipping decisions.
func (m *Manager) Paused() bool {
	return m.paused.Load()
}

// Open creates a position for opp, executes its entry and starts its
// monitor. An entry that fails to execute leaves the position open and
// unfilled; the monitor resumes it every tick from the first leg that did
// not land. A round trip entry settles the position as soon as it fills.
func (m *Manager) Open(ctx context.Context, opp strategy.Opportunity) (domain.Position, error) {
	ctx, span := m.tracer.StartSpanFromContext(ctx, "position.open",
		trace.WithAttributes(
			attribute.String("opportunity", opp.ID),
			attribute.String("pool", opp.Pool),
			attribute.String("type", string(opp.Type)),
		),
	)
	defer span.End()

	if opp.Pool == "" || !opp.SuggestedSize.IsPositive() {
		return domain.Position{}, apperror.Validation(apperror.CodeInvalidOpportunity, opp.ID)
	}
	if m.Paused() {
		return domain.Position{}, apperror.Limit(apperror.CodeTradingPaused, opp.ID)
	}
	if !opp.EntryPrice.IsPositive() {
		if pool, ok := m.pools.Pool(opp.Pool); ok {
			opp.EntryPrice = pool.Book.MidPrice()
		}
		if !opp.EntryPrice.IsPositive() {
			return domain.Position{}, apperror.Validation(apperror.CodeInvalidOpportunity,
				opp.ID+": no entry price")
		}
	}

	entry, err := m.trader.Plan(ctx, opp)
	if err == nil && len(entry.Legs) == 0 {
		err = apperror.Validation(apperror.CodeInvalidOpportunity, opp.ID+": empty plan")
	}
	if err != nil {
		span.NoticeError(err)
		return domain.Position{}, err
	}

	pos := domain.New(opp, m.clock.Now()).WithEntry(entry)
	entry, err = m.trader.Enter(ctx, opp.ID, entry)
	if err != nil && entry.Filled == 0 && !retryable(err) {
		span.NoticeError(err)
		return domain.Position{}, err
	}
	pos.EntryFilled = entry.Done()
	settled := pos.EntryFilled && entry.RoundTrip

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return domain.Position{}, apperror.Limit(apperror.CodeTradingPaused, "position manager stopped")
	}
	t := &tracked{pos: pos, opp: opp, entry: entry}
	m.open[pos.ID] = t
	if !settled {
		m.startMonitorLocked(ctx, t)
	}
	m.mu.Unlock()

	m.metrics.opened.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(pos.Type))))
	m.metrics.open.Add(ctx, 1)
	m.bus.Publish(ctx, eventbus.TopicPositionOpen, pos)

	switch {
	case err != nil:
		m.log.Warn(ctx, "position entry failed, retrying", "position", pos.ID,
			"filled_legs", entry.Filled, "legs", len(entry.Legs), "error", err)
	case settled:
		return m.finalize(ctx, t, pos.EntryPrice, reasonRoundTrip), nil
	default:
		m.log.Info(ctx, "position opened",
			"position", pos.ID, "pool", pos.Pool, "side", pos.Side,
			"amount", pos.Amount.String(), "entry", pos.EntryPrice.String())
	}
	return pos, nil
}

func retryable(err error) bool {
	return apperror.IsExecution(err) || apperror.IsConnection(err)
}

func (m *Manager) startMonitorLocked(ctx context.Context, t *tracked) {
	mctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.cancel = cancel
	t.done = make(chan struct{})
	m.wg.Add(1)
	go m.monitor(mctx, t.pos.ID, t.done)
}

func (m *Manager) monitor(ctx context.Context, id string, done chan struct{}) {
	defer m.wg.Done()
	defer close(done)

	ticker := m.clock.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if m.tick(ctx, id) {
				return
			}
		}
	}
}

// tick reports true when the position is gone and the monitor should exit.
func (m *Manager) tick(ctx context.Context, id string) bool {
	if m.paused.Load() {
		return false
	}

	m.mu.Lock()
	t, ok := m.open[id]
	if !ok {
		m.mu.Unlock()
		return true
	}
	if t.closing {
		m.mu.Unlock()
		return false
	}
	pos, entry := t.pos, t.entry
	m.mu.Unlock()

	if !pos.EntryFilled {
		return m.resumeEntry(ctx, t, entry)
	}

	pool, ok := m.pools.Pool(pos.Pool)
	if !ok {
		return false
	}
	price := pool.Book.MidPrice()
	if !price.IsPositive() {
		return false
	}

	metrics := domain.Measure(pos, price, pool.Liquidity, m.clock.Now(), m.cfg.Thresholds.MaxHold)
	switch domain.Decide(metrics, m.cfg.Thresholds) {
	case domain.Close:
		return m.closeFromMonitor(ctx, t, price, domain.CloseReason(metrics, m.cfg.Thresholds))
	case domain.Adjust:
		m.adjust(ctx, t, price, metrics)
	}
	return false
}

// resumeEntry submits the entry legs that have not landed. It reports true
// when the entry completed a round trip and the position was settled.
func (m *Manager) resumeEntry(ctx context.Context, t *tracked, e domain.Entry) bool {
	e, err := m.trader.Enter(ctx, t.opp.ID, e)

	m.mu.Lock()
	t.entry = e
	t.pos.EntryFilled = e.Done()
	id, entryPrice, closing := t.pos.ID, t.pos.EntryPrice, t.closing
	m.mu.Unlock()

	if err != nil {
		m.log.Debug(ctx, "entry retry failed", "position", id, "filled_legs", e.Filled, "error", err)
		return false
	}
	m.log.Info(ctx, "position entry filled", "position", id)
	if !e.RoundTrip || closing {
		return false
	}
	m.finalize(ctx, t, entryPrice, reasonRoundTrip)
	return true
}

func (m *Manager) closeFromMonitor(ctx context.Context, t *tracked, price decimal.Decimal, reason string) bool {
	m.mu.Lock()
	if t.closing {
		m.mu.Unlock()
		return false
	}
	t.closing = true
	pos := t.pos
	m.mu.Unlock()

	if err := m.trader.Exit(ctx, pos, pos.Amount, price); err != nil {
		m.mu.Lock()
		t.closing = false
		m.mu.Unlock()
		m.log.Warn(ctx, "position exit failed", "position", pos.ID, "reason", reason, "error", err)
		return false
	}
	m.finalize(ctx, t, price, reason)
	return true
}

func (m *Manager) adjust(ctx context.Context, t *tracked, price decimal.Decimal, metrics domain.Metrics) {
	m.mu.Lock()
	if t.closing {
		m.mu.Unlock()
		return
	}
	pos := t.pos
	m.mu.Unlock()

	part := pos.Amount.Mul(m.cfg.AdjustFraction)
	if !part.IsPositive() {
		return
	}
	if err := m.trader.Exit(ctx, pos, part, price); err != nil {
		m.log.Warn(ctx, "position adjust failed", "position", pos.ID, "error", err)
		return
	}

	m.mu.Lock()
	t.pos.Amount = t.pos.Amount.Sub(part)
	t.pos.Adjustments++
	t.pos.RealizedPnL = t.pos.RealizedPnL.Add(pos.PnLAt(part, price))
	updated := t.pos
	m.mu.Unlock()

	m.metrics.adjustments.Add(ctx, 1)
	m.bus.Publish(ctx, eventbus.TopicPositionUpdate, Update{Position: updated, Metrics: metrics, Exited: part})
	m.log.Info(ctx, "position adjusted",
		"position", pos.ID, "exited", part.String(), "remaining", updated.Amount.String(),
		"pnl", metrics.ProfitLoss, "risk", metrics.RiskScore)
}

// Close stops the position's monitor and exits it. Unknown, closed and
// closing ids are a no-op. A failed exit restarts the monitor and leaves the
// position open.
func (m *Manager) Close(ctx context.Context, id, reason string) error {
	ctx, span := m.tracer.StartSpanFromContext(ctx, "position.close",
		trace.WithAttributes(attribute.String("position", id), attribute.String("reason", reason)))
	defer span.End()

	m.mu.Lock()
	t, ok := m.open[id]
	if !ok || t.closing {
		m.mu.Unlock()
		return nil
	}
	t.closing = true
	cancel, done := t.cancel, t.done
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.Lock()
	pos, entry := t.pos, t.entry
	m.mu.Unlock()

	price := m.exitPrice(pos)
	var err error
	switch {
	case entry.RoundTrip && pos.EntryFilled:
		// settled by the monitor's last tick; nothing is held
	case pos.EntryFilled:
		err = m.trader.Exit(ctx, pos, pos.Amount, price)
	case entry.Filled > 0:
		err = m.trader.Unwind(ctx, pos.ID, entry)
	}
	if err != nil {
		m.mu.Lock()
		t.closing = false
		if !m.stopped {
			m.startMonitorLocked(ctx, t)
		}
		m.mu.Unlock()
		span.NoticeError(err)
		return apperror.Execution(apperror.CodeExecutionError, id, err)
	}
	m.finalize(ctx, t, price, reason)
	return nil
}

func (m *Manager) exitPrice(pos domain.Position) decimal.Decimal {
	if pool, ok := m.pools.Pool(pos.Pool); ok {
		if mid := pool.Book.MidPrice(); mid.IsPositive() {
			return mid
		}
	}
	return pos.EntryPrice
}

func (m *Manager) finalize(ctx context.Context, t *tracked, price decimal.Decimal, reason string) domain.Position {
	m.mu.Lock()
	p := t.pos
	switch {
	case !p.EntryFilled:
	case t.entry.RoundTrip:
		p.RealizedPnL = t.entry.RoundTripPnL()
	default:
		p.RealizedPnL = p.RealizedPnL.Add(p.PnLAt(p.Amount, price))
	}
	p.Status = domain.StatusClosed
	p.CloseTime = m.clock.Now()
	p.CloseReason = reason
	t.pos = p
	delete(m.open, p.ID)
	m.closed = append(m.closed, p)
	if over := len(m.closed) - m.cfg.MaxClosed; over > 0 {
		m.closed = append(m.closed[:0:0], m.closed[over:]...)
	}
	m.mu.Unlock()

	m.metrics.closed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	m.metrics.open.Add(ctx, -1)
	m.bus.Publish(ctx, eventbus.TopicPositionClose, p)
	m.log.Info(ctx, "position closed",
		"position", p.ID, "reason", reason, "price", price.String(),
		"realized_pnl", p.RealizedPnL.String(), "held", p.CloseTime.Sub(p.OpenTime))
	return p
}

// Positions returns open positions, oldest first.
func (m *Manager) Positions() []domain.Position {
	m.mu.Lock()
	out := make([]domain.Position, 0, len(m.open))
	for _, t := range m.open {
		out = append(out, t.pos)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out
}

// Position looks up an open or archived position.
func (m *Manager) Position(id string) (domain.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.open[id]; ok {
		return t.pos, true
	}
	for i := len(m.closed) - 1; i >= 0; i-- {
		if m.closed[i].ID == id {
			return m.closed[i], true
		}
	}
	return domain.Position{}, false
}

// Closed returns archived positions, oldest first.
func (m *Manager) Closed() []domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Position(nil), m.closed...)
}

// Stop halts every monitor and waits for them. Open positions stay open.
func (m *Manager) Stop(ctx context.Context) error {
	m.subMu.Lock()
	subs := m.subs
	m.subs = nil
	m.subMu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}

	m.mu.Lock()
	m.stopped = true
	for _, t := range m.open {
		if t.cancel != nil {
			t.cancel()
		}
	}
	m.mu.Unlock()

	waited := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
