package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/pool-sniper/business/monitoring/domain"
	positionDomain "github.com/fd1az/pool-sniper/business/position/domain"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
)

const meterName = "github.com/fd1az/pool-sniper/business/monitoring"

// Config holds monitor settings.
type Config struct {
	MetricsInterval time.Duration
	BalanceInterval time.Duration
	RecentTrades    int
	// WalletAddress enables the balance poll when set.
	WalletAddress string
}

// DefaultConfig returns the usual intervals.
func DefaultConfig() Config {
	return Config{
		MetricsInterval: time.Second,
		BalanceInterval: 30 * time.Second,
		RecentTrades:    domain.DefaultRecentTrades,
	}
}

type monitorMetrics struct {
	trades       metric.Int64Counter
	totalProfit  metric.Float64ObservableGauge
	winRate      metric.Float64ObservableGauge
	openPos      metric.Int64ObservableGauge
	balance      metric.Float64ObservableGauge
	registration metric.Registration
}

// Monitor tracks trade performance from position events and publishes a
// metrics:update snapshot on every interval.
type Monitor struct {
	cfg       Config
	risk      RiskSource
	positions PositionSource
	balances  BalanceSource
	bus       *eventbus.Bus
	clock     clockwork.Clock
	log       logger.LoggerInterface
	metrics   *monitorMetrics

	mu      sync.Mutex
	perf    *domain.Performance
	opened  int
	balance decimal.Decimal

	runMu  sync.Mutex
	subs   []*eventbus.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a monitor. balances may be nil.
func NewMonitor(
	cfg Config,
	risk RiskSource,
	positions PositionSource,
	balances BalanceSource,
	bus *eventbus.Bus,
	clk clockwork.Clock,
	log logger.LoggerInterface,
) (*Monitor, error) {
	def := DefaultConfig()
	if cfg.MetricsInterval <= 0 {
		cfg.MetricsInterval = def.MetricsInterval
	}
	if cfg.BalanceInterval <= 0 {
		cfg.BalanceInterval = def.BalanceInterval
	}
	if cfg.RecentTrades <= 0 {
		cfg.RecentTrades = def.RecentTrades
	}

	m := &Monitor{
		cfg:       cfg,
		risk:      risk,
		positions: positions,
		balances:  balances,
		bus:       bus,
		clock:     clk,
		log:       log,
		perf:      domain.NewPerformance(clk.Now(), cfg.RecentTrades),
		balance:   decimal.Zero,
	}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return m, nil
}

func (m *Monitor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	m.metrics = &monitorMetrics{}

	m.metrics.trades, err = meter.Int64Counter(
		"trades_recorded_total",
		metric.WithDescription("Closed positions recorded as trades"),
		metric.WithUnit("{trade}"),
	)
	if err != nil {
		return err
	}

	m.metrics.totalProfit, err = meter.Float64ObservableGauge(
		"performance_total_profit",
		metric.WithDescription("Realized profit since start, in quote units"),
	)
	if err != nil {
		return err
	}

	m.metrics.winRate, err = meter.Float64ObservableGauge(
		"performance_win_rate",
		metric.WithDescription("Share of trades that closed in profit"),
	)
	if err != nil {
		return err
	}

	m.metrics.openPos, err = meter.Int64ObservableGauge(
		"performance_open_positions",
		metric.WithDescription("Positions currently open"),
		metric.WithUnit("{position}"),
	)
	if err != nil {
		return err
	}

	m.metrics.balance, err = meter.Float64ObservableGauge(
		"wallet_balance_sol",
		metric.WithDescription("Wallet balance"),
		metric.WithUnit("SOL"),
	)
	if err != nil {
		return err
	}

	m.metrics.registration, err = meter.RegisterCallback(m.observe,
		m.metrics.totalProfit, m.metrics.winRate, m.metrics.openPos, m.metrics.balance)
	return err
}

func (m *Monitor) observe(_ context.Context, o metric.Observer) error {
	s := m.Snapshot()
	o.ObserveFloat64(m.metrics.totalProfit, s.TotalProfit.InexactFloat64())
	o.ObserveFloat64(m.metrics.winRate, s.WinRate)
	o.ObserveInt64(m.metrics.openPos, int64(s.OpenPositions))
	o.ObserveFloat64(m.metrics.balance, s.WalletBalance.InexactFloat64())
	return nil
}

// Start subscribes to position events and starts the emitter and the
// balance poll.
func (m *Monitor) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.subs = []*eventbus.Subscription{
		m.bus.Subscribe(eventbus.TopicPositionOpen, "monitoring.opened", m.onOpen),
		m.bus.Subscribe(eventbus.TopicPositionClose, "monitoring.closed", m.onClose),
	}

	m.wg.Add(1)
	go m.emitLoop(ctx)

	if m.balances != nil && m.cfg.WalletAddress != "" {
		m.wg.Add(1)
		go m.balanceLoop(ctx)
	}
}

// Stop unsubscribes and waits for the background tasks.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	cancel, subs := m.cancel, m.subs
	m.cancel, m.subs = nil, nil
	m.runMu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Close releases the gauge callback.
func (m *Monitor) Close() error {
	m.Stop()
	if m.metrics.registration != nil {
		return m.metrics.registration.Unregister()
	}
	return nil
}

func (m *Monitor) onOpen(_ context.Context, ev eventbus.Event) {
	if _, ok := ev.Payload.(positionDomain.Position); !ok {
		return
	}
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
}

func (m *Monitor) onClose(ctx context.Context, ev eventbus.Event) {
	pos, ok := ev.Payload.(positionDomain.Position)
	if !ok {
		m.log.Warn(ctx, "unexpected position:close payload", "type", fmt.Sprintf("%T", ev.Payload))
		return
	}
	if !pos.EntryFilled {
		return
	}
	m.Record(ctx, TradeOf(pos))
}

// Record books a trade.
func (m *Monitor) Record(ctx context.Context, t domain.Trade) {
	m.mu.Lock()
	m.perf.Record(t)
	m.mu.Unlock()

	outcome := "loss"
	if t.Success {
		outcome = "win"
	}
	m.metrics.trades.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("type", t.Type),
	))
}

// TradeOf converts a closed position into a trade record.
func TradeOf(pos positionDomain.Position) domain.Trade {
	return domain.Trade{
		PositionID: pos.ID,
		Pool:       pos.Pool,
		Type:       string(pos.Type),
		Profit:     pos.RealizedPnL,
		Volume:     pos.Volume(),
		Reason:     pos.CloseReason,
		Success:    pos.RealizedPnL.IsPositive(),
		At:         pos.CloseTime,
	}
}

// Snapshot returns the current figures, including risk and position state.
func (m *Monitor) Snapshot() domain.Snapshot {
	m.mu.Lock()
	s := m.perf.Snapshot(m.clock.Now())
	s.OpenedPositions = m.opened
	s.WalletBalance = m.balance
	m.mu.Unlock()

	s.DailyVolume = decimal.Zero
	s.DailyProfitLoss = decimal.Zero
	if m.risk != nil {
		r := m.risk.Snapshot()
		s.DailyVolume = r.DailyVolume
		s.DailyProfitLoss = r.DailyProfitLoss
		s.RiskMode = string(r.Mode)
	}
	if m.positions != nil {
		s.OpenPositions = len(m.positions.Positions())
	}
	return s
}

// Emit publishes the current snapshot.
func (m *Monitor) Emit(ctx context.Context) {
	m.bus.Publish(ctx, eventbus.TopicMetricsUpdate, m.Snapshot())
}

func (m *Monitor) emitLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := m.clock.NewTicker(m.cfg.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Emit(ctx)
		}
	}
}

func (m *Monitor) balanceLoop(ctx context.Context) {
	defer m.wg.Done()
	m.refreshBalance(ctx)

	ticker := m.clock.NewTicker(m.cfg.BalanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.refreshBalance(ctx)
		}
	}
}

func (m *Monitor) refreshBalance(ctx context.Context) {
	lamports, err := m.balances.GetBalance(ctx, m.cfg.WalletAddress)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Error(ctx, "failed to update wallet balance", "error", err)
		}
		return
	}
	sol := decimal.New(int64(lamports), -9)

	m.mu.Lock()
	m.balance = sol
	m.mu.Unlock()
}
