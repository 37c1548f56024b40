// Package app contains the risk guard and the admission stage that sits
// between opportunities and positions.
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

	"github.com/fd1az/pool-sniper/business/risk/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/logger"
)

const meterName = "github.com/fd1az/pool-sniper/business/risk"

// GuardConfig holds admission limits.
type GuardConfig struct {
	MinTradeInterval       time.Duration
	MaxConsecutiveLosses   int
	MaxDailyLossPercentage decimal.Decimal
	Cooldown               time.Duration
	// Location decides where midnight falls. Nil means time.Local.
	Location *time.Location
}

type guardMetrics struct {
	rejections metric.Int64Counter
	cooldowns  metric.Int64Counter
}

// Guard is the NORMAL/COOLDOWN state machine gating new trades.
type Guard struct {
	cfg     GuardConfig
	clock   clockwork.Clock
	log     logger.LoggerInterface
	metrics *guardMetrics

	mu        sync.Mutex
	state     domain.State
	lastTrade map[string]time.Time
	cooldown  clockwork.Timer
	stopped   bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewGuard creates a guard in NORMAL mode.
func NewGuard(cfg GuardConfig, clk clockwork.Clock, log logger.LoggerInterface) (*Guard, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	g := &Guard{
		cfg:       cfg,
		clock:     clk,
		log:       log,
		lastTrade: make(map[string]time.Time),
	}
	g.state = domain.State{
		Mode:            domain.ModeNormal,
		DailyVolume:     decimal.Zero,
		DailyProfitLoss: decimal.Zero,
		LastReset:       g.now(),
	}
	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return g, nil
}

func (g *Guard) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &guardMetrics{}

	g.metrics.rejections, err = meter.Int64Counter(
		"risk_rejections_total",
		metric.WithDescription("Trades refused by the risk guard"),
		metric.WithUnit("{trade}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cooldowns, err = meter.Int64Counter(
		"risk_cooldowns_total",
		metric.WithDescription("Transitions into cooldown"),
		metric.WithUnit("{cooldown}"),
	)
	return err
}

func (g *Guard) now() time.Time {
	return g.clock.Now().In(g.cfg.Location)
}

// Start schedules the daily reset.
func (g *Guard) Start(ctx context.Context) {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	if g.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.done = make(chan struct{})

	g.mu.Lock()
	g.stopped = false
	g.mu.Unlock()

	go g.dailyReset(ctx, g.done)
}

// Stop cancels the daily reset and any pending cooldown timer. No timer
// callback changes state after Stop returns.
func (g *Guard) Stop() {
	g.runMu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel, g.done = nil, nil
	g.runMu.Unlock()

	g.mu.Lock()
	g.stopped = true
	if g.cooldown != nil {
		g.cooldown.Stop()
	}
	g.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// dailyReset recomputes the delay to the next midnight after every reset.
func (g *Guard) dailyReset(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		now := g.now()
		select {
		case <-ctx.Done():
			return
		case <-g.clock.After(domain.NextMidnight(now).Sub(now)):
			g.ResetDay()
		}
	}
}

// ResetDay zeroes the daily volume and P&L.
func (g *Guard) ResetDay() {
	g.mu.Lock()
	prev := g.state
	g.state.DailyVolume = decimal.Zero
	g.state.DailyProfitLoss = decimal.Zero
	g.state.LastReset = g.now()
	g.mu.Unlock()

	g.log.Info(context.Background(), "daily risk counters reset",
		"volume", prev.DailyVolume.String(), "pnl", prev.DailyProfitLoss.String())
}

// CanTrade reports whether a new trade on pool may be admitted. It does not
// change state.
func (g *Guard) CanTrade(pool string) error {
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.canTradeLocked(pool, now)
}

// Reserve admits a trade on pool like CanTrade and stamps the pool's last
// trade time, so the next admission on that pool waits out the interval.
// release restores the previous stamp for a trade that never opened.
func (g *Guard) Reserve(pool string) (release func(), err error) {
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.canTradeLocked(pool, now); err != nil {
		return func() {}, err
	}
	prev, had := g.lastTrade[pool]
	g.lastTrade[pool] = now

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if !g.lastTrade[pool].Equal(now) {
			return
		}
		if had {
			g.lastTrade[pool] = prev
		} else {
			delete(g.lastTrade, pool)
		}
	}, nil
}

func (g *Guard) canTradeLocked(pool string, now time.Time) error {
	if g.state.InCooldown(now) {
		g.metrics.rejections.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("reason", "cooldown")))
		return apperror.Limit(apperror.CodeCooldownActive,
			fmt.Sprintf("%s: until %s", pool, g.state.CooldownUntil.Format(time.RFC3339)))
	}
	if last, ok := g.lastTrade[pool]; ok && now.Sub(last) < g.cfg.MinTradeInterval {
		g.metrics.rejections.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("reason", "interval")))
		return apperror.Limit(apperror.CodeTradeIntervalNotMet,
			fmt.Sprintf("%s: last trade %s ago", pool, now.Sub(last)))
	}
	return nil
}

// RecordTrade books a finished trade. Bookkeeping happens in every mode;
// only a NORMAL guard can enter cooldown.
func (g *Guard) RecordTrade(pool string, pnl, volume decimal.Decimal) {
	now := g.clock.Now()

	g.mu.Lock()
	g.state.DailyVolume = g.state.DailyVolume.Add(volume)
	g.state.DailyProfitLoss = g.state.DailyProfitLoss.Add(pnl)
	g.state.TotalTrades++
	g.lastTrade[pool] = now
	if pnl.IsNegative() {
		g.state.ConsecutiveLosses++
	} else {
		g.state.ConsecutiveLosses = 0
	}

	reason := ""
	if g.state.Mode == domain.ModeNormal && !g.stopped {
		switch {
		case g.cfg.MaxConsecutiveLosses > 0 && g.state.ConsecutiveLosses >= g.cfg.MaxConsecutiveLosses:
			reason = "consecutive losses"
		case g.state.DailyLossBreached(g.cfg.MaxDailyLossPercentage):
			reason = "daily loss"
		}
		if reason != "" {
			g.enterCooldownLocked(now)
		}
	}
	st := g.state
	g.mu.Unlock()

	if reason != "" {
		g.metrics.cooldowns.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("reason", reason)))
		g.log.Warn(context.Background(), "risk cooldown started",
			"reason", reason,
			"losses", st.ConsecutiveLosses,
			"daily_pnl", st.DailyProfitLoss.String(),
			"daily_volume", st.DailyVolume.String(),
			"until", st.CooldownUntil)
	}
}

func (g *Guard) enterCooldownLocked(now time.Time) {
	g.state.Mode = domain.ModeCooldown
	g.state.CooldownUntil = now.Add(g.cfg.Cooldown)
	if g.cooldown != nil {
		g.cooldown.Stop()
	}
	g.cooldown = g.clock.AfterFunc(g.cfg.Cooldown, g.endCooldown)
}

func (g *Guard) endCooldown() {
	g.mu.Lock()
	if g.stopped || g.state.Mode != domain.ModeCooldown {
		g.mu.Unlock()
		return
	}
	g.state.Mode = domain.ModeNormal
	g.state.ConsecutiveLosses = 0
	g.state.CooldownUntil = time.Time{}
	g.cooldown = nil
	g.mu.Unlock()

	g.log.Info(context.Background(), "risk cooldown ended")
}

// Snapshot returns the current state.
func (g *Guard) Snapshot() domain.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
