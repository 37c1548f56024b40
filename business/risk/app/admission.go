package app

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
)

// PositionOpener turns an admitted opportunity into a position.
type PositionOpener interface {
	Open(ctx context.Context, opp strategy.Opportunity) error
}

// OpenerFunc adapts a function to PositionOpener.
type OpenerFunc func(ctx context.Context, opp strategy.Opportunity) error

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, opp strategy.Opportunity) error {
	return f(ctx, opp)
}

// Outcome is a realized trade result as reported on position:close.
// Positions whose entry never filled are not trades.
type Outcome interface {
	TradeFilled() bool
	TradePool() string
	TradePnL() decimal.Decimal
	TradeVolume() decimal.Decimal
}

// Admission gates opportunities through the guard and books closed
// positions back into it.
type Admission struct {
	guard  *Guard
	opener PositionOpener
	bus    *eventbus.Bus
	log    logger.LoggerInterface

	mu   sync.Mutex
	subs []*eventbus.Subscription
}

// NewAdmission creates the admission stage.
func NewAdmission(guard *Guard, opener PositionOpener, bus *eventbus.Bus, log logger.LoggerInterface) *Admission {
	return &Admission{guard: guard, opener: opener, bus: bus, log: log}
}

// Start subscribes to opportunities and position closes.
func (a *Admission) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.subs != nil {
		return
	}
	a.subs = []*eventbus.Subscription{
		a.bus.Subscribe(eventbus.TopicOpportunity, "risk.admission", a.onOpportunity),
		a.bus.Subscribe(eventbus.TopicPositionClose, "risk.outcomes", a.onClose),
	}
}

// Stop unsubscribes and waits for running handlers.
func (a *Admission) Stop() {
	a.mu.Lock()
	subs := a.subs
	a.subs = nil
	a.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
}

// Admit reserves opp's pool with the guard and opens a position for it. The
// reservation starts the pool's trade interval; it is handed back when the
// open fails.
func (a *Admission) Admit(ctx context.Context, opp strategy.Opportunity) error {
	release, err := a.guard.Reserve(opp.Pool)
	if err != nil {
		return err
	}
	if err := a.opener.Open(ctx, opp); err != nil {
		release()
		return err
	}
	return nil
}

func (a *Admission) onOpportunity(ctx context.Context, ev eventbus.Event) {
	opp, ok := ev.Payload.(strategy.Opportunity)
	if !ok {
		return
	}
	err := a.Admit(ctx, opp)
	switch {
	case err == nil:
		a.log.Info(ctx, "opportunity admitted", "id", opp.ID, "type", opp.Type, "pool", opp.Pool)
	case apperror.IsLimitExceeded(err):
		a.log.Debug(ctx, "opportunity rejected", "id", opp.ID, "code", apperror.GetCode(err), "error", err)
	default:
		a.log.Warn(ctx, "open position failed", "id", opp.ID, "error", err)
	}
}

func (a *Admission) onClose(ctx context.Context, ev eventbus.Event) {
	out, ok := ev.Payload.(Outcome)
	if !ok || !out.TradeFilled() {
		return
	}
	a.guard.RecordTrade(out.TradePool(), out.TradePnL(), out.TradeVolume())
}
