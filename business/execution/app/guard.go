package app

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/internal/apperror"
)

const dayLayout = "2006-01-02"

// GuardConfig holds the exposure limits.
type GuardConfig struct {
	MaxTransactionSize decimal.Decimal
	DailyLimit         decimal.Decimal
}

// GuardSnapshot is a point-in-time view of exposure.
type GuardSnapshot struct {
	InFlight  int
	Reserved  decimal.Decimal
	Committed decimal.Decimal
	Day       string
}

// Guard admits transactions against per-transaction and daily exposure
// limits and tracks the ones in flight. Daily exposure counts committed
// amounts for the current calendar day plus everything in flight.
type Guard struct {
	cfg   GuardConfig
	clock clockwork.Clock

	mu        sync.Mutex
	inFlight  map[string]decimal.Decimal
	committed map[string]decimal.Decimal // day -> amount
}

// NewGuard creates a guard.
func NewGuard(cfg GuardConfig, clk clockwork.Clock) *Guard {
	return &Guard{
		cfg:       cfg,
		clock:     clk,
		inFlight:  make(map[string]decimal.Decimal),
		committed: make(map[string]decimal.Decimal),
	}
}

// Guard admits id for amount or returns a LimitExceeded error. An admitted
// id is in flight until Complete.
func (g *Guard) Guard(id string, amount decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, dup := g.inFlight[id]; dup {
		return apperror.Limit(apperror.CodeDuplicateTransaction, id)
	}
	if amount.GreaterThan(g.cfg.MaxTransactionSize) {
		return apperror.Limit(apperror.CodeTransactionTooLarge,
			fmt.Sprintf("%s: %s > %s", id, amount, g.cfg.MaxTransactionSize))
	}
	day := g.today()
	exposure := g.committed[day].Add(g.reserved()).Add(amount)
	if exposure.GreaterThan(g.cfg.DailyLimit) {
		return apperror.Limit(apperror.CodeDailyLimitExceeded,
			fmt.Sprintf("%s: daily exposure %s > %s", id, exposure, g.cfg.DailyLimit))
	}

	g.inFlight[id] = amount
	return nil
}

// Complete releases id. A successful transaction's amount is committed to
// today's exposure. It reports false when id was not in flight.
func (g *Guard) Complete(id string, success bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	amount, ok := g.inFlight[id]
	if !ok {
		return false
	}
	delete(g.inFlight, id)
	if success {
		day := g.today()
		g.committed[day] = g.committed[day].Add(amount)
	}
	return true
}

// InFlight reports whether id is awaiting Complete.
func (g *Guard) InFlight(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inFlight[id]
	return ok
}

// Snapshot returns current exposure.
func (g *Guard) Snapshot() GuardSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	day := g.today()
	return GuardSnapshot{
		InFlight:  len(g.inFlight),
		Reserved:  g.reserved(),
		Committed: g.committed[day],
		Day:       day,
	}
}

func (g *Guard) reserved() decimal.Decimal {
	total := decimal.Zero
	for _, a := range g.inFlight {
		total = total.Add(a)
	}
	return total
}

// today also drops committed totals from earlier days.
func (g *Guard) today() string {
	day := g.clock.Now().Local().Format(dayLayout)
	for d := range g.committed {
		if d != day {
			delete(g.committed, d)
		}
	}
	return day
}
