package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/eventbus"
)

type recordingOpener struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (r *recordingOpener) Open(_ context.Context, opp strategy.Opportunity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, opp.ID)
	return r.err
}

func (r *recordingOpener) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.opened)
}

type outcome struct {
	filled bool
	pool   string
	pnl    decimal.Decimal
	volume decimal.Decimal
}

func (o outcome) TradeFilled() bool            { return o.filled }
func (o outcome) TradePool() string            { return o.pool }
func (o outcome) TradePnL() decimal.Decimal    { return o.pnl }
func (o outcome) TradeVolume() decimal.Decimal { return o.volume }

func newAdmission(t *testing.T) (*Admission, *Guard, *recordingOpener, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New(testLogger())
	t.Cleanup(bus.Close)
	g := newGuard(t, clockwork.NewFakeClock())
	opener := &recordingOpener{}
	a := NewAdmission(g, opener, bus, testLogger())
	a.Start()
	t.Cleanup(a.Stop)
	return a, g, opener, bus
}

func TestAdmission_OpensAdmittedOpportunities(t *testing.T) {
	_, _, opener, bus := newAdmission(t)

	bus.Publish(context.Background(), eventbus.TopicOpportunity, strategy.Opportunity{ID: "o1", Pool: "P1"})
	require.Eventually(t, func() bool { return opener.count() == 1 }, time.Second, time.Millisecond)
}

func TestAdmission_SkipsDuringCooldown(t *testing.T) {
	a, g, opener, bus := newAdmission(t)
	g.RecordTrade("P1", d("-6"), d("100"))

	err := a.Admit(context.Background(), strategy.Opportunity{ID: "o1", Pool: "P2"})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeCooldownActive, apperror.GetCode(err))

	bus.Publish(context.Background(), eventbus.TopicOpportunity, strategy.Opportunity{ID: "o2", Pool: "P2"})
	assert.Never(t, func() bool { return opener.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestAdmission_OpenerErrorPropagates(t *testing.T) {
	a, _, opener, _ := newAdmission(t)
	opener.err = errors.New("boom")

	assert.Error(t, a.Admit(context.Background(), strategy.Opportunity{ID: "o1", Pool: "P1"}))
}

func TestAdmission_TradeIntervalSpacesAdmits(t *testing.T) {
	a, g, opener, _ := newAdmission(t)

	require.NoError(t, a.Admit(context.Background(), strategy.Opportunity{ID: "o1", Pool: "P1"}))
	err := a.Admit(context.Background(), strategy.Opportunity{ID: "o2", Pool: "P1"})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeTradeIntervalNotMet, apperror.GetCode(err))
	assert.Equal(t, 1, opener.count())

	require.NoError(t, a.Admit(context.Background(), strategy.Opportunity{ID: "o3", Pool: "P2"}))
	assert.Equal(t, 0, g.Snapshot().TotalTrades, "admission is not a finished trade")
}

func TestAdmission_ConcurrentAdmitsOnePool(t *testing.T) {
	a, _, opener, _ := newAdmission(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Admit(context.Background(), strategy.Opportunity{ID: fmt.Sprintf("o%d", i), Pool: "P1"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, opener.count())
}

func TestAdmission_FailedOpenReleasesPool(t *testing.T) {
	a, g, opener, _ := newAdmission(t)
	opener.err = errors.New("boom")

	require.Error(t, a.Admit(context.Background(), strategy.Opportunity{ID: "o1", Pool: "P1"}))
	assert.NoError(t, g.CanTrade("P1"))

	opener.err = nil
	require.NoError(t, a.Admit(context.Background(), strategy.Opportunity{ID: "o2", Pool: "P1"}))
	assert.Error(t, g.CanTrade("P1"))
}

func TestAdmission_RecordsClosedPositions(t *testing.T) {
	_, g, _, bus := newAdmission(t)

	bus.Publish(context.Background(), eventbus.TopicPositionClose,
		outcome{filled: true, pool: "P1", pnl: d("-2"), volume: d("40")})
	bus.Publish(context.Background(), eventbus.TopicPositionClose,
		outcome{filled: false, pool: "P1", pnl: d("0"), volume: d("0")})
	bus.Publish(context.Background(), eventbus.TopicPositionClose, "not an outcome")

	require.Eventually(t, func() bool { return g.Snapshot().TotalTrades == 1 }, time.Second, time.Millisecond)
	st := g.Snapshot()
	assert.True(t, st.DailyVolume.Equal(d("40")))
	assert.True(t, st.DailyProfitLoss.Equal(d("-2")))
	assert.Error(t, g.CanTrade("P1"), "trade interval applies after the close")
	assert.Never(t, func() bool { return g.Snapshot().TotalTrades > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}
