package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/pool-sniper/business/risk/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testConfig() GuardConfig {
	return GuardConfig{
		MinTradeInterval:       10 * time.Second,
		MaxConsecutiveLosses:   3,
		MaxDailyLossPercentage: d("0.05"),
		Cooldown:               5 * time.Minute,
		Location:               time.UTC,
	}
}

func newGuard(t *testing.T, clk clockwork.Clock) *Guard {
	t.Helper()
	g, err := NewGuard(testConfig(), clk, testLogger())
	require.NoError(t, err)
	return g
}

func TestGuard_ConsecutiveLossesTriggerCooldown(t *testing.T) {
	clk := clockwork.NewFakeClock()
	g := newGuard(t, clk)

	for i := 0; i < 3; i++ {
		require.NoError(t, g.CanTrade("P9"))
		g.RecordTrade("P1", d("-1"), d("1000"))
	}

	st := g.Snapshot()
	assert.Equal(t, domain.ModeCooldown, st.Mode)
	assert.Equal(t, 3, st.ConsecutiveLosses)
	for _, pool := range []string{"P1", "P2", "P9"} {
		err := g.CanTrade(pool)
		require.Error(t, err)
		assert.Equal(t, apperror.CodeCooldownActive, apperror.GetCode(err))
		assert.True(t, apperror.IsLimitExceeded(err))
	}

	clk.Advance(5 * time.Minute)
	require.Eventually(t, func() bool { return g.Snapshot().Mode == domain.ModeNormal }, time.Second, time.Millisecond)
	assert.Equal(t, 0, g.Snapshot().ConsecutiveLosses)
	assert.NoError(t, g.CanTrade("P2"))
}

func TestGuard_DailyLossTriggersCooldown(t *testing.T) {
	g := newGuard(t, clockwork.NewFakeClock())

	g.RecordTrade("P1", d("-6"), d("100"))

	st := g.Snapshot()
	assert.Equal(t, domain.ModeCooldown, st.Mode)
	assert.Equal(t, 1, st.ConsecutiveLosses)
	assert.Error(t, g.CanTrade("P2"))
}

func TestGuard_DailyLossAtLimitStaysNormal(t *testing.T) {
	g := newGuard(t, clockwork.NewFakeClock())
	g.RecordTrade("P1", d("-5"), d("100"))
	assert.Equal(t, domain.ModeNormal, g.Snapshot().Mode)
}

func TestGuard_LossCounter(t *testing.T) {
	g := newGuard(t, clockwork.NewFakeClock())

	steps := []struct {
		pnl  string
		want int
	}{
		{"-1", 1},
		{"-0.5", 2},
		{"0", 0},
		{"-2", 1},
		{"3", 0},
	}
	for _, s := range steps {
		g.RecordTrade("P1", d(s.pnl), d("1000"))
		assert.Equal(t, s.want, g.Snapshot().ConsecutiveLosses, "after pnl %s", s.pnl)
	}
}

func TestGuard_CanTradeIsPure(t *testing.T) {
	clk := clockwork.NewFakeClock()
	g := newGuard(t, clk)
	g.RecordTrade("P1", d("1"), d("10"))

	before := g.Snapshot()
	first := g.CanTrade("P1")
	second := g.CanTrade("P1")
	assert.Equal(t, apperror.GetCode(first), apperror.GetCode(second))
	assert.Equal(t, before, g.Snapshot())
}

func TestGuard_TradeInterval(t *testing.T) {
	clk := clockwork.NewFakeClock()
	g := newGuard(t, clk)

	g.RecordTrade("P1", d("1"), d("10"))

	err := g.CanTrade("P1")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeTradeIntervalNotMet, apperror.GetCode(err))
	assert.NoError(t, g.CanTrade("P2"))

	clk.Advance(10 * time.Second)
	assert.NoError(t, g.CanTrade("P1"))
}

func TestGuard_Reserve(t *testing.T) {
	clk := clockwork.NewFakeClock()
	g := newGuard(t, clk)

	release, err := g.Reserve("P1")
	require.NoError(t, err)
	_, err = g.Reserve("P1")
	assert.Equal(t, apperror.CodeTradeIntervalNotMet, apperror.GetCode(err))

	release()
	clk.Advance(time.Second)
	_, err = g.Reserve("P1")
	require.NoError(t, err)

	// a stale release never clears a newer stamp
	release()
	assert.Error(t, g.CanTrade("P1"))

	clk.Advance(10 * time.Second)
	_, err = g.Reserve("P1")
	assert.NoError(t, err)
}

func TestGuard_BookkeepingDuringCooldown(t *testing.T) {
	clk := clockwork.NewFakeClock()
	g := newGuard(t, clk)
	g.RecordTrade("P1", d("-6"), d("100"))
	until := g.Snapshot().CooldownUntil

	clk.Advance(time.Minute)
	g.RecordTrade("P2", d("-1"), d("50"))
	g.RecordTrade("P2", d("2"), d("50"))

	st := g.Snapshot()
	assert.Equal(t, domain.ModeCooldown, st.Mode)
	assert.True(t, st.DailyVolume.Equal(d("200")))
	assert.True(t, st.DailyProfitLoss.Equal(d("-5")))
	assert.Equal(t, 0, st.ConsecutiveLosses)
	assert.Equal(t, 3, st.TotalTrades)
	assert.Equal(t, until, st.CooldownUntil, "cooldown is not extended")

	// a profitable trade does not end the cooldown
	assert.Error(t, g.CanTrade("P3"))
}

func TestGuard_DailyReset(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC))
	g := newGuard(t, clk)
	g.Start(context.Background())
	defer g.Stop()

	g.RecordTrade("P1", d("-1"), d("100"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clk.BlockUntilContext(ctx, 1))
	clk.Advance(time.Hour)

	require.Eventually(t, func() bool { return g.Snapshot().DailyVolume.IsZero() }, time.Second, time.Millisecond)
	st := g.Snapshot()
	assert.True(t, st.DailyProfitLoss.IsZero())
	assert.Equal(t, 1, st.ConsecutiveLosses, "loss streak survives the day boundary")
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), st.LastReset)

	// the next reset is a full day later
	g.RecordTrade("P1", d("1"), d("40"))
	require.NoError(t, clk.BlockUntilContext(ctx, 1))
	clk.Advance(23 * time.Hour)
	assert.Never(t, func() bool { return g.Snapshot().DailyVolume.IsZero() }, 50*time.Millisecond, 5*time.Millisecond)
	clk.Advance(time.Hour)
	require.Eventually(t, func() bool { return g.Snapshot().DailyVolume.IsZero() }, time.Second, time.Millisecond)
}

func TestGuard_StopCancelsCooldownTimer(t *testing.T) {
	clk := clockwork.NewFakeClock()
	g := newGuard(t, clk)
	g.Start(context.Background())

	g.RecordTrade("P1", d("-6"), d("100"))
	g.Stop()

	clk.Advance(10 * time.Minute)
	assert.Never(t, func() bool { return g.Snapshot().Mode == domain.ModeNormal }, 50*time.Millisecond, 5*time.Millisecond)
}
