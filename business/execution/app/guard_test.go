package app

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/pool-sniper/internal/apperror"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testGuard(clk clockwork.Clock) *Guard {
	return NewGuard(GuardConfig{MaxTransactionSize: d("0.3"), DailyLimit: d("1")}, clk)
}

func TestGuard_Admits(t *testing.T) {
	g := testGuard(clockwork.NewFakeClock())

	require.NoError(t, g.Guard("tx1", d("0.3")))
	assert.True(t, g.InFlight("tx1"))

	snap := g.Snapshot()
	assert.Equal(t, 1, snap.InFlight)
	assert.True(t, snap.Reserved.Equal(d("0.3")))
	assert.True(t, snap.Committed.IsZero())
}

func TestGuard_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(g *Guard)
		id     string
		amount string
		code   apperror.Code
	}{
		{
			name:   "duplicate in flight",
			setup:  func(g *Guard) { _ = g.Guard("tx1", d("0.1")) },
			id:     "tx1",
			amount: "0.1",
			code:   apperror.CodeDuplicateTransaction,
		},
		{
			name:   "too large",
			setup:  func(*Guard) {},
			id:     "tx1",
			amount: "0.31",
			code:   apperror.CodeTransactionTooLarge,
		},
		{
			name: "committed plus amount over daily limit",
			setup: func(g *Guard) {
				for _, id := range []string{"a", "b", "c"} {
					_ = g.Guard(id, d("0.3"))
					g.Complete(id, true)
				}
			},
			id:     "tx1",
			amount: "0.2",
			code:   apperror.CodeDailyLimitExceeded,
		},
		{
			name: "reserved exposure counts",
			setup: func(g *Guard) {
				for _, id := range []string{"a", "b", "c"} {
					_ = g.Guard(id, d("0.3"))
				}
			},
			id:     "tx1",
			amount: "0.2",
			code:   apperror.CodeDailyLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGuard(clockwork.NewFakeClock())
			tt.setup(g)

			err := g.Guard(tt.id, d(tt.amount))
			require.Error(t, err)
			assert.True(t, apperror.IsLimitExceeded(err))
			assert.Equal(t, tt.code, apperror.GetCode(err))
		})
	}
}

func TestGuard_ExactlyAtLimit(t *testing.T) {
	g := testGuard(clockwork.NewFakeClock())
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.Guard(id, d("0.3")))
		g.Complete(id, true)
	}
	assert.NoError(t, g.Guard("d", d("0.1")))
}

func TestGuard_CompleteOnce(t *testing.T) {
	g := testGuard(clockwork.NewFakeClock())
	require.NoError(t, g.Guard("tx1", d("0.2")))

	assert.True(t, g.Complete("tx1", true))
	assert.False(t, g.Complete("tx1", true))
	assert.False(t, g.InFlight("tx1"))
	assert.True(t, g.Snapshot().Committed.Equal(d("0.2")))

	// id can be reused once completed
	assert.NoError(t, g.Guard("tx1", d("0.1")))
}

func TestGuard_FailureReleasesWithoutCommitting(t *testing.T) {
	g := testGuard(clockwork.NewFakeClock())
	require.NoError(t, g.Guard("tx1", d("0.3")))
	g.Complete("tx1", false)

	snap := g.Snapshot()
	assert.True(t, snap.Committed.IsZero())
	assert.True(t, snap.Reserved.IsZero())
}

func TestGuard_DayRollover(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local))
	g := testGuard(clk)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.Guard(id, d("0.3")))
		g.Complete(id, true)
	}
	require.Error(t, g.Guard("d", d("0.2")))

	clk.Advance(24 * time.Hour)

	assert.NoError(t, g.Guard("d", d("0.2")))
	snap := g.Snapshot()
	assert.Equal(t, "2024-03-02", snap.Day)
	assert.True(t, snap.Committed.IsZero())
}
