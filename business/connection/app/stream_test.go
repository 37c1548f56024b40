package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
)

func newStream(t *testing.T, cfg StreamConfig) (*StreamSupervisor, *fakeStream, *StateTracker, *clockwork.FakeClock) {
	t.Helper()
	clk := clockwork.NewFakeClock()
	tracker := NewStateTracker(&recordingBus{}, clk)
	transport := &fakeStream{}
	s := NewStreamSupervisor(cfg, transport, tracker, clk, testLogger())
	t.Cleanup(func() { _ = s.Stop() })
	return s, transport, tracker, clk
}

func TestStream_DispatchesByAddress(t *testing.T) {
	s, transport, tracker, _ := newStream(t, DefaultStreamConfig())
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	assert.True(t, tracker.Snapshot().WSConnected)

	var mu sync.Mutex
	var got []domain.AccountChange
	_, err := s.SubscribeAccount(ctx, "PoolA", func(_ context.Context, c domain.AccountChange) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})
	require.NoError(t, err)

	transport.notify(ctx, domain.AccountChange{Address: "PoolB", Slot: 1})
	transport.notify(ctx, domain.AccountChange{Address: "PoolA", Slot: 2})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].Slot)
}

func TestStream_ResubscribesAfterReconnect(t *testing.T) {
	cfg := DefaultStreamConfig()
	s, transport, tracker, clk := newStream(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Start(ctx))

	_, err := s.SubscribeAccount(ctx, "PoolA", func(context.Context, domain.AccountChange) {})
	require.NoError(t, err)
	_, err = s.SubscribeAccount(ctx, "PoolB", func(context.Context, domain.AccountChange) {})
	require.NoError(t, err)
	require.Equal(t, 2, transport.subscribeCount())

	transport.disconnect(assert.AnError)
	assert.False(t, tracker.Snapshot().WSConnected)

	// heartbeat ticker plus the reconnect timer
	require.NoError(t, clk.BlockUntilContext(ctx, 2))
	clk.Advance(cfg.ReconnectBase)

	require.Eventually(t, func() bool {
		return transport.subscribeCount() == 4 && tracker.Snapshot().WSConnected
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, s.Subscriptions())
}

func TestStream_ReconnectsExhausted(t *testing.T) {
	cfg := DefaultStreamConfig()
	cfg.MaxReconnects = 2
	s, transport, tracker, clk := newStream(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport.setOpenErr(assert.AnError)
	err := s.Start(ctx)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeStreamError, apperror.GetCode(err))

	require.NoError(t, clk.BlockUntilContext(ctx, 2))
	clk.Advance(cfg.ReconnectBase)
	require.Eventually(t, func() bool { return transport.openCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, clk.BlockUntilContext(ctx, 2))
	clk.Advance(2 * cfg.ReconnectBase)

	require.Eventually(t, func() bool { return tracker.Snapshot().Fatal }, time.Second, 5*time.Millisecond)
	st := tracker.Snapshot()
	assert.Equal(t, domain.ReasonStreamExhausted, st.Reason)
	assert.False(t, st.WSConnected)
	assert.Equal(t, 3, transport.openCount())
}

func TestStream_SubscribeWhileDownIsDeferred(t *testing.T) {
	s, transport, _, _ := newStream(t, DefaultStreamConfig())

	id, err := s.SubscribeAccount(context.Background(), "PoolA", func(context.Context, domain.AccountChange) {})
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Zero(t, transport.subscribeCount())

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, transport.subscribeCount())
}

func TestStream_Unsubscribe(t *testing.T) {
	s, transport, _, _ := newStream(t, DefaultStreamConfig())
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	id, err := s.SubscribeAccount(ctx, "PoolA", func(context.Context, domain.AccountChange) {})
	require.NoError(t, err)

	require.NoError(t, s.Unsubscribe(ctx, id))
	require.NoError(t, s.Unsubscribe(ctx, id))
	assert.Zero(t, s.Subscriptions())
	assert.Equal(t, []uint64{1}, transport.unsubscribed)
}

func TestStream_StopClosesTransport(t *testing.T) {
	s, transport, _, clk := newStream(t, DefaultStreamConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Start(ctx))
	transport.disconnect(assert.AnError)
	require.NoError(t, clk.BlockUntilContext(ctx, 2))

	require.NoError(t, s.Stop())
	assert.True(t, transport.closed)

	clk.Advance(time.Hour)
	assert.Equal(t, 1, transport.openCount(), "no reconnect after stop")

	// disconnects after stop are ignored
	transport.disconnect(assert.AnError)
}
