package blockhash

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/pool-sniper/business/connection/infra/solana"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/logger"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSource) GetLatestBlockhash(context.Context) (solana.Blockhash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return solana.Blockhash{}, f.err
	}
	hashes := []string{"hashA", "hashB", "hashC"}
	return solana.Blockhash{Hash: hashes[(f.calls-1)%len(hashes)], Slot: uint64(f.calls)}, nil
}

func newOracle(t *testing.T, src Source, clk clockwork.Clock) *Oracle {
	t.Helper()
	o, err := New(Config{TTL: 10 * time.Second}, src, clk, logger.New(io.Discard, logger.LevelDebug, "test", nil))
	require.NoError(t, err)
	return o
}

func TestOracle_CachesUntilTTL(t *testing.T) {
	clk := clockwork.NewFakeClock()
	src := &fakeSource{}
	o := newOracle(t, src, clk)

	h1, err := o.Latest(context.Background())
	require.NoError(t, err)
	h2, err := o.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hashA", h1)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, src.calls)

	clk.Advance(11 * time.Second)
	h3, err := o.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hashB", h3)
	assert.Equal(t, 2, src.calls)
}

func TestOracle_Invalidate(t *testing.T) {
	src := &fakeSource{}
	o := newOracle(t, src, clockwork.NewFakeClock())

	_, err := o.Latest(context.Background())
	require.NoError(t, err)
	o.Invalidate()
	h, err := o.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hashB", h)
}

func TestOracle_FetchError(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	o := newOracle(t, src, clockwork.NewFakeClock())

	_, err := o.Latest(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeRPCError, apperror.GetCode(err))
	assert.True(t, apperror.IsConnection(err))
}
