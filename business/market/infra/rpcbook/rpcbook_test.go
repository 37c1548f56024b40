package rpcbook

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/pool-sniper/business/connection/infra/solana"
	"github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
)

func lvl(price, size string) domain.Level {
	return domain.Level{Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size)}
}

func sampleBook() domain.OrderBook {
	return domain.OrderBook{
		Bids: []domain.Level{lvl("100.25", "1.5"), lvl("99", "3")},
		Asks: []domain.Level{lvl("100.5", "2")},
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	data, err := Encode(sampleBook(), 4, 6)
	require.NoError(t, err)
	assert.Len(t, data, headerLen+3*levelLen)

	got, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, got.Bids, 2)
	require.Len(t, got.Asks, 1)
	assert.True(t, got.Bids[0].Price.Equal(decimal.RequireFromString("100.25")))
	assert.True(t, got.Bids[0].Size.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, got.Asks[0].Price.Equal(decimal.RequireFromString("100.5")))
}

func TestDecode_Malformed(t *testing.T) {
	valid, err := Encode(sampleBook(), 2, 2)
	require.NoError(t, err)

	badVersion := append([]byte(nil), valid...)
	badVersion[0] = 9

	tests := map[string][]byte{
		"empty":       nil,
		"short":       valid[:4],
		"truncated":   valid[:len(valid)-1],
		"bad version": badVersion,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}
}

func TestEncode_ExcessPrecision(t *testing.T) {
	_, err := Encode(domain.OrderBook{Bids: []domain.Level{lvl("1.001", "1")}}, 2, 0)
	assert.Error(t, err)
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	info  solana.AccountInfo
}

func (f *fakeFetcher) GetAccountInfo(context.Context, string) (solana.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.info, nil
}

func TestLoader_CoalescesWithinTTL(t *testing.T) {
	data, err := Encode(sampleBook(), 2, 2)
	require.NoError(t, err)

	clk := clockwork.NewFakeClock()
	fetcher := &fakeFetcher{info: solana.AccountInfo{Exists: true, Slot: 10, Data: data}}
	loader := NewLoader(fetcher, 250*time.Millisecond, clk)
	ctx := context.Background()

	_, slot, err := loader.Load(ctx, "PoolA", 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), slot)

	_, _, err = loader.Load(ctx, "PoolA", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls, "same slot inside the window is served from cache")

	_, _, err = loader.Load(ctx, "PoolA", 11)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls, "a newer slot bypasses the cache")

	clk.Advance(time.Second)
	_, _, err = loader.Load(ctx, "PoolA", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, fetcher.calls, "expired entries are refetched")
}

func TestLoader_MissingAccount(t *testing.T) {
	loader := NewLoader(&fakeFetcher{}, time.Second, clockwork.NewFakeClock())
	_, _, err := loader.Load(context.Background(), "Gone", 0)
	assert.Equal(t, apperror.CodeNotFound, apperror.GetCode(err))
}
