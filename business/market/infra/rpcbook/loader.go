package rpcbook

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fd1az/pool-sniper/business/connection/infra/solana"
	"github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/cache"
)

// AccountFetcher reads raw account data.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, address string) (solana.AccountInfo, error)
}

type cachedBook struct {
	book domain.OrderBook
	slot uint64
}

// Loader fetches pool accounts and decodes them. Reads are cached for a short
// TTL so a burst of notifications for one slot costs one RPC call.
type Loader struct {
	fetcher AccountFetcher
	cache   *cache.Cache[string, cachedBook]
}

// NewLoader creates a loader with the given coalescing window.
func NewLoader(fetcher AccountFetcher, ttl time.Duration, clk clockwork.Clock) *Loader {
	return &Loader{
		fetcher: fetcher,
		cache:   cache.New[string, cachedBook](ttl, cache.WithClock(clk)),
	}
}

// Load returns the book for address. A cached read is used only if it is at
// least as recent as minSlot.
func (l *Loader) Load(ctx context.Context, address string, minSlot uint64) (domain.OrderBook, uint64, error) {
	if hit, ok := l.cache.Get(address); ok && hit.slot >= minSlot {
		return hit.book.Clone(), hit.slot, nil
	}

	info, err := l.fetcher.GetAccountInfo(ctx, address)
	if err != nil {
		return domain.OrderBook{}, 0, err
	}
	if !info.Exists {
		return domain.OrderBook{}, 0, apperror.NotFound(apperror.CodeNotFound, "pool account "+address)
	}

	book, err := Decode(info.Data)
	if err != nil {
		return domain.OrderBook{}, 0, apperror.Wrap(err, apperror.CodeInvalidOrderBook, address)
	}

	l.cache.Set(address, cachedBook{book: book, slot: info.Slot})
	return book.Clone(), info.Slot, nil
}

// HitRate reports the cache hit rate.
func (l *Loader) HitRate() float64 {
	return l.cache.HitRate()
}
