// Package app contains the market state store.
package app

import (
	"context"

	"github.com/fd1az/pool-sniper/business/market/domain"
)

// OrderBookLoader fetches and decodes a pool's book.
type OrderBookLoader interface {
	// Load returns the book as of at least minSlot, along with the slot it
	// was read at. Implementations may serve a cached read that satisfies minSlot.
	Load(ctx context.Context, address string, minSlot uint64) (domain.OrderBook, uint64, error)
}

// UpdateHandler receives account changes for one pool.
type UpdateHandler func(ctx context.Context, update domain.AccountUpdate)

// AccountSubscriber is the account-notification side of the connection.
type AccountSubscriber interface {
	Subscribe(ctx context.Context, address string, h UpdateHandler) (uint64, error)
	Unsubscribe(ctx context.Context, id uint64) error
}
