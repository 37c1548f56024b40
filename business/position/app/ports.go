// Package app contains the position manager and the ports it trades
// through.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	market "github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/business/position/domain"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
)

// TradeExecutor runs position entries and exits.
type TradeExecutor interface {
	// Plan prices the entry legs of opp.
	Plan(ctx context.Context, opp strategy.Opportunity) (domain.Entry, error)
	// Enter submits the entry legs that have not landed and returns e with
	// Filled advanced past the ones that did.
	Enter(ctx context.Context, id string, e domain.Entry) (domain.Entry, error)
	// Exit unwinds amount of the base token at about price.
	Exit(ctx context.Context, pos domain.Position, amount, price decimal.Decimal) error
	// Unwind reverses the landed legs of an unfinished entry.
	Unwind(ctx context.Context, id string, e domain.Entry) error
}

// PoolSource reads current pool state.
type PoolSource interface {
	Pool(address string) (market.Pool, bool)
}

// ConnectionStatus reports the current connectivity.
type ConnectionStatus interface {
	Snapshot() connDomain.State
}
