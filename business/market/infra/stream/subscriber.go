// Package stream adapts the connection stream supervisor to the market
// store's subscriber port.
package stream

import (
	"context"

	connapp "github.com/fd1az/pool-sniper/business/connection/app"
	conndomain "github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/business/market/app"
	"github.com/fd1az/pool-sniper/business/market/domain"
)

// Subscriber forwards account changes as pool updates.
type Subscriber struct {
	supervisor *connapp.StreamSupervisor
}

// NewSubscriber wraps supervisor.
func NewSubscriber(supervisor *connapp.StreamSupervisor) *Subscriber {
	return &Subscriber{supervisor: supervisor}
}

// Subscribe implements app.AccountSubscriber.
func (s *Subscriber) Subscribe(ctx context.Context, address string, h app.UpdateHandler) (uint64, error) {
	id, err := s.supervisor.SubscribeAccount(ctx, address, func(ctx context.Context, c conndomain.AccountChange) {
		h(ctx, domain.AccountUpdate{Slot: c.Slot, Data: c.Data})
	})
	return uint64(id), err
}

// Unsubscribe implements app.AccountSubscriber.
func (s *Subscriber) Unsubscribe(ctx context.Context, id uint64) error {
	return s.supervisor.Unsubscribe(ctx, conndomain.SubscriptionID(id))
}
