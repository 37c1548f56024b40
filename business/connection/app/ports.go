// Package app contains the connection supervisors.
package app

import (
	"context"

	"github.com/fd1az/pool-sniper/business/connection/domain"
)

// RPCTransport is the request/response side of the exchange connection.
type RPCTransport interface {
	// Dial points the transport at endpoint and verifies it answers.
	Dial(ctx context.Context, endpoint domain.Endpoint) error
	// Health is a lightweight liveness probe.
	Health(ctx context.Context) error
}

// NotificationHandler receives account changes from the stream.
type NotificationHandler func(ctx context.Context, change domain.AccountChange)

// StreamTransport is the push side. Wire ids are only valid until the next
// disconnect.
type StreamTransport interface {
	Open(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
	Subscribe(ctx context.Context, address string) (wireID uint64, err error)
	Unsubscribe(ctx context.Context, wireID uint64) error
	OnNotification(h NotificationHandler)
	OnDisconnect(h func(err error))
}
