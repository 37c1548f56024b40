// Package app contains the execution guard, the executor and the ports
// they submit through.
package app

import (
	"context"

	"github.com/fd1az/pool-sniper/business/execution/domain"
)

// Builder compiles an order into an unsigned transaction.
type Builder interface {
	Build(ctx context.Context, order domain.Order) (*domain.Transaction, error)
}

// Wallet holds the fee payer key.
type Wallet interface {
	PublicKey() string
	Sign(tx *domain.Transaction) error
}

// Submitter sends transactions and reports their confirmation state.
type Submitter interface {
	Send(ctx context.Context, tx *domain.Transaction) (string, error)
	Status(ctx context.Context, signature string) (domain.Status, error)
}
