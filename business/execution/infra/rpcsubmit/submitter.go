// Package rpcsubmit sends transactions over JSON-RPC.
package rpcsubmit

import (
	"context"

	"github.com/fd1az/pool-sniper/business/connection/infra/solana"
	"github.com/fd1az/pool-sniper/business/execution/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/circuitbreaker"
)

// RPC is the subset of the node client the submitter needs.
type RPC interface {
	SendTransaction(ctx context.Context, raw []byte) (string, error)
	GetSignatureStatuses(ctx context.Context, signatures ...string) ([]solana.SignatureStatus, error)
}

// Submitter sends signed transactions and polls their status. Sends go
// through a circuit breaker so a failing node is not hammered with retries.
type Submitter struct {
	rpc RPC
	cb  *circuitbreaker.CircuitBreaker[string]
}

// New creates a submitter.
func New(rpc RPC) *Submitter {
	return &Submitter{
		rpc: rpc,
		cb:  circuitbreaker.New[string](circuitbreaker.DefaultConfig("tx-submit")),
	}
}

// Send submits tx and returns the signature the node reports.
func (s *Submitter) Send(ctx context.Context, tx *domain.Transaction) (string, error) {
	if !tx.Signed() {
		return "", apperror.Validation(apperror.CodeInvalidTransaction, tx.ID+": unsigned")
	}
	return s.cb.Execute(func() (string, error) {
		return s.rpc.SendTransaction(ctx, tx.Wire())
	})
}

// Status reports whether signature reached confirmed or finalized
// commitment.
func (s *Submitter) Status(ctx context.Context, signature string) (domain.Status, error) {
	statuses, err := s.rpc.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return domain.Status{}, err
	}
	if len(statuses) == 0 || !statuses[0].Found {
		return domain.Status{}, nil
	}
	st := statuses[0]
	return domain.Status{
		Found:     true,
		Confirmed: st.Err == "" && (st.ConfirmationStatus == "confirmed" || st.ConfirmationStatus == "finalized"),
		Slot:      st.Slot,
		Err:       st.Err,
	}, nil
}
