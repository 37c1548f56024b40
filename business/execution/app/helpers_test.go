package app

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/fd1az/pool-sniper/business/execution/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func order(id, size string) domain.Order {
	return domain.Order{
		ID:       id,
		Pool:     "P1",
		From:     asset.SOL,
		To:       asset.USDC,
		AmountIn: d(size),
		MinOut:   d("0"),
		Size:     d(size),
	}
}

type fakeBuilder struct{ err error }

func (b fakeBuilder) Build(_ context.Context, o domain.Order) (*domain.Transaction, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &domain.Transaction{
		ID:           o.ID,
		Size:         o.Size,
		Instructions: []domain.Instruction{{ProgramID: "prog"}},
		Message:      []byte(o.ID),
	}, nil
}

type fakeWallet struct{ err error }

func (w fakeWallet) PublicKey() string { return "payer" }

func (w fakeWallet) Sign(tx *domain.Transaction) error {
	if w.err != nil {
		return w.err
	}
	sig := make([]byte, 64)
	copy(sig, tx.Message)
	tx.Signatures = [][]byte{sig}
	return nil
}

var errSend = errors.New("node unavailable")

// fakeSubmitter fails the first failSends sends and then reports status
// from statuses, repeating the last entry.
type fakeSubmitter struct {
	mu        sync.Mutex
	failSends int
	sends     int
	statuses  []domain.Status
	polls     int
}

func (s *fakeSubmitter) Send(_ context.Context, tx *domain.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends++
	if s.sends <= s.failSends {
		return "", errSend
	}
	return tx.Signature(), nil
}

func (s *fakeSubmitter) Status(context.Context, string) (domain.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if len(s.statuses) == 0 {
		return domain.Status{}, nil
	}
	i := s.polls - 1
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	return s.statuses[i], nil
}

func (s *fakeSubmitter) sendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

func (s *fakeSubmitter) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}
