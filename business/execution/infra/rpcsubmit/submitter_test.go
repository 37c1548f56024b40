package rpcsubmit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/pool-sniper/business/connection/infra/solana"
	"github.com/fd1az/pool-sniper/business/execution/domain"
)

type fakeRPC struct {
	sent     [][]byte
	sendErr  error
	statuses []solana.SignatureStatus
}

func (f *fakeRPC) SendTransaction(_ context.Context, raw []byte) (string, error) {
	f.sent = append(f.sent, raw)
	return "sig", f.sendErr
}

func (f *fakeRPC) GetSignatureStatuses(context.Context, ...string) ([]solana.SignatureStatus, error) {
	return f.statuses, nil
}

func signedTx() *domain.Transaction {
	return &domain.Transaction{
		ID:         "tx",
		Message:    []byte{0xaa},
		Signatures: [][]byte{make([]byte, 64)},
	}
}

func TestSend(t *testing.T) {
	rpc := &fakeRPC{}
	s := New(rpc)

	sig, err := s.Send(context.Background(), signedTx())
	require.NoError(t, err)
	assert.Equal(t, "sig", sig)
	require.Len(t, rpc.sent, 1)
	assert.Len(t, rpc.sent[0], 1+64+1)

	_, err = s.Send(context.Background(), &domain.Transaction{ID: "unsigned"})
	assert.Error(t, err)
	assert.Len(t, rpc.sent, 1)
}

func TestSend_Error(t *testing.T) {
	s := New(&fakeRPC{sendErr: errors.New("blockhash not found")})
	_, err := s.Send(context.Background(), signedTx())
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		status []solana.SignatureStatus
		want   domain.Status
	}{
		{"unknown", []solana.SignatureStatus{{}}, domain.Status{}},
		{"processed", []solana.SignatureStatus{{Found: true, Slot: 5, ConfirmationStatus: "processed"}},
			domain.Status{Found: true, Slot: 5}},
		{"confirmed", []solana.SignatureStatus{{Found: true, Slot: 5, ConfirmationStatus: "confirmed"}},
			domain.Status{Found: true, Confirmed: true, Slot: 5}},
		{"finalized", []solana.SignatureStatus{{Found: true, Slot: 6, ConfirmationStatus: "finalized"}},
			domain.Status{Found: true, Confirmed: true, Slot: 6}},
		{"failed", []solana.SignatureStatus{{Found: true, Slot: 7, ConfirmationStatus: "confirmed", Err: `{"InstructionError":[0,{"Custom":1}]}`}},
			domain.Status{Found: true, Slot: 7, Err: `{"InstructionError":[0,{"Custom":1}]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeRPC{statuses: tt.status})
			got, err := s.Status(context.Background(), "sig")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
