package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/asset"
)

func TestAppendShortVec(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x01}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x4000, []byte{0x80, 0x80, 0x01}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AppendShortVec(nil, tt.n), "n=%d", tt.n)
	}
}

func TestTransaction_Wire(t *testing.T) {
	tx := &Transaction{
		Message:    []byte{1, 2, 3},
		Signatures: [][]byte{make([]byte, 64)},
	}
	wire := tx.Wire()
	assert.Len(t, wire, 1+64+3)
	assert.Equal(t, byte(1), wire[0])
	assert.Equal(t, []byte{1, 2, 3}, wire[65:])
	assert.True(t, tx.Signed())
	assert.Equal(t, "1111111111111111111111111111111111111111111111111111111111111111", tx.Signature())
}

func TestTransaction_Validate(t *testing.T) {
	tx := &Transaction{ID: "t"}
	assert.True(t, apperror.IsValidation(tx.Validate()))

	tx.Instructions = []Instruction{{ProgramID: "p"}}
	tx.Message = []byte{0}
	assert.Error(t, tx.Validate(), "zero size")

	tx.Size = decimal.NewFromInt(1)
	assert.NoError(t, tx.Validate())
}

func TestOrder_Validate(t *testing.T) {
	ok := Order{ID: "o", Pool: "P", From: asset.USDC, To: asset.SOL, AmountIn: decimal.NewFromInt(1)}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.AmountIn = decimal.Zero
	assert.Error(t, bad.Validate())

	bad = ok
	bad.To = asset.USDC
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Pool = ""
	assert.Error(t, bad.Validate())
}
