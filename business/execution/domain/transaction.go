package domain

import (
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/internal/apperror"
)

// AccountMeta is one account an instruction touches.
type AccountMeta struct {
	Pubkey   string
	Signer   bool
	Writable bool
}

// Instruction is one program invocation.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// Transaction is a built, possibly signed transaction. Message is the
// serialized message the signatures cover.
type Transaction struct {
	ID              string
	Size            decimal.Decimal
	FeePayer        string
	RecentBlockhash string
	Instructions    []Instruction
	Message         []byte
	Signatures      [][]byte
}

// Validate checks the transaction is ready to sign.
func (t *Transaction) Validate() error {
	if len(t.Instructions) == 0 {
		return apperror.Validation(apperror.CodeInvalidTransaction, t.ID+": no instructions")
	}
	if len(t.Message) == 0 {
		return apperror.Validation(apperror.CodeInvalidTransaction, t.ID+": message not compiled")
	}
	if !t.Size.IsPositive() {
		return apperror.Validation(apperror.CodeInvalidTransaction, t.ID+": size must be positive")
	}
	return nil
}

// Signed reports whether the fee payer signature is present.
func (t *Transaction) Signed() bool {
	return len(t.Signatures) > 0 && len(t.Signatures[0]) == 64
}

// Signature returns the base58 fee payer signature, which doubles as the
// transaction id on chain.
func (t *Transaction) Signature() string {
	if !t.Signed() {
		return ""
	}
	return base58.Encode(t.Signatures[0])
}

// Wire serializes signatures and message into the submission format.
func (t *Transaction) Wire() []byte {
	out := AppendShortVec(nil, len(t.Signatures))
	for _, sig := range t.Signatures {
		out = append(out, sig...)
	}
	return append(out, t.Message...)
}

// AppendShortVec appends n in the compact-u16 encoding: seven bits per byte,
// high bit set while more bytes follow.
func AppendShortVec(b []byte, n int) []byte {
	v := uint16(n)
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}
