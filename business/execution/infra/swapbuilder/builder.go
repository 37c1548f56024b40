// Package swapbuilder compiles swap orders into legacy-format transactions.
package swapbuilder

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/business/execution/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
)

const (
	keyLen = 32

	// swapTag selects the swap instruction of the pool program.
	swapTag byte = 1
)

// BlockhashSource provides the blockhash transactions reference.
type BlockhashSource interface {
	Latest(ctx context.Context) (string, error)
}

// Builder turns orders into single-instruction swap transactions paid for
// by the wallet's key.
type Builder struct {
	programID string
	payer     string
	hashes    BlockhashSource
}

// New creates a builder for programID paid by payer.
func New(programID, payer string, hashes BlockhashSource) (*Builder, error) {
	if _, err := decodeKey(programID); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("execution.program_id"), apperror.WithCause(err))
	}
	if _, err := decodeKey(payer); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("fee payer"), apperror.WithCause(err))
	}
	return &Builder{programID: programID, payer: payer, hashes: hashes}, nil
}

// Build compiles order into an unsigned transaction.
func (b *Builder) Build(ctx context.Context, order domain.Order) (*domain.Transaction, error) {
	data, err := SwapData(order)
	if err != nil {
		return nil, err
	}
	hash, err := b.hashes.Latest(ctx)
	if err != nil {
		return nil, err
	}

	ix := domain.Instruction{
		ProgramID: b.programID,
		Accounts: []domain.AccountMeta{
			{Pubkey: b.payer, Signer: true, Writable: true},
			{Pubkey: order.Pool, Writable: true},
			{Pubkey: order.From.Mint()},
			{Pubkey: order.To.Mint()},
		},
		Data: data,
	}
	tx := &domain.Transaction{
		ID:              order.ID,
		Size:            order.Size,
		FeePayer:        b.payer,
		RecentBlockhash: hash,
		Instructions:    []domain.Instruction{ix},
	}
	msg, err := Compile(b.payer, hash, tx.Instructions)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidTransaction, order.ID)
	}
	tx.Message = msg
	return tx, nil
}

// SwapData encodes the swap instruction: the tag byte, then amount in and
// minimum out as little-endian u64 base units.
func SwapData(order domain.Order) ([]byte, error) {
	in, err := baseUnits(order.AmountIn, order.From.Decimals())
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidTransaction, order.ID+": amount in")
	}
	out, err := baseUnits(order.MinOut, order.To.Decimals())
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidTransaction, order.ID+": min out")
	}
	data := make([]byte, 0, 17)
	data = append(data, swapTag)
	data = binary.LittleEndian.AppendUint64(data, in)
	data = binary.LittleEndian.AppendUint64(data, out)
	return data, nil
}

func baseUnits(amount decimal.Decimal, decimals int32) (uint64, error) {
	units := amount.Shift(decimals).Truncate(0)
	if units.IsNegative() || units.GreaterThan(decimal.NewFromUint64(math.MaxUint64)) {
		return 0, apperror.Validation(apperror.CodeInvalidTransaction,
			fmt.Sprintf("%s out of range", amount))
	}
	return units.BigInt().Uint64(), nil
}

type accountFlags struct {
	signer   bool
	writable bool
}

// Compile serializes a legacy message: header, account keys, recent
// blockhash and instructions. Keys are ordered writable signers, readonly
// signers, writable non-signers, readonly non-signers, with the payer first.
func Compile(payer, blockhash string, instructions []domain.Instruction) ([]byte, error) {
	order := []string{payer}
	flags := map[string]*accountFlags{payer: {signer: true, writable: true}}
	add := func(key string, signer, writable bool) {
		f, ok := flags[key]
		if !ok {
			f = &accountFlags{}
			flags[key] = f
			order = append(order, key)
		}
		f.signer = f.signer || signer
		f.writable = f.writable || writable
	}
	for _, ix := range instructions {
		for _, acc := range ix.Accounts {
			add(acc.Pubkey, acc.Signer, acc.Writable)
		}
		add(ix.ProgramID, false, false)
	}

	var groups [4][]string
	for _, key := range order {
		f := flags[key]
		switch {
		case f.signer && f.writable:
			groups[0] = append(groups[0], key)
		case f.signer:
			groups[1] = append(groups[1], key)
		case f.writable:
			groups[2] = append(groups[2], key)
		default:
			groups[3] = append(groups[3], key)
		}
	}
	keys := make([]string, 0, len(order))
	for _, g := range groups {
		keys = append(keys, g...)
	}
	if len(keys) > math.MaxUint8 {
		return nil, apperror.Validation(apperror.CodeInvalidTransaction, "too many accounts")
	}
	index := make(map[string]byte, len(keys))
	for i, k := range keys {
		index[k] = byte(i)
	}

	msg := []byte{
		byte(len(groups[0]) + len(groups[1])),
		byte(len(groups[1])),
		byte(len(groups[3])),
	}
	msg = domain.AppendShortVec(msg, len(keys))
	for _, k := range keys {
		raw, err := decodeKey(k)
		if err != nil {
			return nil, err
		}
		msg = append(msg, raw...)
	}

	hash, err := decodeKey(blockhash)
	if err != nil {
		return nil, err
	}
	msg = append(msg, hash...)

	msg = domain.AppendShortVec(msg, len(instructions))
	for _, ix := range instructions {
		msg = append(msg, index[ix.ProgramID])
		msg = domain.AppendShortVec(msg, len(ix.Accounts))
		for _, acc := range ix.Accounts {
			msg = append(msg, index[acc.Pubkey])
		}
		msg = domain.AppendShortVec(msg, len(ix.Data))
		msg = append(msg, ix.Data...)
	}
	return msg, nil
}

func decodeKey(key string) ([]byte, error) {
	raw, err := base58.Decode(key)
	if err != nil || len(raw) != keyLen {
		return nil, apperror.Validation(apperror.CodeInvalidTransaction,
			fmt.Sprintf("invalid key %q", key))
	}
	return raw, nil
}
