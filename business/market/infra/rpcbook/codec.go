// Package rpcbook loads pool books from account data over JSON-RPC.
package rpcbook

import (
	"encoding/binary"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
)

// Account layout, little endian:
//
//	0  u8   version (1)
//	1  u8   price decimals
//	2  u8   size decimals
//	3  u8   reserved
//	4  u16  bid count
//	6  u16  ask count
//	8  bids then asks, each level {u64 price, u64 size} in fixed point
const (
	layoutVersion = 1
	headerLen     = 8
	levelLen      = 16
	maxDecimals   = 18
)

// Decode parses a pool account into an order book. It checks the layout
// only; ordering and crossing are checked by OrderBook.Validate.
func Decode(data []byte) (domain.OrderBook, error) {
	if len(data) < headerLen {
		return domain.OrderBook{}, invalid("account data too short: %d bytes", len(data))
	}
	if data[0] != layoutVersion {
		return domain.OrderBook{}, invalid("unknown layout version %d", data[0])
	}
	priceExp, sizeExp := int32(data[1]), int32(data[2])
	if priceExp > maxDecimals || sizeExp > maxDecimals {
		return domain.OrderBook{}, invalid("decimals out of range: price %d size %d", priceExp, sizeExp)
	}
	nBids := int(binary.LittleEndian.Uint16(data[4:6]))
	nAsks := int(binary.LittleEndian.Uint16(data[6:8]))

	want := headerLen + (nBids+nAsks)*levelLen
	if len(data) < want {
		return domain.OrderBook{}, invalid("account data truncated: %d bytes, want %d", len(data), want)
	}

	off := headerLen
	read := func(n int) []domain.Level {
		levels := make([]domain.Level, n)
		for i := range levels {
			price := binary.LittleEndian.Uint64(data[off : off+8])
			size := binary.LittleEndian.Uint64(data[off+8 : off+16])
			levels[i] = domain.Level{
				Price: decimal.NewFromUint64(price).Shift(-priceExp),
				Size:  decimal.NewFromUint64(size).Shift(-sizeExp),
			}
			off += levelLen
		}
		return levels
	}

	book := domain.OrderBook{Bids: read(nBids), Asks: read(nAsks)}
	return book, nil
}

// Encode writes book in the account layout. Values must fit the fixed point
// representation exactly.
func Encode(book domain.OrderBook, priceDecimals, sizeDecimals uint8) ([]byte, error) {
	if priceDecimals > maxDecimals || sizeDecimals > maxDecimals {
		return nil, invalid("decimals out of range: price %d size %d", priceDecimals, sizeDecimals)
	}
	if len(book.Bids) > 0xffff || len(book.Asks) > 0xffff {
		return nil, invalid("too many levels")
	}

	buf := make([]byte, headerLen+(len(book.Bids)+len(book.Asks))*levelLen)
	buf[0] = layoutVersion
	buf[1] = priceDecimals
	buf[2] = sizeDecimals
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(book.Bids)))
	binary.LittleEndian.PutUint16(buf[6:8], uint16(len(book.Asks)))

	off := headerLen
	for _, side := range [][]domain.Level{book.Bids, book.Asks} {
		for _, l := range side {
			price, err := toFixed(l.Price, int32(priceDecimals))
			if err != nil {
				return nil, err
			}
			size, err := toFixed(l.Size, int32(sizeDecimals))
			if err != nil {
				return nil, err
			}
			binary.LittleEndian.PutUint64(buf[off:off+8], price)
			binary.LittleEndian.PutUint64(buf[off+8:off+16], size)
			off += levelLen
		}
	}
	return buf, nil
}

func toFixed(d decimal.Decimal, exp int32) (uint64, error) {
	scaled := d.Shift(exp)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, invalid("%s has more than %d decimals", d, exp)
	}
	if scaled.IsNegative() || scaled.BigInt().BitLen() > 64 {
		return 0, invalid("%s does not fit u64 at %d decimals", d, exp)
	}
	return scaled.BigInt().Uint64(), nil
}

func invalid(format string, args ...any) error {
	return apperror.Validation(apperror.CodeInvalidOrderBook, fmt.Sprintf(format, args...))
}
