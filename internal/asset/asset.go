// Package asset models token mints. Raw amounts are u64 in the mint's
// smallest unit; decimal.Decimal is used at the boundaries (sizing, display).
package asset

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// MintLen is the decoded size of a mint address.
const MintLen = 32

// Asset is the metadata of a token mint. The mint address is identity; the
// symbol is display metadata.
type Asset struct {
	mint     string
	symbol   string
	name     string
	decimals int32
}

// NewAsset validates the mint address and creates an Asset.
func NewAsset(mint, symbol string, decimals int32) (*Asset, error) {
	if symbol == "" {
		return nil, fmt.Errorf("asset: empty symbol for mint %s", mint)
	}
	if decimals < 0 || decimals > 19 {
		return nil, fmt.Errorf("asset: %s has unsupported decimals %d", symbol, decimals)
	}
	raw, err := base58.Decode(mint)
	if err != nil {
		return nil, fmt.Errorf("asset: %s mint is not base58: %w", symbol, err)
	}
	if len(raw) != MintLen {
		return nil, fmt.Errorf("asset: %s mint decodes to %d bytes, want %d", symbol, len(raw), MintLen)
	}
	return &Asset{mint: mint, symbol: symbol, decimals: decimals}, nil
}

// MustNewAsset is NewAsset for package-level well-known values.
func MustNewAsset(mint, symbol, name string, decimals int32) *Asset {
	a, err := NewAsset(mint, symbol, decimals)
	if err != nil {
		panic(err)
	}
	a.name = name
	return a
}

// Mint returns the base58 mint address.
func (a *Asset) Mint() string {
	return a.mint
}

// MintBytes returns the decoded 32-byte mint address.
func (a *Asset) MintBytes() [MintLen]byte {
	var out [MintLen]byte
	raw, _ := base58.Decode(a.mint)
	copy(out[:], raw)
	return out
}

// Symbol returns the ticker symbol (e.g., "SOL", "USDC").
func (a *Asset) Symbol() string {
	return a.symbol
}

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() int32 {
	return a.decimals
}

// String returns a human-readable representation.
func (a *Asset) String() string {
	return a.symbol
}

// Equals compares two Assets by mint.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.mint == other.mint
}
