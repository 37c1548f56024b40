package asset_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/pool-sniper/internal/asset"
)

func TestAmount_Basic(t *testing.T) {
	// 1 SOL = 1e9 lamports
	oneSOL := asset.NewAmount(asset.SOL, 1_000_000_000)

	if oneSOL.IsZero() {
		t.Error("expected non-zero amount")
	}
	if !oneSOL.ToDecimal().Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", oneSOL.ToDecimal())
	}
	if oneSOL.String() != "1 SOL" {
		t.Errorf("expected '1 SOL', got '%s'", oneSOL.String())
	}
}

func TestAmount_FromDecimal(t *testing.T) {
	tests := []struct {
		name    string
		asset   *asset.Asset
		value   string
		raw     uint64
		wantErr error
	}{
		{"sol fraction", asset.SOL, "0.3", 300_000_000, nil},
		{"usdc cents", asset.USDC, "12.34", 12_340_000, nil},
		{"too precise", asset.USDC, "0.0000001", 0, asset.ErrTooManyDecimals},
		{"negative", asset.SOL, "-1", 0, asset.ErrNegativeAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := asset.FromDecimal(tt.asset, decimal.RequireFromString(tt.value))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Raw() != tt.raw {
				t.Errorf("raw = %d, want %d", got.Raw(), tt.raw)
			}
		})
	}
}

func TestAmount_FromDecimalTruncated(t *testing.T) {
	got, err := asset.FromDecimalTruncated(asset.USDC, decimal.RequireFromString("1.23456789"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Raw() != 1_234_567 {
		t.Errorf("raw = %d", got.Raw())
	}
}

func TestAmount_Arithmetic(t *testing.T) {
	one := asset.NewAmount(asset.SOL, 1_000_000_000)
	two := asset.NewAmount(asset.SOL, 2_000_000_000)

	sum, err := one.Add(two)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sum.ToDecimal().Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected 3, got %s", sum.ToDecimal())
	}

	if _, err := one.Sub(two); !errors.Is(err, asset.ErrNegativeResult) {
		t.Errorf("expected ErrNegativeResult, got %v", err)
	}

	if _, err := one.Add(asset.NewAmount(asset.USDC, 1)); !errors.Is(err, asset.ErrAssetMismatch) {
		t.Errorf("expected ErrAssetMismatch, got %v", err)
	}

	cmp, err := two.Cmp(one)
	if err != nil || cmp != 1 {
		t.Errorf("Cmp = %d, %v", cmp, err)
	}
}

func TestRegistry(t *testing.T) {
	r := asset.DefaultRegistry()

	if r.Count() != 4 {
		t.Fatalf("expected 4 assets, got %d", r.Count())
	}

	byMint, err := r.Resolve(asset.MintUSDC)
	if err != nil || byMint.Symbol() != "USDC" {
		t.Fatalf("Resolve by mint: %v %v", byMint, err)
	}
	bySymbol, err := r.Resolve("sol")
	if err != nil || !bySymbol.Equals(asset.SOL) {
		t.Fatalf("Resolve by symbol: %v %v", bySymbol, err)
	}
	if _, err := r.Resolve("NOPE"); err == nil {
		t.Error("expected unknown token error")
	}
	if err := r.Register(asset.SOL); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestNewAsset_Validation(t *testing.T) {
	if _, err := asset.NewAsset("not-base58-0OIl", "X", 6); err == nil {
		t.Error("expected base58 error")
	}
	if _, err := asset.NewAsset("abc", "X", 6); err == nil {
		t.Error("expected length error")
	}
	if _, err := asset.NewAsset(asset.MintWSOL, "", 9); err == nil {
		t.Error("expected empty symbol error")
	}
}
