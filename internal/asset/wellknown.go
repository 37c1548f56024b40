package asset

// Well-known mainnet mints
const (
	MintWSOL = "So11111111111111111111111111111111111111112"
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintUSDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCE8BenwNYB"
	MintBONK = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

// Well-known Assets (pre-created instances)
var (
	SOL  = MustNewAsset(MintWSOL, "SOL", "Wrapped SOL", 9)
	USDC = MustNewAsset(MintUSDC, "USDC", "USD Coin", 6)
	USDT = MustNewAsset(MintUSDT, "USDT", "Tether USD", 6)
	BONK = MustNewAsset(MintBONK, "BONK", "Bonk", 5)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{SOL, USDC, USDT, BONK} {
		_ = r.Register(a)
	}
	return r
}
