package app

import (
	"fmt"

	"github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/config"
)

// ResolvePools turns configured pools into specs, resolving token references
// (mint or symbol) through the registry. Duplicate addresses are dropped.
func ResolvePools(registry *asset.Registry, pools []config.PoolConfig) ([]domain.PoolSpec, error) {
	seen := make(map[string]struct{}, len(pools))
	out := make([]domain.PoolSpec, 0, len(pools))
	for i, p := range pools {
		if p.Address == "" {
			return nil, apperror.Validation(apperror.CodeInvalidPool, fmt.Sprintf("pool %d: missing address", i))
		}
		if _, dup := seen[p.Address]; dup {
			continue
		}
		seen[p.Address] = struct{}{}

		a, err := registry.Resolve(p.TokenA)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInvalidPool, p.Address+": token_a")
		}
		b, err := registry.Resolve(p.TokenB)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInvalidPool, p.Address+": token_b")
		}
		out = append(out, domain.PoolSpec{Address: p.Address, TokenA: a, TokenB: b})
	}
	return out, nil
}
