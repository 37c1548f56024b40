package pathfinding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/config"
)

func TestFinderConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Pathfinding.MaxDepth = 3
	cfg.Pathfinding.MinProfit = 0.002
	cfg.Pathfinding.StartTokens = []string{"sol", asset.USDC.Mint()}
	cfg.Market.MinLiquidity = 1000

	fc, err := FinderConfig(cfg, asset.DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, 3, fc.MaxDepth)
	assert.Equal(t, "0.002", fc.MinProfit.String())
	assert.Equal(t, "1000", fc.MinLiquidity.String())
	assert.Equal(t, []string{asset.SOL.Mint(), asset.USDC.Mint()}, fc.Starts)
}

func TestFinderConfig_UnknownStartToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.Pathfinding.StartTokens = []string{"NOPE"}

	_, err := FinderConfig(cfg, asset.DefaultRegistry())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeConfigurationError, apperror.GetCode(err))
}
