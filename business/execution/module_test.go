package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/pool-sniper/internal/config"
)

func TestConfigMapping(t *testing.T) {
	cfg := config.ExecutionConfig{
		MaxTransactionSize:  0.3,
		DailyLimit:          600,
		MaxRetries:          3,
		RetryDelay:          500 * time.Millisecond,
		ConfirmTimeout:      30 * time.Second,
		ConfirmPollInterval: time.Second,
		DryRun:              true,
	}

	g := GuardConfig(cfg)
	assert.Equal(t, "0.3", g.MaxTransactionSize.String())
	assert.Equal(t, "600", g.DailyLimit.String())

	e := ExecutorConfig(cfg)
	assert.Equal(t, 3, e.MaxRetries)
	assert.Equal(t, 30*time.Second, e.ConfirmTimeout)
	assert.Equal(t, time.Second, e.ConfirmPollInterval)
	assert.True(t, e.DryRun)
}

func TestLoadWallet_Ephemeral(t *testing.T) {
	a, err := LoadWallet(config.ExecutionConfig{})
	require.NoError(t, err)
	b, err := LoadWallet(config.ExecutionConfig{})
	require.NoError(t, err)
	assert.NotEqual(t, a.PublicKey(), b.PublicKey())

	_, err = LoadWallet(config.ExecutionConfig{KeypairPath: t.TempDir() + "/missing.json"})
	assert.Error(t, err)
}
