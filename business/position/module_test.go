package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fd1az/pool-sniper/internal/config"
)

func TestManagerConfig(t *testing.T) {
	c := ManagerConfig(config.PositionConfig{
		MonitorInterval:  time.Second,
		TargetProfit:     0.02,
		StopLoss:         0.05,
		MaxRisk:          0.9,
		MaxLossThreshold: 0.02,
		MaxRiskThreshold: 0.7,
		AdjustFraction:   0.5,
		MaxHold:          time.Hour,
	})
	assert.Equal(t, time.Second, c.MonitorInterval)
	assert.Equal(t, "0.5", c.AdjustFraction.String())
	assert.Equal(t, 0.05, c.Thresholds.StopLoss)
	assert.Equal(t, time.Hour, c.Thresholds.MaxHold)
}
