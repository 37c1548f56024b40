package console

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/business/monitoring/domain"
	positionDomain "github.com/fd1az/pool-sniper/business/position/domain"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestReporter_Opportunity(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporterTo(&buf)
	require.NoError(t, r.Start(context.Background()))

	r.ReportOpportunity(strategy.Opportunity{
		Type:           strategy.TypeSpread,
		Pool:           "P1",
		TokenA:         asset.SOL,
		TokenB:         asset.USDC,
		Timestamp:      t0,
		ExpectedProfit: decimal.RequireFromString("0.015"),
		Confidence:     0.8,
		SuggestedSize:  decimal.RequireFromString("0.25"),
		EntryPrice:     decimal.NewFromInt(100),
		Liquidity:      decimal.NewFromInt(20000),
	})

	out := buf.String()
	assert.Contains(t, out, "SPREAD OPPORTUNITY")
	assert.Contains(t, out, "SOL/USDC")
	assert.Contains(t, out, "1.500%")
	assert.Contains(t, out, "0.2500")
}

func TestReporter_MetricsOnlyWhenTradesChange(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporterTo(&buf)

	s := domain.Snapshot{
		Trades:           1,
		SuccessfulTrades: 1,
		TotalProfit:      decimal.RequireFromString("6"),
		AverageProfit:    decimal.RequireFromString("6"),
		WinRate:          1,
		RiskMode:         "NORMAL",
		RecentTrades: []domain.Trade{
			{PositionID: "0123456789", Type: "SPREAD", Pool: "P1", Profit: decimal.RequireFromString("6"), Reason: "target profit reached", At: t0},
		},
	}
	r.UpdateMetrics(s)
	first := buf.Len()
	assert.Contains(t, buf.String(), "100.0%")
	assert.Contains(t, buf.String(), "01234567")

	r.UpdateMetrics(s)
	assert.Equal(t, first, buf.Len())

	s.Trades = 2
	r.UpdateMetrics(s)
	assert.Greater(t, buf.Len(), first)
}

func TestReporter_ConnectionChanges(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporterTo(&buf)

	up := connDomain.State{RPCConnected: true, WSConnected: true, Endpoint: "primary", UpdatedAt: t0}
	r.UpdateConnection(up)
	r.UpdateConnection(up)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("connection:")))

	r.UpdateConnection(connDomain.State{RPCConnected: true, Fatal: true, Reason: connDomain.ReasonStreamExhausted, UpdatedAt: t0})
	assert.Contains(t, buf.String(), "FATAL: "+connDomain.ReasonStreamExhausted)
	assert.Contains(t, buf.String(), "ws=down")
}

func TestReporter_PositionClose(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporterTo(&buf)

	r.ReportPosition("position:close", positionDomain.Position{
		ID:          "abcdef0123",
		Pool:        "P1",
		Side:        positionDomain.SideLong,
		Amount:      decimal.Zero,
		EntryPrice:  decimal.NewFromInt(100),
		Status:      positionDomain.StatusClosed,
		CloseTime:   t0,
		RealizedPnL: decimal.RequireFromString("-12"),
		CloseReason: "stop loss",
	})

	out := buf.String()
	assert.Contains(t, out, "abcdef01")
	assert.Contains(t, out, "pnl=-12.0000")
	assert.Contains(t, out, `reason="stop loss"`)
}
