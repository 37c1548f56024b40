// Package app contains the performance monitor and the reporting fan-out.
package app

import (
	"context"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/business/monitoring/domain"
	positionDomain "github.com/fd1az/pool-sniper/business/position/domain"
	riskDomain "github.com/fd1az/pool-sniper/business/risk/domain"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
)

// RiskSource exposes the daily risk bookkeeping.
type RiskSource interface {
	Snapshot() riskDomain.State
}

// PositionSource lists open positions.
type PositionSource interface {
	Positions() []positionDomain.Position
}

// BalanceSource reads an account balance in lamports.
type BalanceSource interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// Reporter renders pipeline activity for an operator.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportOpportunity shows a detected opportunity.
	ReportOpportunity(opp strategy.Opportunity)

	// ReportPosition shows a position transition; topic says which one.
	ReportPosition(topic string, pos positionDomain.Position)

	// UpdateMetrics refreshes the performance figures.
	UpdateMetrics(s domain.Snapshot)

	// UpdateConnection refreshes the connectivity display.
	UpdateConnection(state connDomain.State)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
