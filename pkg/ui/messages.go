// Package ui provides the Bubble Tea TUI for the pool sniper.
package ui

import (
	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	monitoring "github.com/fd1az/pool-sniper/business/monitoring/domain"
	positionDomain "github.com/fd1az/pool-sniper/business/position/domain"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
)

// Message types for TUI updates

// OpportunityMsg is sent when an opportunity is published.
type OpportunityMsg struct {
	Opportunity strategy.Opportunity
}

// PositionMsg is sent on every position transition.
type PositionMsg struct {
	Topic    string
	Position positionDomain.Position
}

// MetricsMsg carries the periodic performance snapshot.
type MetricsMsg struct {
	Snapshot monitoring.Snapshot
}

// ConnectionMsg is sent when connectivity changes.
type ConnectionMsg struct {
	State connDomain.State
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step   string // "config", "rpc", "stream", "pools"
	Status string // "connecting", "connected", "done", "failed"
}
