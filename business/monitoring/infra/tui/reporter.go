// Package tui forwards pipeline activity to the Bubble Tea dashboard.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/business/monitoring/domain"
	positionDomain "github.com/fd1az/pool-sniper/business/position/domain"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/pkg/ui"
)

// Sender delivers messages to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Reporter implements the monitoring reporter on top of the TUI.
type Reporter struct {
	program Sender
}

// NewReporter creates a reporter sending to program.
func NewReporter(program Sender) *Reporter {
	return &Reporter{program: program}
}

// Start is a no-op; the program is run by the caller.
func (r *Reporter) Start(ctx context.Context) error {
	return nil
}

// ReportOpportunity sends an opportunity to the dashboard.
func (r *Reporter) ReportOpportunity(opp strategy.Opportunity) {
	r.program.Send(ui.OpportunityMsg{Opportunity: opp})
}

// ReportPosition sends a position transition to the dashboard.
func (r *Reporter) ReportPosition(topic string, pos positionDomain.Position) {
	r.program.Send(ui.PositionMsg{Topic: topic, Position: pos})
}

// UpdateMetrics sends the performance snapshot to the dashboard.
func (r *Reporter) UpdateMetrics(s domain.Snapshot) {
	r.program.Send(ui.MetricsMsg{Snapshot: s})
}

// UpdateConnection sends connectivity to the dashboard.
func (r *Reporter) UpdateConnection(state connDomain.State) {
	r.program.Send(ui.ConnectionMsg{State: state})
}

// Stop is a no-op; the program owner quits it.
func (r *Reporter) Stop() error {
	return nil
}
