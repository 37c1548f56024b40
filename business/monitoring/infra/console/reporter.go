// Package console renders pipeline activity as plain text tables.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/business/monitoring/domain"
	positionDomain "github.com/fd1az/pool-sniper/business/position/domain"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
)

const rule = "================================================================================"

// Reporter writes opportunities, position transitions and a performance
// table whenever the trade count changes.
type Reporter struct {
	mu         sync.Mutex
	out        io.Writer
	lastTrades int
	lastConn   *connDomain.State
}

// NewReporter creates a reporter writing to stdout.
func NewReporter() *Reporter {
	return NewReporterTo(os.Stdout)
}

// NewReporterTo creates a reporter writing to w.
func NewReporterTo(w io.Writer) *Reporter {
	return &Reporter{out: w, lastTrades: -1}
}

// Start prints the banner.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Pool Sniper Started")
	fmt.Fprintln(r.out, "===================")
	return nil
}

// ReportOpportunity prints one opportunity.
func (r *Reporter) ReportOpportunity(opp strategy.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "%s OPPORTUNITY\n", opp.Type)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Pool:           %s\n", opp.Pool)
	fmt.Fprintf(r.out, "Pair:           %s\n", opp.Pair())
	if opp.Type == strategy.TypeArbitrage {
		fmt.Fprintf(r.out, "Path:           %s\n", opp.Path.String())
	}
	if opp.Pending != nil {
		fmt.Fprintf(r.out, "Pending swap:   %s\n", opp.Pending.AmountIn.String())
	}
	fmt.Fprintf(r.out, "Size:           %s\n", opp.SuggestedSize.StringFixed(4))
	fmt.Fprintf(r.out, "Entry price:    %s\n", opp.EntryPrice.StringFixed(6))
	fmt.Fprintf(r.out, "Liquidity:      %s\n", opp.Liquidity.StringFixed(2))
	fmt.Fprintf(r.out, "Expected:       %s%%\n", opp.ExpectedProfit.Shift(2).StringFixed(3))
	fmt.Fprintf(r.out, "Confidence:     %.2f\n", opp.Confidence)
	fmt.Fprintln(r.out, rule)
}

// ReportPosition prints one position transition.
func (r *Reporter) ReportPosition(topic string, pos positionDomain.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := pos.OpenTime
	if pos.Status == positionDomain.StatusClosed {
		at = pos.CloseTime
	}
	line := fmt.Sprintf("[%s] %-15s %s %s %s amount=%s entry=%s",
		at.Format("15:04:05"), topic, shortID(pos.ID), pos.Side, pos.Pool,
		pos.Amount.StringFixed(4), pos.EntryPrice.StringFixed(6))
	if pos.Status == positionDomain.StatusClosed {
		line += fmt.Sprintf(" pnl=%s reason=%q", pos.RealizedPnL.StringFixed(4), pos.CloseReason)
	}
	fmt.Fprintln(r.out, line)
}

// UpdateMetrics prints the performance table when a trade was added.
func (r *Reporter) UpdateMetrics(s domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Trades == r.lastTrades {
		return
	}
	r.lastTrades = s.Trades
	r.renderMetrics(s)
}

func (r *Reporter) renderMetrics(s domain.Snapshot) {
	table := tablewriter.NewWriter(r.out)
	table.Header("Trades", "Wins", "Losses", "Win rate", "Total P&L", "Avg P&L", "Trades/day", "Daily vol", "Daily P&L", "Open", "Risk")
	table.Append(
		fmt.Sprintf("%d", s.Trades),
		fmt.Sprintf("%d", s.SuccessfulTrades),
		fmt.Sprintf("%d", s.FailedTrades),
		fmt.Sprintf("%.1f%%", s.WinRate*100),
		s.TotalProfit.StringFixed(4),
		s.AverageProfit.StringFixed(4),
		fmt.Sprintf("%.1f", s.TradesPerDay),
		s.DailyVolume.StringFixed(2),
		s.DailyProfitLoss.StringFixed(4),
		fmt.Sprintf("%d", s.OpenPositions),
		s.RiskMode,
	)
	table.Render()

	if len(s.RecentTrades) == 0 {
		return
	}
	recent := tablewriter.NewWriter(r.out)
	recent.Header("Closed", "Position", "Type", "Pool", "P&L", "Reason")
	for _, t := range s.RecentTrades[:min(len(s.RecentTrades), 5)] {
		recent.Append(
			t.At.Format("15:04:05"),
			shortID(t.PositionID),
			t.Type,
			t.Pool,
			t.Profit.StringFixed(4),
			t.Reason,
		)
	}
	recent.Render()
}

// UpdateConnection prints connectivity changes.
func (r *Reporter) UpdateConnection(state connDomain.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastConn != nil && sameLinks(*r.lastConn, state) {
		return
	}
	r.lastConn = &state

	status := fmt.Sprintf("rpc=%s ws=%s", upDown(state.RPCConnected), upDown(state.WSConnected))
	if state.Endpoint != "" {
		status += " endpoint=" + state.Endpoint
	}
	if state.Fatal {
		status += " FATAL: " + state.Reason
	} else if state.LastError != "" {
		status += " last_error=" + state.LastError
	}
	fmt.Fprintf(r.out, "[%s] connection: %s\n", state.UpdatedAt.Format("15:04:05"), status)
}

// Stop prints the footer.
func (r *Reporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Pool Sniper Stopped")
	return nil
}

func sameLinks(a, b connDomain.State) bool {
	return a.RPCConnected == b.RPCConnected &&
		a.WSConnected == b.WSConnected &&
		a.Fatal == b.Fatal &&
		a.Endpoint == b.Endpoint
}

func upDown(ok bool) string {
	if ok {
		return "up"
	}
	return "down"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
