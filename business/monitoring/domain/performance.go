// Package domain contains the performance bookkeeping for the monitoring context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRecentTrades caps the recent trade list.
const DefaultRecentTrades = 100

// Trade is one closed, filled position as the monitor sees it.
type Trade struct {
	PositionID string
	Pool       string
	Type       string
	Profit     decimal.Decimal
	Volume     decimal.Decimal
	Reason     string
	Success    bool
	At         time.Time
}

// Snapshot is the payload of every metrics:update event.
type Snapshot struct {
	Trades           int
	SuccessfulTrades int
	FailedTrades     int
	TotalProfit      decimal.Decimal
	AverageProfit    decimal.Decimal
	WinRate          float64
	TradesPerDay     float64

	DailyVolume     decimal.Decimal
	DailyProfitLoss decimal.Decimal
	RiskMode        string
	OpenPositions   int
	OpenedPositions int
	WalletBalance   decimal.Decimal

	// RecentTrades is newest first.
	RecentTrades []Trade
	StartedAt    time.Time
	At           time.Time
}

// Performance accumulates trade outcomes. It is not safe for concurrent use.
type Performance struct {
	start       time.Time
	recentCap   int
	trades      int
	successful  int
	totalProfit decimal.Decimal
	recent      []Trade
}

// NewPerformance starts counting at start.
func NewPerformance(start time.Time, recentCap int) *Performance {
	if recentCap <= 0 {
		recentCap = DefaultRecentTrades
	}
	return &Performance{
		start:       start,
		recentCap:   recentCap,
		totalProfit: decimal.Zero,
	}
}

// Record adds a trade. Losses count toward the total profit.
func (p *Performance) Record(t Trade) {
	p.trades++
	if t.Success {
		p.successful++
	}
	p.totalProfit = p.totalProfit.Add(t.Profit)

	p.recent = append([]Trade{t}, p.recent...)
	if len(p.recent) > p.recentCap {
		p.recent = p.recent[:p.recentCap]
	}
}

// Snapshot fills the trade statistics of a snapshot taken at now.
func (p *Performance) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		Trades:           p.trades,
		SuccessfulTrades: p.successful,
		FailedTrades:     p.trades - p.successful,
		TotalProfit:      p.totalProfit,
		AverageProfit:    decimal.Zero,
		TradesPerDay:     TradesPerDay(p.trades, p.start, now),
		RecentTrades:     append([]Trade(nil), p.recent...),
		StartedAt:        p.start,
		At:               now,
	}
	if p.trades > 0 {
		s.WinRate = float64(p.successful) / float64(p.trades)
		s.AverageProfit = p.totalProfit.Div(decimal.NewFromInt(int64(p.trades)))
	}
	return s
}

// TradesPerDay is trades over the days since start, counting at least one day.
func TradesPerDay(trades int, start, now time.Time) float64 {
	days := now.Sub(start).Hours() / 24
	if days < 1 {
		days = 1
	}
	return float64(trades) / days
}
