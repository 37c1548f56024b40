package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Stats holds performance figures for display.
type Stats struct {
	Trades          int
	Wins            int
	WinRate         float64
	TotalProfit     decimal.Decimal
	AverageProfit   decimal.Decimal
	TradesPerDay    float64
	DailyVolume     decimal.Decimal
	DailyProfitLoss decimal.Decimal
	OpenPositions   int
	RiskMode        string
	WalletBalance   decimal.Decimal
	Opportunities   int
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// Stats returns the displayed figures.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	pnl := func(d decimal.Decimal) string {
		if d.IsNegative() {
			return negativeStyle.Render(d.StringFixed(4))
		}
		return positiveStyle.Render(d.StringFixed(4))
	}

	mode := valueStyle.Render(s.stats.RiskMode)
	if s.stats.RiskMode == "COOLDOWN" {
		mode = negativeStyle.Render(s.stats.RiskMode)
	}

	return style.Render("PERFORMANCE") + "\n" +
		fmt.Sprintf("Trades: %s  │  Wins: %s (%.1f%%)  │  Total P&L: %s  │  Avg: %s  │  Per day: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Trades)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Wins)),
			s.stats.WinRate*100,
			pnl(s.stats.TotalProfit),
			pnl(s.stats.AverageProfit),
			valueStyle.Render(fmt.Sprintf("%.1f", s.stats.TradesPerDay)),
		) +
		fmt.Sprintf("Daily volume: %s  │  Daily P&L: %s  │  Open: %s  │  Risk: %s  │  Balance: %s SOL  │  Seen: %s",
			valueStyle.Render(s.stats.DailyVolume.StringFixed(2)),
			pnl(s.stats.DailyProfitLoss),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.OpenPositions)),
			mode,
			valueStyle.Render(s.stats.WalletBalance.StringFixed(4)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Opportunities)),
		)
}
