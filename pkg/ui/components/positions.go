package components

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// PositionRow is one position as displayed.
type PositionRow struct {
	ID        string
	Pool      string
	Side      string
	Amount    decimal.Decimal
	Entry     decimal.Decimal
	PnL       decimal.Decimal
	Reason    string
	Open      bool
	UpdatedAt time.Time
}

// PositionsComponent renders open positions and the latest closes.
type PositionsComponent struct {
	open      map[string]PositionRow
	closed    []PositionRow
	maxClosed int
}

// NewPositionsComponent creates a positions component.
func NewPositionsComponent(maxClosed int) *PositionsComponent {
	return &PositionsComponent{
		open:      make(map[string]PositionRow),
		maxClosed: maxClosed,
	}
}

// Upsert records a position transition.
func (p *PositionsComponent) Upsert(row PositionRow) {
	if row.Open {
		p.open[row.ID] = row
		return
	}
	delete(p.open, row.ID)
	p.closed = append([]PositionRow{row}, p.closed...)
	if len(p.closed) > p.maxClosed {
		p.closed = p.closed[:p.maxClosed]
	}
}

// OpenCount returns how many positions are open.
func (p *PositionsComponent) OpenCount() int {
	return len(p.open)
}

// View renders the positions component.
func (p *PositionsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("OPEN POSITIONS (%d)", len(p.open))))
	b.WriteString("\n\n")

	if len(p.open) == 0 {
		b.WriteString(dimStyle.Render("  No open positions"))
		b.WriteString("\n")
	} else {
		rows := make([]PositionRow, 0, len(p.open))
		for _, r := range p.open {
			rows = append(rows, r)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].UpdatedAt.Before(rows[j].UpdatedAt) })

		b.WriteString(fmt.Sprintf("  %-8s  %-5s  %-12s  %10s  %12s\n", "ID", "Side", "Pool", "Amount", "Entry"))
		b.WriteString(dimStyle.Render("  "+strings.Repeat("─", 54)) + "\n")
		for _, r := range rows {
			b.WriteString(fmt.Sprintf("  %-8s  %-5s  %-12s  %10s  %12s\n",
				ShortID(r.ID), r.Side, truncate(r.Pool, 12),
				r.Amount.StringFixed(4), r.Entry.StringFixed(6)))
		}
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("RECENTLY CLOSED"))
	b.WriteString("\n\n")
	if len(p.closed) == 0 {
		b.WriteString(dimStyle.Render("  Nothing closed yet"))
		return b.String()
	}
	for _, r := range p.closed {
		pnlStyle := positiveStyle
		if r.PnL.IsNegative() {
			pnlStyle = negativeStyle
		}
		b.WriteString(fmt.Sprintf("  %s  %-8s  %-12s  %s  %s\n",
			r.UpdatedAt.Format("15:04:05"),
			ShortID(r.ID),
			truncate(r.Pool, 12),
			pnlStyle.Render(fmt.Sprintf("%+10s", r.PnL.StringFixed(4))),
			dimStyle.Render(r.Reason)))
	}
	return b.String()
}

// ShortID abbreviates a uuid for display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
