// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// OpportunityRow represents an opportunity in the list.
type OpportunityRow struct {
	Time       string
	Type       string
	Market     string
	Size       decimal.Decimal
	Expected   decimal.Decimal // fraction of Size
	Confidence float64
}

// OpportunitiesComponent renders the opportunities list, newest first.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	visible int
	offset  int
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(maxRows, visible int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add adds a new opportunity to the list.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
	if o.offset > 0 {
		o.offset = min(o.offset+1, o.maxOffset())
	}
}

// Len returns the number of stored rows.
func (o *OpportunitiesComponent) Len() int {
	return len(o.rows)
}

// Clear clears all opportunities.
func (o *OpportunitiesComponent) Clear() {
	o.rows = make([]OpportunityRow, 0)
	o.offset = 0
}

// ScrollUp moves the window toward newer rows.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown moves the window toward older rows.
func (o *OpportunitiesComponent) ScrollDown() {
	if o.offset < o.maxOffset() {
		o.offset++
	}
}

func (o *OpportunitiesComponent) maxOffset() int {
	return max(len(o.rows)-o.visible, 0)
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	if len(o.rows) == 0 {
		return "No opportunities detected yet..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	strongStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	weakStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("OPPORTUNITIES (%d)", len(o.rows))))
	b.WriteString("\n")
	b.WriteString("┌──────────┬───────────┬──────────────┬──────────┬──────────┬──────┐\n")
	b.WriteString("│   Time   │   Type    │    Market    │   Size   │ Expected │ Conf │\n")
	b.WriteString("├──────────┼───────────┼──────────────┼──────────┼──────────┼──────┤\n")

	end := min(o.offset+o.visible, len(o.rows))
	for _, row := range o.rows[o.offset:end] {
		confStyle := strongStyle
		if row.Confidence < 0.8 {
			confStyle = weakStyle
		}
		b.WriteString(fmt.Sprintf("│ %8s │ %-9s │ %-12s │ %8s │ %7s%% │ %s │\n",
			row.Time,
			row.Type,
			truncate(row.Market, 12),
			row.Size.StringFixed(4),
			row.Expected.Shift(2).StringFixed(2),
			confStyle.Render(fmt.Sprintf("%.2f", row.Confidence)),
		))
	}

	b.WriteString("└──────────┴───────────┴──────────────┴──────────┴──────────┴──────┘")
	if len(o.rows) > o.visible {
		b.WriteString(fmt.Sprintf("\n  %d-%d of %d", o.offset+1, end, len(o.rows)))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
