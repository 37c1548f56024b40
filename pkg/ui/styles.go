package ui

import "github.com/charmbracelet/lipgloss"

// Palette for the sniper dashboard: gains in teal, losses in coral.
var (
	ColorAccent = lipgloss.Color("#9945FF")
	ColorGain   = lipgloss.Color("#14F195")
	ColorLoss   = lipgloss.Color("#FF6B6B")
	ColorWarn   = lipgloss.Color("#FFC857")
	ColorDim    = lipgloss.Color("#8B8FA3")
	ColorFrame  = lipgloss.Color("#2D2F3E")
)

var (
	// BannerStyle renders the top bar.
	BannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0B0C10")).
			Background(ColorGain).
			Padding(0, 2)

	// PanelStyle frames each dashboard column.
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(ColorFrame).
			Padding(0, 1)

	SectionStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	FatalStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorLoss)
	DimStyle     = lipgloss.NewStyle().Foreground(ColorDim)
	HelpStyle    = lipgloss.NewStyle().Foreground(ColorDim).PaddingLeft(1)
)
