package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	positionDomain "github.com/fd1az/pool-sniper/business/position/domain"
	"github.com/fd1az/pool-sniper/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// Connection names shown in the status bar.
const (
	ConnRPC    = "RPC"
	ConnStream = "Stream"
)

var stepOrder = []string{"config", "rpc", "stream", "pools"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	opportunities *components.OpportunitiesComponent
	positions     *components.PositionsComponent
	stats         *components.StatsComponent
	status        *components.StatusComponent
	keys          KeyMap
	help          help.Model

	// Phase state
	phase        Phase
	welcomeStart time.Time
	onStart      func()

	// State
	quitting   bool
	paused     bool // freezes the opportunity list
	width      int
	height     int
	fatal      string
	lastUpdate time.Time
	errors     []ErrorEntry // Persistent error panel (last 3)
	logs       []string     // Recent log messages

	// Startup state
	startupSteps map[string]*StartupStep
	startupTime  time.Time

	// Activity tracking
	activityFeed []string
	seen         int
}

// New creates a new TUI model. onStart runs once, when the welcome screen
// ends, and should begin starting modules.
func New(onStart func()) *Model {
	now := time.Now()
	return &Model{
		opportunities: components.NewOpportunitiesComponent(50, 10),
		positions:     components.NewPositionsComponent(5),
		stats:         components.NewStatsComponent(),
		status:        components.NewStatusComponent(ConnRPC, ConnStream),
		keys:          DefaultKeyMap(),
		help:          help.New(),
		phase:         PhaseWelcome,
		welcomeStart:  now,
		onStart:       onStart,
		logs:          make([]string, 0, 10),
		errors:        make([]ErrorEntry, 0, 3),
		activityFeed:  make([]string, 0, 8),
		startupSteps: map[string]*StartupStep{
			"config": {Name: "Loading configuration", Status: "pending"},
			"rpc":    {Name: "Connecting to RPC", Status: "pending"},
			"stream": {Name: "Opening account stream", Status: "pending"},
			"pools":  {Name: "Loading pools", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	if m.onStart != nil {
		go m.onStart()
		m.onStart = nil
	}
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.opportunities.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.opportunities.ScrollDown()
		case key.Matches(msg, m.keys.Errors):
			m.errors = make([]ErrorEntry, 0, 3)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		return m, tickCmd()

	case OpportunityMsg:
		m.seen++
		opp := msg.Opportunity
		m.activityFeed = addActivity(m.activityFeed, opp.Describe())
		m.lastUpdate = time.Now()
		if m.paused {
			return m, nil
		}
		m.opportunities.Add(components.OpportunityRow{
			Time:       opp.Timestamp.Format("15:04:05"),
			Type:       string(opp.Type),
			Market:     market(opp.Pair(), opp.Pool),
			Size:       opp.SuggestedSize,
			Expected:   opp.ExpectedProfit,
			Confidence: opp.Confidence,
		})

	case PositionMsg:
		p := msg.Position
		row := components.PositionRow{
			ID:        p.ID,
			Pool:      p.Pool,
			Side:      string(p.Side),
			Amount:    p.Amount,
			Entry:     p.EntryPrice,
			PnL:       p.RealizedPnL,
			Reason:    p.CloseReason,
			Open:      p.Status == positionDomain.StatusOpen,
			UpdatedAt: p.OpenTime,
		}
		if !row.Open {
			row.UpdatedAt = p.CloseTime
		}
		m.positions.Upsert(row)
		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("%s %s", msg.Topic, components.ShortID(p.ID)))
		m.lastUpdate = time.Now()

	case MetricsMsg:
		s := msg.Snapshot
		m.stats.Update(components.Stats{
			Trades:          s.Trades,
			Wins:            s.SuccessfulTrades,
			WinRate:         s.WinRate,
			TotalProfit:     s.TotalProfit,
			AverageProfit:   s.AverageProfit,
			TradesPerDay:    s.TradesPerDay,
			DailyVolume:     s.DailyVolume,
			DailyProfitLoss: s.DailyProfitLoss,
			OpenPositions:   s.OpenPositions,
			RiskMode:        s.RiskMode,
			WalletBalance:   s.WalletBalance,
			Opportunities:   m.seen,
		})
		m.lastUpdate = time.Now()

	case ConnectionMsg:
		m.applyConnection(msg.State)

	case ErrorMsg:
		m.addError(msg.Error.Error())

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
	}

	return m, nil
}

func (m *Model) applyConnection(s connDomain.State) {
	now := time.Now()
	m.status.Update(components.ConnectionStatus{
		Name:       ConnRPC,
		Connected:  s.RPCConnected,
		Detail:     s.Endpoint,
		LastUpdate: now,
	})
	m.status.Update(components.ConnectionStatus{
		Name:       ConnStream,
		Connected:  s.WSConnected,
		LastUpdate: now,
	})
	m.lastUpdate = now

	m.startupSteps["config"].Status = "done"
	m.startupSteps["rpc"].Status = connStep(s.RPCConnected)
	m.startupSteps["stream"].Status = connStep(s.WSConnected)
	if s.RPCConnected {
		m.startupSteps["pools"].Status = "done"
	}

	if s.Fatal {
		m.fatal = s.Reason
		m.addError("connection lost: " + s.Reason)
	}
}

func (m *Model) addError(msg string) {
	m.logs = addLog(m.logs, "error", msg)
	m.errors = append(m.errors, ErrorEntry{Message: msg, Timestamp: time.Now()})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
}

func connStep(up bool) string {
	if up {
		return "connected"
	}
	return "connecting"
}

func (m *Model) startupComplete() bool {
	for _, step := range m.startupSteps {
		if step.Status != "connected" && step.Status != "done" {
			return false
		}
	}
	return true
}

func market(pair, pool string) string {
	if pair != "" {
		return pair
	}
	return pool
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// addActivity adds an activity message and returns the updated slice (keeps last 6).
func addActivity(feed []string, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s", timestamp, message)
	feed = append(feed, line)
	if len(feed) > 6 {
		feed = feed[len(feed)-6:]
	}
	return feed
}

// View renders the TUI.
func (m *Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		if !m.startupComplete() {
			return m.renderStartupScreen()
		}
		m.phase = PhaseDashboard
	}

	var b strings.Builder

	b.WriteString(BannerStyle.Render(" Pool Sniper "))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	leftCol := m.positions.View()

	var rightContent strings.Builder
	rightContent.WriteString(m.renderActivityFeed())
	rightContent.WriteString("\n\n")
	rightContent.WriteString(m.opportunities.View())
	rightCol := rightContent.String()

	if m.width > 100 {
		left := PanelStyle.Width(m.width/2 - 2).Render(leftCol)
		right := PanelStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		width := max(m.width-4, 40)
		b.WriteString(PanelStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(PanelStyle.Width(width).Render(rightCol))
	}

	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorLoss)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorLoss)
		mutedError := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(mutedError.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(mutedError.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		pauseStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarn)
		b.WriteString(pauseStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderActivityFeed renders the recent activity feed.
func (m *Model) renderActivityFeed() string {
	headerStyle := SectionStyle
	mutedStyle := DimStyle
	positionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(mutedStyle.Render("  Waiting for pool updates..."))
		return sb.String()
	}
	for _, activity := range m.activityFeed {
		if strings.Contains(activity, "position:") {
			sb.WriteString(positionStyle.Render("  " + activity))
		} else {
			sb.WriteString(mutedStyle.Render("  " + activity))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m *Model) renderWelcomeScreen() string {
	titleStyle := SectionStyle
	goldStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarn)
	mutedStyle := DimStyle
	greenStyle := lipgloss.NewStyle().Foreground(ColorGain)

	elapsed := time.Since(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
   ███████╗███╗   ██╗██╗██████╗ ███████╗██████╗
   ██╔════╝████╗  ██║██║██╔══██╗██╔════╝██╔══██╗
   ███████╗██╔██╗ ██║██║██████╔╝█████╗  ██████╔╝
   ╚════██║██║╚██╗██║██║██╔═══╝ ██╔══╝  ██╔══██╗
   ███████║██║ ╚████║██║██║     ███████╗██║  ██║
   ╚══════╝╚═╝  ╚═══╝╚═╝╚═╝     ╚══════╝╚═╝  ╚═╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("              P O O L   S N I P E R"))
	sb.WriteString("\n\n\n")
	sb.WriteString(goldStyle.Render("        spread • arbitrage • sandwich"))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("                Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("          Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m *Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	mutedStyle := DimStyle
	successStyle := lipgloss.NewStyle().Foreground(ColorGain)
	connectingStyle := lipgloss.NewStyle().Foreground(ColorWarn)
	failedStyle := lipgloss.NewStyle().Foreground(ColorLoss)

	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  Pool Sniper"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range stepOrder {
		step := m.startupSteps[k]

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", successStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon, statusText, style = spinners[idx], "Connecting...", connectingStyle
		case "failed":
			icon, statusText, style = "✗", "Failed", failedStyle
		default:
			icon, statusText, style = "○", "Pending", mutedStyle
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			mutedStyle.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n")

	if len(m.errors) > 0 {
		sb.WriteString("\n")
		sb.WriteString(failedStyle.Render("  " + m.errors[len(m.errors)-1].Message))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m *Model) renderStatusBar() string {
	parts := []string{m.status.View()}

	if m.fatal != "" {
		parts = append(parts, FatalStyle.Render("FATAL: "+m.fatal))
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		indicator := ""
		if ago < 2*time.Second {
			indicator = "▪"
		}
		parts = append(parts, DimStyle.Render(fmt.Sprintf("Updated: %s ago %s", ago, indicator)))
	}

	return strings.Join(parts, "  │  ")
}
