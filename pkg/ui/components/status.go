package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus represents a connection's status.
type ConnectionStatus struct {
	Name       string
	Connected  bool
	Detail     string
	LastUpdate time.Time
}

// StatusComponent renders connection status.
type StatusComponent struct {
	connections []ConnectionStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent(names ...string) *StatusComponent {
	s := &StatusComponent{connections: make([]ConnectionStatus, 0, len(names))}
	for _, n := range names {
		s.connections = append(s.connections, ConnectionStatus{Name: n})
	}
	return s
}

// Update updates a connection's status.
func (s *StatusComponent) Update(status ConnectionStatus) {
	for i, conn := range s.connections {
		if conn.Name == status.Name {
			s.connections[i] = status
			return
		}
	}
	s.connections = append(s.connections, status)
}

// Get returns a connection by name.
func (s *StatusComponent) Get(name string) (ConnectionStatus, bool) {
	for _, c := range s.connections {
		if c.Name == name {
			return c, true
		}
	}
	return ConnectionStatus{}, false
}

// View renders the status component on one line.
func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return "No connections"
	}

	parts := make([]string, 0, len(s.connections))
	for _, conn := range s.connections {
		icon := "●"
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
		if !conn.Connected {
			icon = "○"
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
		}

		label := conn.Name
		if conn.Detail != "" {
			label += fmt.Sprintf(" (%s)", conn.Detail)
		}
		parts = append(parts, style.Render(icon+" "+label))
	}

	return strings.Join(parts, "  │  ")
}
