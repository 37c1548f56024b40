package monitoring

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/fd1az/pool-sniper/internal/config"
)

func TestMonitorConfig(t *testing.T) {
	c := MonitorConfig(config.MonitoringConfig{MetricsInterval: 2 * time.Second, RecentTrades: 10})
	assert.Equal(t, 2*time.Second, c.MetricsInterval)
	assert.Equal(t, 10, c.RecentTrades)
	assert.Equal(t, 30*time.Second, c.BalanceInterval)

	d := MonitorConfig(config.MonitoringConfig{})
	assert.Equal(t, time.Second, d.MetricsInterval)
	assert.Equal(t, 100, d.RecentTrades)
}

func TestModule_ReporterName(t *testing.T) {
	m := &Module{}
	assert.Equal(t, "console", m.reporterName(""))
	assert.Equal(t, "none", m.reporterName("none"))

	m.TUI = nopSender{}
	assert.Equal(t, "tui", m.reporterName("console"))
}

type nopSender struct{}

func (nopSender) Send(tea.Msg) {}
