// Package monitoring implements the monitoring bounded context: trade
// performance, the metrics:update stream and operator reporting.
package monitoring

import (
	"context"

	"github.com/jonboulle/clockwork"

	connectionDI "github.com/fd1az/pool-sniper/business/connection/di"
	executionDI "github.com/fd1az/pool-sniper/business/execution/di"
	"github.com/fd1az/pool-sniper/business/monitoring/app"
	monitoringDI "github.com/fd1az/pool-sniper/business/monitoring/di"
	"github.com/fd1az/pool-sniper/business/monitoring/infra/console"
	"github.com/fd1az/pool-sniper/business/monitoring/infra/tui"
	positionDI "github.com/fd1az/pool-sniper/business/position/di"
	riskDI "github.com/fd1az/pool-sniper/business/risk/di"
	"github.com/fd1az/pool-sniper/internal/config"
	"github.com/fd1az/pool-sniper/internal/di"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/monolith"
)

// Reporter kinds accepted by monitoring.reporter.
const (
	ReporterConsole = "console"
	ReporterNone    = "none"
)

// Module implements the monitoring bounded context.
type Module struct {
	// TUI receives reports instead of the configured reporter when set.
	TUI tui.Sender

	monitor *app.Monitor
	feed    *app.Feed
}

// RegisterServices registers the monitor, the reporter and its feed.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, monitoringDI.Monitor, func(sr di.ServiceRegistry) *app.Monitor {
		cfg := sr.Get("config").(*config.Config)
		mcfg := MonitorConfig(cfg.Monitoring)
		mcfg.WalletAddress = executionDI.GetWallet(sr).PublicKey()

		mon, err := app.NewMonitor(
			mcfg,
			riskDI.GetGuard(sr),
			positionDI.GetManager(sr),
			connectionDI.GetRPCClient(sr),
			sr.Get("bus").(*eventbus.Bus),
			sr.Get("clock").(clockwork.Clock),
			sr.Get("logger").(logger.LoggerInterface),
		)
		if err != nil {
			panic("failed to create performance monitor: " + err.Error())
		}
		return mon
	})

	di.RegisterToken(c, monitoringDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		if m.TUI != nil {
			return tui.NewReporter(m.TUI)
		}
		cfg := sr.Get("config").(*config.Config)
		switch cfg.Monitoring.Reporter {
		case ReporterNone:
			return nil
		default:
			return console.NewReporter()
		}
	})

	di.RegisterToken(c, monitoringDI.Feed, func(sr di.ServiceRegistry) *app.Feed {
		reporter := monitoringDI.GetReporter(sr)
		if reporter == nil {
			return nil
		}
		return app.NewFeed(reporter, sr.Get("bus").(*eventbus.Bus), sr.Get("logger").(logger.LoggerInterface))
	})

	return nil
}

// Startup starts the monitor and the report feed.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	m.feed = monitoringDI.GetFeed(mono.Services())
	if m.feed != nil {
		if err := m.feed.Start(ctx); err != nil {
			return err
		}
	}

	m.monitor = monitoringDI.GetMonitor(mono.Services())
	m.monitor.Start(ctx)

	mono.Logger().Info(ctx, "monitoring module started",
		"metrics_interval", mono.Config().Monitoring.MetricsInterval,
		"reporter", m.reporterName(mono.Config().Monitoring.Reporter))
	return nil
}

// Shutdown stops the monitor, then the feed.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.monitor != nil {
		if err := m.monitor.Close(); err != nil {
			return err
		}
	}
	if m.feed != nil {
		return m.feed.Stop()
	}
	return nil
}

func (m *Module) reporterName(configured string) string {
	if m.TUI != nil {
		return "tui"
	}
	if configured == "" {
		return ReporterConsole
	}
	return configured
}

// MonitorConfig maps configuration onto monitor settings.
func MonitorConfig(cfg config.MonitoringConfig) app.Config {
	c := app.DefaultConfig()
	if cfg.MetricsInterval > 0 {
		c.MetricsInterval = cfg.MetricsInterval
	}
	if cfg.RecentTrades > 0 {
		c.RecentTrades = cfg.RecentTrades
	}
	return c
}
