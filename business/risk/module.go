// Package risk implements the risk bounded context: admission control for
// opportunities and outcome bookkeeping for closed positions.
package risk

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	positionDI "github.com/fd1az/pool-sniper/business/position/di"
	"github.com/fd1az/pool-sniper/business/risk/app"
	riskDI "github.com/fd1az/pool-sniper/business/risk/di"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/config"
	"github.com/fd1az/pool-sniper/internal/di"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/monolith"
)

// Module implements the risk bounded context.
type Module struct {
	guard     *app.Guard
	admission *app.Admission
}

// RegisterServices registers the guard and the admission stage.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, riskDI.Guard, func(sr di.ServiceRegistry) *app.Guard {
		cfg := sr.Get("config").(*config.Config)
		g, err := app.NewGuard(
			GuardConfig(cfg.Risk),
			sr.Get("clock").(clockwork.Clock),
			sr.Get("logger").(logger.LoggerInterface),
		)
		if err != nil {
			panic("failed to create risk guard: " + err.Error())
		}
		return g
	})

	di.RegisterToken(c, riskDI.Admission, func(sr di.ServiceRegistry) *app.Admission {
		positions := positionDI.GetManager(sr)
		opener := app.OpenerFunc(func(ctx context.Context, opp strategy.Opportunity) error {
			_, err := positions.Open(ctx, opp)
			return err
		})
		return app.NewAdmission(
			riskDI.GetGuard(sr),
			opener,
			sr.Get("bus").(*eventbus.Bus),
			sr.Get("logger").(logger.LoggerInterface),
		)
	})

	return nil
}

// Startup starts the daily reset and subscribes the admission stage.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	m.guard = riskDI.GetGuard(mono.Services())
	m.admission = riskDI.GetAdmission(mono.Services())

	m.guard.Start(ctx)
	m.admission.Start()

	cfg := mono.Config().Risk
	mono.Logger().Info(ctx, "risk module started",
		"max_consecutive_losses", cfg.MaxConsecutiveLosses,
		"max_daily_loss_percentage", cfg.MaxDailyLossPercentage,
		"cooldown", cfg.Cooldown)
	return nil
}

// Shutdown stops admissions before the guard's timers.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.admission != nil {
		m.admission.Stop()
	}
	if m.guard != nil {
		m.guard.Stop()
	}
	return nil
}

// GuardConfig maps configuration onto guard limits.
func GuardConfig(cfg config.RiskConfig) app.GuardConfig {
	return app.GuardConfig{
		MinTradeInterval:       cfg.MinTradeInterval,
		MaxConsecutiveLosses:   cfg.MaxConsecutiveLosses,
		MaxDailyLossPercentage: decimal.NewFromFloat(cfg.MaxDailyLossPercentage),
		Cooldown:               cfg.Cooldown,
	}
}
