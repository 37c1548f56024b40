// Package execution implements the execution bounded context: turning order
// legs into signed transactions, guarding exposure and confirming them.
package execution

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	connectionDI "github.com/fd1az/pool-sniper/business/connection/di"
	"github.com/fd1az/pool-sniper/business/execution/app"
	executionDI "github.com/fd1az/pool-sniper/business/execution/di"
	"github.com/fd1az/pool-sniper/business/execution/infra/blockhash"
	"github.com/fd1az/pool-sniper/business/execution/infra/rpcsubmit"
	"github.com/fd1az/pool-sniper/business/execution/infra/swapbuilder"
	"github.com/fd1az/pool-sniper/business/execution/infra/wallet"
	"github.com/fd1az/pool-sniper/internal/config"
	"github.com/fd1az/pool-sniper/internal/di"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers the wallet, builder, submitter and executor.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, executionDI.Wallet, func(sr di.ServiceRegistry) app.Wallet {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		kp, err := LoadWallet(cfg.Execution)
		if err != nil {
			panic("failed to load wallet: " + err.Error())
		}
		if cfg.Execution.KeypairPath == "" {
			log.Warn(context.Background(), "no keypair configured, using an ephemeral key",
				"public_key", kp.PublicKey())
		}
		return kp
	})

	di.RegisterToken(c, executionDI.Blockhash, func(sr di.ServiceRegistry) *blockhash.Oracle {
		o, err := blockhash.New(
			blockhash.DefaultConfig(),
			connectionDI.GetRPCClient(sr),
			sr.Get("clock").(clockwork.Clock),
			sr.Get("logger").(logger.LoggerInterface),
		)
		if err != nil {
			panic("failed to create blockhash oracle: " + err.Error())
		}
		return o
	})

	di.RegisterToken(c, executionDI.Builder, func(sr di.ServiceRegistry) app.Builder {
		cfg := sr.Get("config").(*config.Config)
		b, err := swapbuilder.New(
			cfg.Execution.ProgramID,
			executionDI.GetWallet(sr).PublicKey(),
			executionDI.GetBlockhash(sr),
		)
		if err != nil {
			panic("failed to create swap builder: " + err.Error())
		}
		return b
	})

	di.RegisterToken(c, executionDI.Submitter, func(sr di.ServiceRegistry) app.Submitter {
		return rpcsubmit.New(connectionDI.GetRPCClient(sr))
	})

	di.RegisterToken(c, executionDI.Guard, func(sr di.ServiceRegistry) *app.Guard {
		cfg := sr.Get("config").(*config.Config)
		return app.NewGuard(GuardConfig(cfg.Execution), sr.Get("clock").(clockwork.Clock))
	})

	di.RegisterToken(c, executionDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		e, err := app.NewExecutor(
			ExecutorConfig(cfg.Execution),
			executionDI.GetBuilder(sr),
			executionDI.GetWallet(sr),
			executionDI.GetSubmitter(sr),
			executionDI.GetGuard(sr),
			sr.Get("clock").(clockwork.Clock),
			sr.Get("logger").(logger.LoggerInterface),
		)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return e
	})

	di.RegisterToken(c, executionDI.LegExecutor, func(sr di.ServiceRegistry) *app.LegExecutor {
		return app.NewLegExecutor(executionDI.GetExecutor(sr))
	})

	return nil
}

// Startup resolves the executor so configuration errors surface at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	executor := executionDI.GetExecutor(mono.Services())
	mono.Logger().Info(ctx, "execution module started",
		"dry_run", cfg.Execution.DryRun,
		"payer", executionDI.GetWallet(mono.Services()).PublicKey(),
		"daily_limit", cfg.Execution.DailyLimit,
		"committed_today", executor.Guard().Snapshot().Committed.String())
	return nil
}

// LoadWallet reads the configured keypair, or generates an ephemeral one
// when no path is set.
func LoadWallet(cfg config.ExecutionConfig) (*wallet.Keypair, error) {
	if cfg.KeypairPath == "" {
		return wallet.Generate()
	}
	return wallet.Load(cfg.KeypairPath)
}

// GuardConfig maps configuration onto guard limits.
func GuardConfig(cfg config.ExecutionConfig) app.GuardConfig {
	return app.GuardConfig{
		MaxTransactionSize: decimal.NewFromFloat(cfg.MaxTransactionSize),
		DailyLimit:         decimal.NewFromFloat(cfg.DailyLimit),
	}
}

// ExecutorConfig maps configuration onto executor settings.
func ExecutorConfig(cfg config.ExecutionConfig) app.ExecutorConfig {
	return app.ExecutorConfig{
		MaxRetries:          cfg.MaxRetries,
		RetryDelay:          cfg.RetryDelay,
		ConfirmTimeout:      cfg.ConfirmTimeout,
		ConfirmPollInterval: cfg.ConfirmPollInterval,
		DryRun:              cfg.DryRun,
	}
}
