// Package main is the entry point for the pool sniper.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fd1az/pool-sniper/business/connection"
	connectionDI "github.com/fd1az/pool-sniper/business/connection/di"
	"github.com/fd1az/pool-sniper/business/execution"
	"github.com/fd1az/pool-sniper/business/market"
	"github.com/fd1az/pool-sniper/business/monitoring"
	"github.com/fd1az/pool-sniper/business/pathfinding"
	"github.com/fd1az/pool-sniper/business/position"
	"github.com/fd1az/pool-sniper/business/risk"
	riskDI "github.com/fd1az/pool-sniper/business/risk/di"
	riskDomain "github.com/fd1az/pool-sniper/business/risk/domain"
	"github.com/fd1az/pool-sniper/business/strategy"
	"github.com/fd1az/pool-sniper/internal/apm"
	"github.com/fd1az/pool-sniper/internal/config"
	"github.com/fd1az/pool-sniper/internal/health"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/metrics"
	"github.com/fd1az/pool-sniper/internal/monolith"
	"github.com/fd1az/pool-sniper/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "sniper",
		Short:        "Solana pool opportunity pipeline",
		SilenceUsage: true,
		RunE:         runPipeline,
	}
	root.PersistentFlags().String("config", "", "path to configuration file")
	root.Flags().Bool("cli", false, "run with JSON logs instead of the TUI")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline (default)",
		RunE:  runPipeline,
	}
	runCmd.Flags().Bool("cli", false, "run with JSON logs instead of the TUI")
	root.AddCommand(runCmd)

	root.AddCommand(&cobra.Command{
		Use:   "pools",
		Short: "Print the configured pool universe",
		RunE:  runPools,
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pool-sniper %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cliMode, _ := cmd.Flags().GetBool("cli")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// TUI is the default, CLI is for debugging
	cfg.App.TUIMode = !cliMode

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// In TUI mode, suppress logs (discard output)
	var out io.Writer = os.Stderr
	if cfg.App.TUIMode {
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	defer log.Sync()

	log.Info(ctx, "starting pool sniper",
		"version", version,
		"environment", cfg.App.Environment,
		"dry_run", cfg.Execution.DryRun,
	)

	shutdownTelemetry := setupTelemetry(ctx, cfg, log)
	defer shutdownTelemetry()

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	var program *tea.Program
	startSignal := make(chan struct{}, 1)
	if cfg.App.TUIMode {
		program = tea.NewProgram(ui.New(func() {
			select {
			case startSignal <- struct{}{}:
			default:
			}
		}), tea.WithAltScreen())
	}

	monitoringModule := &monitoring.Module{}
	if program != nil {
		monitoringModule.TUI = program
	}

	// Define modules in dependency order
	modules := []monolith.Module{
		&connection.Module{},
		&market.Module{},
		&pathfinding.Module{},
		&strategy.Module{},
		&risk.Module{},
		&position.Module{},
		&execution.Module{},
		monitoringModule,
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	healthServer := startHealth(cfg, mono, log)
	if healthServer != nil {
		defer healthServer.Stop(context.Background())
	}

	// Only modules that started are stopped.
	var started []monolith.Module
	start := func() error {
		for _, m := range modules {
			if err := mono.StartModules(ctx, m); err != nil {
				return fmt.Errorf("failed to start modules: %w", err)
			}
			started = append(started, m)
		}
		return nil
	}
	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		mono.StopModules(sctx, started...)
	}

	if program != nil {
		return runTUI(ctx, stop, program, startSignal, start, shutdown)
	}
	return runCLI(ctx, log, start, shutdown)
}

func runCLI(ctx context.Context, log logger.LoggerInterface, start func() error, shutdown func()) error {
	if err := start(); err != nil {
		shutdown()
		return err
	}
	log.Info(ctx, "all modules started, watching pools")

	<-ctx.Done()

	log.Info(ctx, "shutting down")
	shutdown()
	return nil
}

func runTUI(
	ctx context.Context,
	cancel context.CancelFunc,
	p *tea.Program,
	startSignal <-chan struct{},
	start func() error,
	shutdown func(),
) error {
	errCh := make(chan error, 1)
	go func() {
		// Wait for the welcome screen to complete
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		p.Send(ui.StartupMsg{Step: "config", Status: "done"})
		p.Send(ui.StartupMsg{Step: "rpc", Status: "connecting"})
		if err := start(); err != nil {
			p.Send(ui.ErrorMsg{Error: err})
			shutdown()
			errCh <- err
			return
		}
		p.Send(ui.StartupMsg{Step: "pools", Status: "done"})

		<-ctx.Done()
		shutdown()
		errCh <- nil
	}()

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, runErr := p.Run()
	// Quitting the TUI stops the pipeline too
	cancel()
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return <-errCh
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}

	var traceOpts []apm.TracerOption
	traceOpts = append(traceOpts,
		apm.WithProvider(apm.Provider(cfg.Telemetry.Exporter), cfg.Telemetry.Endpoint),
		apm.WithServiceName(cfg.Telemetry.ServiceName),
	)
	if cfg.App.TUIMode {
		traceOpts = append(traceOpts, apm.WithConsoleOutput(io.Discard))
	}
	traceProvider, err := apm.NewTraceProvider(log, traceOpts...)
	if err != nil {
		log.Warn(ctx, "tracing disabled", "error", err)
	}

	meterProvider, err := metrics.NewMetricProvider(
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithPrometheus(),
	)
	if err != nil {
		log.Warn(ctx, "metrics disabled", "error", err)
	}

	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	promServer := metrics.NewPromServer(log, metrics.WithPort(strconv.Itoa(port)))
	promServer.Start()

	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = promServer.Stop(sctx)
		if meterProvider != nil {
			_ = meterProvider.Shutdown(sctx)
		}
		if traceProvider != nil {
			_ = traceProvider.Stop()
		}
	}
}

func startHealth(cfg *config.Config, mono monolith.Monolith, log logger.LoggerInterface) *health.Server {
	if !cfg.Health.Enabled {
		return nil
	}
	srv := health.NewServer(cfg.Health.Port, version, log)
	sr := mono.Services()

	srv.RegisterCheck("connection", func(context.Context) (bool, string) {
		s := connectionDI.GetStateTracker(sr).Snapshot()
		switch {
		case s.Fatal:
			return false, s.Reason
		case !s.Healthy():
			return false, fmt.Sprintf("rpc=%t ws=%t %s", s.RPCConnected, s.WSConnected, s.LastError)
		}
		return true, s.Endpoint
	})
	srv.RegisterCheck("risk", func(context.Context) (bool, string) {
		s := riskDI.GetGuard(sr).Snapshot()
		if s.Mode == riskDomain.ModeCooldown {
			return false, "cooldown until " + s.CooldownUntil.Format(time.RFC3339)
		}
		return true, string(s.Mode)
	})

	srv.Start()
	log.Info(context.Background(), "health server started", "port", cfg.Health.Port)
	return srv
}

func runPools(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(io.Discard, logger.LevelError, cfg.App.Name, nil)
	mono, err := monolith.New(cfg, log)
	if err != nil {
		return err
	}
	defer mono.Close()

	specs, err := market.Universe(cfg, mono.AssetRegistry())
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("#", "Address", "Token A", "Mint A", "Token B", "Mint B")
	for i, s := range specs {
		table.Append(
			strconv.Itoa(i+1),
			s.Address,
			s.TokenA.Symbol(),
			s.TokenA.Mint(),
			s.TokenB.Symbol(),
			s.TokenB.Mint(),
		)
	}
	return table.Render()
}
