// Package connection implements the connection bounded context: RPC endpoint
// selection, health checking and the account-notification stream.
package connection

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/fd1az/pool-sniper/business/connection/app"
	connectionDI "github.com/fd1az/pool-sniper/business/connection/di"
	"github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/business/connection/infra/solana"
	"github.com/fd1az/pool-sniper/internal/config"
	"github.com/fd1az/pool-sniper/internal/di"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/monolith"
)

// Module implements the connection bounded context.
type Module struct {
	supervisor *app.Supervisor
	stream     *app.StreamSupervisor
	rpc        *solana.RPCClient
}

// RegisterServices registers all connection services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, connectionDI.StateTracker, func(sr di.ServiceRegistry) *app.StateTracker {
		bus := sr.Get("bus").(*eventbus.Bus)
		clk := sr.Get("clock").(clockwork.Clock)
		return app.NewStateTracker(bus, clk)
	})

	di.RegisterToken(c, connectionDI.RPCClient, func(sr di.ServiceRegistry) *solana.RPCClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		rpcCfg := solana.DefaultRPCClientConfig()
		if cfg.Connection.RequestTimeout > 0 {
			rpcCfg.RequestTimeout = cfg.Connection.RequestTimeout
		}
		if cfg.Connection.RequestsPerSecond > 0 {
			rpcCfg.RequestsPerSecond = cfg.Connection.RequestsPerSecond
		}
		if cfg.Connection.Burst > 0 {
			rpcCfg.Burst = cfg.Connection.Burst
		}
		if cfg.Connection.Commitment != "" {
			rpcCfg.Commitment = cfg.Connection.Commitment
		}

		client, err := solana.NewRPCClient(rpcCfg, log)
		if err != nil {
			panic("failed to create rpc client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, connectionDI.Supervisor, func(sr di.ServiceRegistry) *app.Supervisor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		clk := sr.Get("clock").(clockwork.Clock)

		sup, err := app.NewSupervisor(
			supervisorConfig(cfg.Connection),
			connectionDI.GetRPCClient(sr),
			connectionDI.GetStateTracker(sr),
			clk,
			log,
		)
		if err != nil {
			panic("failed to create connection supervisor: " + err.Error())
		}
		return sup
	})

	di.RegisterToken(c, connectionDI.AccountStream, func(sr di.ServiceRegistry) *solana.AccountStream {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		clk := sr.Get("clock").(clockwork.Clock)

		stream, err := solana.NewAccountStream(StreamURL(cfg), cfg.Connection.Commitment, clk, log)
		if err != nil {
			panic("failed to create account stream: " + err.Error())
		}
		return stream
	})

	di.RegisterToken(c, connectionDI.StreamSupervisor, func(sr di.ServiceRegistry) *app.StreamSupervisor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		clk := sr.Get("clock").(clockwork.Clock)

		streamCfg := app.DefaultStreamConfig()
		if cfg.Stream.MaxReconnects > 0 {
			streamCfg.MaxReconnects = cfg.Stream.MaxReconnects
		}
		if cfg.Stream.ReconnectBase > 0 {
			streamCfg.ReconnectBase = cfg.Stream.ReconnectBase
		}
		if cfg.Stream.HeartbeatInterval > 0 {
			streamCfg.HeartbeatInterval = cfg.Stream.HeartbeatInterval
		}
		return app.NewStreamSupervisor(streamCfg, connectionDI.GetAccountStream(sr),
			connectionDI.GetStateTracker(sr), clk, log)
	})

	return nil
}

// Startup selects an RPC endpoint, then starts health checks and the stream.
// A failed stream open is left to the reconnect policy.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	sr := mono.Services()

	m.rpc = connectionDI.GetRPCClient(sr)
	m.supervisor = connectionDI.GetSupervisor(sr)
	m.stream = connectionDI.GetStreamSupervisor(sr)

	if err := m.supervisor.Connect(ctx); err != nil {
		return err
	}
	m.supervisor.Start(ctx)

	if err := m.stream.Start(ctx); err != nil {
		log.Warn(ctx, "account stream not up yet", "error", err)
	}

	log.Info(ctx, "connection module started", "endpoint", m.rpc.Endpoint().Name)
	return nil
}

// Shutdown stops the stream and health tasks and releases the RPC client.
func (m *Module) Shutdown(context.Context) error {
	if m.supervisor == nil {
		return nil
	}
	err := m.stream.Stop()
	m.supervisor.Stop()
	m.rpc.Close()
	return err
}

func supervisorConfig(cfg config.ConnectionConfig) app.SupervisorConfig {
	sorted := cfg.SortedEndpoints()
	endpoints := make([]domain.Endpoint, 0, len(sorted))
	for _, e := range sorted {
		endpoints = append(endpoints, domain.Endpoint{Name: e.Name, URL: e.URL, Priority: e.Priority})
	}

	out := app.DefaultSupervisorConfig(endpoints)
	if cfg.ConnectRetries > 0 {
		out.ConnectRetries = cfg.ConnectRetries
	}
	if cfg.BackoffBase > 0 {
		out.BackoffBase = cfg.BackoffBase
	}
	if cfg.BackoffCap > 0 {
		out.BackoffCap = cfg.BackoffCap
	}
	if cfg.HealthInterval > 0 {
		out.HealthInterval = cfg.HealthInterval
	}
	if cfg.MaxReconnectAttempts > 0 {
		out.MaxReconnectAttempts = cfg.MaxReconnectAttempts
	}
	return out
}

// StreamURL returns the configured websocket URL, or the primary RPC URL
// with its scheme switched to ws/wss.
func StreamURL(cfg *config.Config) string {
	if cfg.Stream.URL != "" {
		return cfg.Stream.URL
	}
	sorted := cfg.Connection.SortedEndpoints()
	if len(sorted) == 0 {
		return ""
	}
	u := sorted[0].URL
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
