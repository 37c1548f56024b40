package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/circuitbreaker"
	"github.com/fd1az/pool-sniper/internal/logger"
)

const meterName = "github.com/fd1az/pool-sniper/business/connection"

// SupervisorConfig holds RPC endpoint and health-check policy.
type SupervisorConfig struct {
	Endpoints            []domain.Endpoint // priority order, primary first
	ConnectRetries       int
	BackoffBase          time.Duration
	BackoffCap           time.Duration
	HealthInterval       time.Duration
	MaxReconnectAttempts int
}

// DefaultSupervisorConfig returns the documented defaults.
func DefaultSupervisorConfig(endpoints []domain.Endpoint) SupervisorConfig {
	return SupervisorConfig{
		Endpoints:            endpoints,
		ConnectRetries:       3,
		BackoffBase:          time.Second,
		BackoffCap:           10 * time.Second,
		HealthInterval:       30 * time.Second,
		MaxReconnectAttempts: 3,
	}
}

type supervisorMetrics struct {
	connectAttempts metric.Int64Counter
	healthFailures  metric.Int64Counter
	rpcConnected    metric.Int64Gauge
}

// Supervisor selects an RPC endpoint and keeps it healthy.
type Supervisor struct {
	cfg       SupervisorConfig
	transport RPCTransport
	tracker   *StateTracker
	clock     clockwork.Clock
	log       logger.LoggerInterface
	breaker   *circuitbreaker.CircuitBreaker[struct{}]
	metrics   *supervisorMetrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSupervisor creates a supervisor; nothing runs until Connect/Start.
func NewSupervisor(
	cfg SupervisorConfig,
	transport RPCTransport,
	tracker *StateTracker,
	clk clockwork.Clock,
	log logger.LoggerInterface,
) (*Supervisor, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("no rpc endpoints"))
	}
	if cfg.ConnectRetries < 1 {
		cfg.ConnectRetries = 1
	}

	s := &Supervisor{
		cfg:       cfg,
		transport: transport,
		tracker:   tracker,
		clock:     clk,
		log:       log,
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("rpc-health")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		s.log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	s.breaker = circuitbreaker.New[struct{}](cbCfg)

	return s, nil
}

func (s *Supervisor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &supervisorMetrics{}

	s.metrics.connectAttempts, err = meter.Int64Counter(
		"rpc_connect_attempts_total",
		metric.WithDescription("RPC endpoint connection attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	s.metrics.healthFailures, err = meter.Int64Counter(
		"rpc_health_failures_total",
		metric.WithDescription("Failed RPC liveness probes"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	s.metrics.rpcConnected, err = meter.Int64Gauge(
		"rpc_connected",
		metric.WithDescription("RPC connectivity (0=down, 1=up)"),
	)
	return err
}

func (s *Supervisor) setConnected(ctx context.Context, up bool) {
	v := int64(0)
	if up {
		v = 1
	}
	s.metrics.rpcConnected.Record(ctx, v)
}

// Connect tries every endpoint in priority order. All endpoints failing is
// fatal for the RPC connection and is published as such.
func (s *Supervisor) Connect(ctx context.Context) error {
	err := s.connect(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.tracker.Update(ctx, func(st *domain.State) {
		st.RPCConnected = false
		st.Fatal = true
		st.Reason = domain.ReasonRPCExhausted
		st.LastError = err.Error()
	})
	s.setConnected(ctx, false)
	return err
}

func (s *Supervisor) connect(ctx context.Context) error {
	var lastErr error
	for _, ep := range s.cfg.Endpoints {
		for attempt := 1; attempt <= s.cfg.ConnectRetries; attempt++ {
			s.metrics.connectAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", ep.Name)))

			err := s.transport.Dial(ctx, ep)
			if err == nil {
				s.tracker.Update(ctx, func(st *domain.State) {
					st.RPCConnected = true
					st.ReconnectAttempts = 0
					st.Endpoint = ep.Name
					st.LastError = ""
					if st.Reason != domain.ReasonStreamExhausted {
						st.Fatal = false
						st.Reason = ""
					}
				})
				s.setConnected(ctx, true)
				s.log.Info(ctx, "rpc connected", "endpoint", ep.Name, "attempt", attempt)
				return nil
			}

			lastErr = err
			s.log.Warn(ctx, "rpc connect failed", "endpoint", ep.Name, "attempt", attempt, "error", err)

			if attempt == s.cfg.ConnectRetries {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(s.backoff(attempt)):
			}
		}
	}

	return apperror.Connection(apperror.CodeConnectionExhausted,
		fmt.Sprintf("%d endpoints", len(s.cfg.Endpoints)), lastErr)
}

// backoff is min(base·2^(n−1), cap).
func (s *Supervisor) backoff(attempt int) time.Duration {
	d := s.cfg.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= s.cfg.BackoffCap {
			return s.cfg.BackoffCap
		}
	}
	if s.cfg.BackoffCap > 0 && d > s.cfg.BackoffCap {
		return s.cfg.BackoffCap
	}
	return d
}

// Verify runs one liveness probe through the breaker.
func (s *Supervisor) Verify(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.transport.Health(ctx)
	})
	if err == nil {
		if prev := s.tracker.Snapshot(); !prev.RPCConnected || prev.ReconnectAttempts != 0 {
			s.tracker.Update(ctx, func(st *domain.State) {
				st.RPCConnected = true
				st.ReconnectAttempts = 0
				st.LastError = ""
			})
		}
		s.setConnected(ctx, true)
		return nil
	}

	s.metrics.healthFailures.Add(ctx, 1)
	s.tracker.Update(ctx, func(st *domain.State) {
		st.RPCConnected = false
		st.LastError = err.Error()
	})
	s.setConnected(ctx, false)
	return apperror.Wrap(err, apperror.CodeConnectionError, "health probe")
}

// Start runs the recurring health check until Stop.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.healthLoop(ctx, s.done)
}

func (s *Supervisor) healthLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := s.clock.NewTicker(s.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
		if ctx.Err() != nil {
			return
		}

		if err := s.Verify(ctx); err == nil {
			continue
		}

		st := s.tracker.Update(ctx, func(st *domain.State) { st.ReconnectAttempts++ })
		if st.ReconnectAttempts > s.cfg.MaxReconnectAttempts {
			s.tracker.Update(ctx, func(st *domain.State) {
				st.Fatal = true
				st.Reason = domain.ReasonHealthExhausted
			})
			s.log.Error(ctx, "rpc reconnect attempts exhausted, health checks stopped",
				"attempts", st.ReconnectAttempts-1)
			return
		}

		s.log.Warn(ctx, "rpc unhealthy, reconnecting", "attempt", st.ReconnectAttempts)
		if err := s.connect(ctx); err != nil && ctx.Err() == nil {
			s.tracker.Update(ctx, func(st *domain.State) { st.LastError = err.Error() })
			s.log.Warn(ctx, "rpc reconnect failed", "attempt", st.ReconnectAttempts, "error", err)
		}
	}
}

// Stop cancels the health task and waits for it.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
