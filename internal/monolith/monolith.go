// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/config"
	"github.com/fd1az/pool-sniper/internal/di"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Bus() *eventbus.Bus
	Clock() clockwork.Clock
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// Stopper is implemented by modules that own background tasks.
type Stopper interface {
	Shutdown(context.Context) error
}

// app implements the Monolith interface.
type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	bus           *eventbus.Bus
	clock         clockwork.Clock
	assetRegistry *asset.Registry
	container     di.Container
}

// Option configures the container.
type Option func(*app)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clk clockwork.Clock) Option {
	return func(a *app) {
		a.clock = clk
	}
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface, opts ...Option) (*app, error) {
	assetRegistry := asset.DefaultRegistry()
	for _, tc := range cfg.Market.Tokens {
		if _, ok := assetRegistry.Get(tc.Mint); ok {
			continue
		}
		a, err := asset.NewAsset(tc.Mint, tc.Symbol, tc.Decimals)
		if err != nil {
			return nil, fmt.Errorf("market.tokens: %w", err)
		}
		if err := assetRegistry.Register(a); err != nil {
			return nil, fmt.Errorf("market.tokens: %w", err)
		}
	}

	a := &app{
		config:        cfg,
		logger:        log,
		bus:           eventbus.New(log),
		clock:         clockwork.NewRealClock(),
		assetRegistry: assetRegistry,
		container:     di.NewContainer(),
	}
	for _, opt := range opts {
		opt(a)
	}

	// Register global services
	a.container.Register("config", cfg)
	a.container.Register("logger", log)
	a.container.Register("bus", a.bus)
	a.container.Register("clock", a.clock)
	a.container.Register("assetRegistry", assetRegistry)

	return a, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Bus() *eventbus.Bus {
	return a.bus
}

func (a *app) Clock() clockwork.Clock {
	return a.clock
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// StopModules shuts modules down in reverse start order.
func (a *app) StopModules(ctx context.Context, modules ...Module) {
	for i := len(modules) - 1; i >= 0; i-- {
		s, ok := modules[i].(Stopper)
		if !ok {
			continue
		}
		if err := s.Shutdown(ctx); err != nil {
			a.logger.Warn(ctx, "module shutdown failed", "error", err)
		}
	}
}

// Close closes all resources.
func (a *app) Close() error {
	a.bus.Close()
	return nil
}
