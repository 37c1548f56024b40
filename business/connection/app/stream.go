package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/logger"
)

// StreamConfig holds the websocket reconnect and heartbeat policy.
type StreamConfig struct {
	MaxReconnects     int
	ReconnectBase     time.Duration
	HeartbeatInterval time.Duration
}

// DefaultStreamConfig returns the documented defaults.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		MaxReconnects:     5,
		ReconnectBase:     5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// AccountHandler receives changes for one subscribed account.
type AccountHandler func(ctx context.Context, change domain.AccountChange)

type accountSub struct {
	address string
	handler AccountHandler
	wireID  uint64
	active  bool
}

// StreamSupervisor owns the account stream: it keeps a registry of
// subscriptions and replays it after every reconnect.
type StreamSupervisor struct {
	cfg       StreamConfig
	transport StreamTransport
	tracker   *StateTracker
	clock     clockwork.Clock
	log       logger.LoggerInterface

	mu           sync.Mutex
	subs         map[domain.SubscriptionID]*accountSub
	nextID       domain.SubscriptionID
	connected    bool
	reconnecting bool
	running      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStreamSupervisor creates an idle supervisor.
func NewStreamSupervisor(
	cfg StreamConfig,
	transport StreamTransport,
	tracker *StateTracker,
	clk clockwork.Clock,
	log logger.LoggerInterface,
) *StreamSupervisor {
	s := &StreamSupervisor{
		cfg:       cfg,
		transport: transport,
		tracker:   tracker,
		clock:     clk,
		log:       log,
		subs:      make(map[domain.SubscriptionID]*accountSub),
	}
	transport.OnNotification(s.dispatch)
	transport.OnDisconnect(s.handleDisconnect)
	return s
}

// Start opens the stream and starts the heartbeat. If the first open fails
// the reconnect policy takes over and the error is returned for logging.
func (s *StreamSupervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.mu.Unlock()

	s.wg.Add(1)
	go s.heartbeat(runCtx)

	if err := s.transport.Open(runCtx); err != nil {
		s.log.Warn(ctx, "stream open failed", "error", err)
		s.handleDisconnect(err)
		return apperror.Connection(apperror.CodeStreamError, "open", err)
	}
	s.onConnected(runCtx)
	return nil
}

func (s *StreamSupervisor) onConnected(ctx context.Context) {
	s.mu.Lock()
	s.connected = true
	s.reconnecting = false
	s.mu.Unlock()

	s.tracker.Update(ctx, func(st *domain.State) {
		st.WSConnected = true
		st.LastError = ""
		if st.Reason == domain.ReasonStreamExhausted {
			st.Fatal = false
			st.Reason = ""
		}
	})
	s.resubscribeAll(ctx)
}

func (s *StreamSupervisor) resubscribeAll(ctx context.Context) {
	s.mu.Lock()
	pending := make(map[domain.SubscriptionID]string, len(s.subs))
	for id, sub := range s.subs {
		if !sub.active {
			pending[id] = sub.address
		}
	}
	s.mu.Unlock()

	for id, address := range pending {
		wireID, err := s.transport.Subscribe(ctx, address)
		if err != nil {
			s.log.Warn(ctx, "resubscribe failed", "address", address, "error", err)
			continue
		}
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			sub.wireID = wireID
			sub.active = true
		}
		s.mu.Unlock()
	}
	if len(pending) > 0 {
		s.log.Info(ctx, "stream subscriptions restored", "count", len(pending))
	}
}

func (s *StreamSupervisor) heartbeat(ctx context.Context) {
	defer s.wg.Done()
	ticker := s.clock.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		s.mu.Lock()
		connected := s.connected
		s.mu.Unlock()
		if !connected {
			continue
		}
		if err := s.transport.Ping(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn(ctx, "stream heartbeat failed", "error", err)
			s.handleDisconnect(err)
		}
	}
}

// handleDisconnect starts at most one reconnect loop.
func (s *StreamSupervisor) handleDisconnect(cause error) {
	s.mu.Lock()
	if !s.running || s.reconnecting {
		s.mu.Unlock()
		return
	}
	s.reconnecting = true
	s.connected = false
	for _, sub := range s.subs {
		sub.active = false
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	s.tracker.Update(ctx, func(st *domain.State) {
		st.WSConnected = false
		st.LastError = msg
	})

	go s.reconnectLoop(ctx)
}

func (s *StreamSupervisor) reconnectLoop(ctx context.Context) {
	defer s.wg.Done()

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxReconnects; attempt++ {
		delay := s.cfg.ReconnectBase << (attempt - 1)
		s.log.Info(ctx, "stream reconnect scheduled", "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(delay):
		}

		if lastErr = s.transport.Open(ctx); lastErr == nil {
			s.log.Info(ctx, "stream reconnected", "attempt", attempt)
			s.onConnected(ctx)
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.log.Warn(ctx, "stream reconnect failed", "attempt", attempt, "error", lastErr)
	}

	s.mu.Lock()
	s.reconnecting = false
	s.mu.Unlock()

	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}
	s.tracker.Update(ctx, func(st *domain.State) {
		st.WSConnected = false
		st.Fatal = true
		st.Reason = domain.ReasonStreamExhausted
		st.LastError = msg
	})
	s.log.Error(ctx, "stream reconnects exhausted", "attempts", s.cfg.MaxReconnects)
}

// SubscribeAccount registers handler for address. The subscription survives
// reconnects; it is issued on the wire now if the stream is up.
func (s *StreamSupervisor) SubscribeAccount(ctx context.Context, address string, handler AccountHandler) (domain.SubscriptionID, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	sub := &accountSub{address: address, handler: handler}
	s.subs[id] = sub
	connected := s.connected
	s.mu.Unlock()

	if !connected {
		return id, nil
	}

	wireID, err := s.transport.Subscribe(ctx, address)
	if err != nil {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		return 0, apperror.Connection(apperror.CodeSubscribeFailed, address, err)
	}

	s.mu.Lock()
	sub.wireID = wireID
	sub.active = true
	s.mu.Unlock()
	return id, nil
}

// Unsubscribe removes the subscription from the registry and the wire.
func (s *StreamSupervisor) Unsubscribe(ctx context.Context, id domain.SubscriptionID) error {
	s.mu.Lock()
	sub, ok := s.subs[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.subs, id)
	onWire := sub.active && s.connected
	s.mu.Unlock()

	if !onWire {
		return nil
	}
	if err := s.transport.Unsubscribe(ctx, sub.wireID); err != nil {
		return apperror.Connection(apperror.CodeStreamError, "unsubscribe "+sub.address, err)
	}
	return nil
}

// Subscriptions returns the registry size.
func (s *StreamSupervisor) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *StreamSupervisor) dispatch(ctx context.Context, change domain.AccountChange) {
	s.mu.Lock()
	var handlers []AccountHandler
	for _, sub := range s.subs {
		if sub.address == change.Address {
			handlers = append(handlers, sub.handler)
		}
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(ctx, change)
	}
}

// Stop cancels heartbeat and reconnect tasks, waits for them, then closes the stream.
func (s *StreamSupervisor) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.connected = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	return s.transport.Close()
}
