package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
)

const meterName = "github.com/fd1az/pool-sniper/business/market"

// StoreConfig holds the liquidity floor.
type StoreConfig struct {
	MinLiquidity decimal.Decimal
}

type entry struct {
	pool  domain.Pool
	subID uint64
}

type storeMetrics struct {
	updates  metric.Int64Counter
	rejected metric.Int64Counter
	tracked  metric.Int64Gauge
}

// Store holds the latest state of every tracked pool. Account notifications
// are queued per address and applied by a single worker, so a burst for one
// pool collapses into one reload and the stream is never blocked on RPC.
type Store struct {
	cfg        StoreConfig
	loader     OrderBookLoader
	subscriber AccountSubscriber
	bus        eventbus.Publisher
	clock      clockwork.Clock
	log        logger.LoggerInterface
	metrics    *storeMetrics

	mu    sync.RWMutex
	pools map[string]*entry

	pendingMu sync.Mutex
	pending   map[string]domain.AccountUpdate
	wake      chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStore creates an empty store. Call Start to begin applying updates.
func NewStore(
	cfg StoreConfig,
	loader OrderBookLoader,
	subscriber AccountSubscriber,
	bus eventbus.Publisher,
	clk clockwork.Clock,
	log logger.LoggerInterface,
) (*Store, error) {
	s := &Store{
		cfg:        cfg,
		loader:     loader,
		subscriber: subscriber,
		bus:        bus,
		clock:      clk,
		log:        log,
		pools:      make(map[string]*entry),
		pending:    make(map[string]domain.AccountUpdate),
		wake:       make(chan struct{}, 1),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *Store) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &storeMetrics{}

	s.metrics.updates, err = meter.Int64Counter(
		"pool_updates_total",
		metric.WithDescription("Pool snapshots stored and published"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return err
	}

	s.metrics.rejected, err = meter.Int64Counter(
		"pool_updates_rejected_total",
		metric.WithDescription("Pool updates discarded as malformed or unloadable"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return err
	}

	s.metrics.tracked, err = meter.Int64Gauge(
		"pools_tracked",
		metric.WithDescription("Number of tracked pools"),
	)
	return err
}

// Start runs the update worker until Stop.
func (s *Store) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.worker(ctx, s.done)
}

// Track registers a pool, loads its initial book and subscribes to its
// account. Tracking an already tracked address is a no-op.
func (s *Store) Track(ctx context.Context, spec domain.PoolSpec) error {
	if spec.Address == "" || spec.TokenA == nil || spec.TokenB == nil {
		return apperror.Validation(apperror.CodeInvalidPool, "pool spec needs an address and two tokens")
	}
	if spec.TokenA.Equals(spec.TokenB) {
		return apperror.Validation(apperror.CodeInvalidPool, spec.Address+": both sides are "+spec.TokenA.Symbol())
	}
	if s.tracked(spec.Address) {
		return nil
	}

	book, slot, err := s.loadBook(ctx, spec.Address, 0)
	if err != nil {
		return err
	}

	pool := domain.Pool{
		Address:    spec.Address,
		TokenA:     spec.TokenA,
		TokenB:     spec.TokenB,
		Book:       book,
		Liquidity:  book.Liquidity(),
		LastUpdate: s.clock.Now(),
		Slot:       slot,
	}

	s.mu.Lock()
	if _, ok := s.pools[spec.Address]; ok {
		s.mu.Unlock()
		return nil
	}
	e := &entry{pool: pool}
	s.pools[spec.Address] = e
	count := len(s.pools)
	s.mu.Unlock()

	address := spec.Address
	subID, err := s.subscriber.Subscribe(ctx, address, func(_ context.Context, u domain.AccountUpdate) {
		s.enqueue(address, u)
	})
	if err != nil {
		s.mu.Lock()
		delete(s.pools, address)
		s.mu.Unlock()
		return apperror.Wrap(err, apperror.CodeSubscribeFailed, address)
	}

	s.mu.Lock()
	e.subID = subID
	s.mu.Unlock()

	s.metrics.tracked.Record(ctx, int64(count))
	s.log.Info(ctx, "pool tracked", "address", address, "pair", pool.Pair(),
		"liquidity", pool.Liquidity.StringFixed(2))
	s.publish(ctx, pool)
	return nil
}

func (s *Store) tracked(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pools[address]
	return ok
}

func (s *Store) loadBook(ctx context.Context, address string, minSlot uint64) (domain.OrderBook, uint64, error) {
	book, slot, err := s.loader.Load(ctx, address, minSlot)
	if err != nil {
		return domain.OrderBook{}, 0, err
	}
	if err := book.Validate(); err != nil {
		return domain.OrderBook{}, 0, apperror.Wrap(err, apperror.CodeInvalidOrderBook, address)
	}
	return book, slot, nil
}

// OnChange reloads the pool's book and stores it last-write-wins. A book
// that fails to load or validate is discarded and the previous snapshot kept.
func (s *Store) OnChange(ctx context.Context, address string, change domain.AccountUpdate) error {
	if !s.tracked(address) {
		return apperror.NotFound(apperror.CodeNotFound, "pool "+address)
	}

	book, slot, err := s.loadBook(ctx, address, change.Slot)
	if err != nil {
		s.metrics.rejected.Add(ctx, 1)
		if apperror.IsValidation(err) {
			s.log.Warn(ctx, "malformed pool book discarded", "address", address, "slot", change.Slot, "error", err)
		} else {
			s.log.Error(ctx, "pool reload failed", "address", address, "slot", change.Slot, "error", err)
		}
		return err
	}

	s.mu.Lock()
	e, ok := s.pools[address]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if slot < e.pool.Slot {
		s.log.Debug(ctx, "pool update older than stored snapshot", "address", address,
			"stored_slot", e.pool.Slot, "slot", slot)
	}
	e.pool.Book = book
	e.pool.Liquidity = book.Liquidity()
	e.pool.LastUpdate = s.clock.Now()
	e.pool.Slot = slot
	pool := e.pool.Clone()
	s.mu.Unlock()

	s.publish(ctx, pool)
	return nil
}

func (s *Store) publish(ctx context.Context, pool domain.Pool) {
	s.metrics.updates.Add(ctx, 1)
	s.bus.Publish(ctx, eventbus.TopicPoolUpdate, pool.Clone())
}

func (s *Store) enqueue(address string, u domain.AccountUpdate) {
	s.pendingMu.Lock()
	if prev, ok := s.pending[address]; !ok || u.Slot >= prev.Slot {
		s.pending[address] = u
	}
	s.pendingMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) worker(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		s.pendingMu.Lock()
		batch := s.pending
		s.pending = make(map[string]domain.AccountUpdate, len(batch))
		s.pendingMu.Unlock()

		for address, u := range batch {
			if ctx.Err() != nil {
				return
			}
			_ = s.OnChange(ctx, address, u)
		}
	}
}

// Untrack unsubscribes and forgets the pool.
func (s *Store) Untrack(ctx context.Context, address string) error {
	s.mu.Lock()
	e, ok := s.pools[address]
	if ok {
		delete(s.pools, address)
	}
	count := len(s.pools)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	s.pendingMu.Lock()
	delete(s.pending, address)
	s.pendingMu.Unlock()

	s.metrics.tracked.Record(ctx, int64(count))
	if err := s.subscriber.Unsubscribe(ctx, e.subID); err != nil {
		return apperror.Wrap(err, apperror.CodeStreamError, "unsubscribe "+address)
	}
	return nil
}

// Stop halts the worker and unsubscribes every pool before returning.
// Snapshots stay readable.
func (s *Store) Stop(ctx context.Context) error {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.runMu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	s.mu.Lock()
	ids := make(map[string]uint64, len(s.pools))
	for address, e := range s.pools {
		ids[address] = e.subID
	}
	s.mu.Unlock()

	var firstErr error
	for address, id := range ids {
		if err := s.subscriber.Unsubscribe(ctx, id); err != nil && firstErr == nil {
			firstErr = apperror.Wrap(err, apperror.CodeStreamError, "unsubscribe "+address)
		}
	}
	return firstErr
}

// Pool returns one pool's snapshot.
func (s *Store) Pool(address string) (domain.Pool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.pools[address]
	if !ok {
		return domain.Pool{}, false
	}
	return e.pool.Clone(), true
}

// Pools returns every tracked pool, ordered by address.
func (s *Store) Pools() []domain.Pool {
	return s.collect(func(domain.Pool) bool { return true })
}

// ValidPools returns the pools meeting the liquidity floor. Pools below it
// are retained so they can recover.
func (s *Store) ValidPools() []domain.Pool {
	return s.collect(func(p domain.Pool) bool { return p.Valid(s.cfg.MinLiquidity) })
}

// MinLiquidity returns the configured floor.
func (s *Store) MinLiquidity() decimal.Decimal {
	return s.cfg.MinLiquidity
}

func (s *Store) collect(keep func(domain.Pool) bool) []domain.Pool {
	s.mu.RLock()
	out := make([]domain.Pool, 0, len(s.pools))
	for _, e := range s.pools {
		if keep(e.pool) {
			out = append(out, e.pool.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
