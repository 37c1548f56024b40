// Package blockhash caches recent blockhashes for transaction building.
package blockhash

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/pool-sniper/business/connection/infra/solana"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/cache"
	"github.com/fd1az/pool-sniper/internal/circuitbreaker"
	"github.com/fd1az/pool-sniper/internal/logger"
)

const (
	tracerName = "github.com/fd1az/pool-sniper/business/execution/infra/blockhash"
	meterName  = tracerName

	cacheKey = "latest"
)

// Source fetches the latest blockhash from a node.
type Source interface {
	GetLatestBlockhash(ctx context.Context) (solana.Blockhash, error)
}

// Config holds oracle settings.
type Config struct {
	// TTL bounds how long a blockhash is reused. Nodes accept a blockhash
	// for roughly 150 slots, so this stays well under a minute.
	TTL time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{TTL: 20 * time.Second}
}

type oracleMetrics struct {
	fetches     metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	slot        metric.Int64Gauge
}

// Oracle serves recent blockhashes from a short-lived cache, fetching
// through a circuit breaker on miss.
type Oracle struct {
	src    Source
	log    logger.LoggerInterface
	cache  *cache.Cache[string, solana.Blockhash]
	cb     *circuitbreaker.CircuitBreaker[solana.Blockhash]
	tracer trace.Tracer

	metrics *oracleMetrics
}

// New creates an oracle.
func New(cfg Config, src Source, clk clockwork.Clock, log logger.LoggerInterface) (*Oracle, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	o := &Oracle{
		src:    src,
		log:    log,
		cache:  cache.New[string, solana.Blockhash](cfg.TTL, cache.WithClock(clk)),
		cb:     circuitbreaker.New[solana.Blockhash](circuitbreaker.DefaultConfig("blockhash-oracle")),
		tracer: otel.Tracer(tracerName),
	}
	if err := o.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return o, nil
}

func (o *Oracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &oracleMetrics{}

	o.metrics.fetches, err = meter.Int64Counter(
		"blockhash_fetches_total",
		metric.WithDescription("Blockhash fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	o.metrics.cacheHits, err = meter.Int64Counter(
		"blockhash_cache_hits_total",
		metric.WithDescription("Blockhash cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	o.metrics.cacheMisses, err = meter.Int64Counter(
		"blockhash_cache_misses_total",
		metric.WithDescription("Blockhash cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	o.metrics.slot, err = meter.Int64Gauge(
		"blockhash_slot",
		metric.WithDescription("Slot of the cached blockhash"),
		metric.WithUnit("{slot}"),
	)
	return err
}

// Latest returns a recent blockhash.
func (o *Oracle) Latest(ctx context.Context) (string, error) {
	ctx, span := o.tracer.Start(ctx, "blockhash.latest")
	defer span.End()

	if bh, ok := o.cache.Get(cacheKey); ok {
		o.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return bh.Hash, nil
	}

	o.metrics.cacheMisses.Add(ctx, 1)
	o.metrics.fetches.Add(ctx, 1)

	bh, err := o.cb.Execute(func() (solana.Blockhash, error) {
		return o.src.GetLatestBlockhash(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return "", apperror.Wrap(err, apperror.CodeRPCError, "latest blockhash")
	}
	if bh.Hash == "" {
		err := apperror.Connection(apperror.CodeRPCError, "empty blockhash", nil)
		span.RecordError(err)
		return "", err
	}

	o.cache.Set(cacheKey, bh)
	o.metrics.slot.Record(ctx, int64(bh.Slot))
	span.SetAttributes(attribute.Int64("slot", int64(bh.Slot)))
	o.log.Debug(ctx, "blockhash refreshed", "hash", bh.Hash, "slot", bh.Slot)

	return bh.Hash, nil
}

// Invalidate drops the cached blockhash, typically after a send was
// rejected as expired.
func (o *Oracle) Invalidate() {
	o.cache.Delete(cacheKey)
}
