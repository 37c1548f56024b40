package app

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

	"github.com/fd1az/pool-sniper/business/execution/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/logger"
)

const (
	tracerName = "github.com/fd1az/pool-sniper/business/execution"
	meterName  = tracerName
)

// ExecutorConfig holds submission and confirmation settings.
type ExecutorConfig struct {
	MaxRetries          int
	RetryDelay          time.Duration
	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration
	// DryRun signs and guards but never submits.
	DryRun bool
}

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxRetries:          3,
		RetryDelay:          500 * time.Millisecond,
		ConfirmTimeout:      30 * time.Second,
		ConfirmPollInterval: 500 * time.Millisecond,
	}
}

type executorMetrics struct {
	submitted metric.Int64Counter
	confirmed metric.Int64Counter
	failed    metric.Int64Counter
	rejected  metric.Int64Counter
	latency   metric.Float64Histogram
}

// Executor runs an order through build, validate, sign, guard, send and
// confirm. Every id the guard admits is completed exactly once.
type Executor struct {
	cfg       ExecutorConfig
	builder   Builder
	wallet    Wallet
	submitter Submitter
	guard     *Guard
	clock     clockwork.Clock
	log       logger.LoggerInterface
	tracer    trace.Tracer
	metrics   *executorMetrics
}

// NewExecutor creates an executor.
func NewExecutor(
	cfg ExecutorConfig,
	builder Builder,
	wallet Wallet,
	submitter Submitter,
	guard *Guard,
	clk clockwork.Clock,
	log logger.LoggerInterface,
) (*Executor, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.ConfirmPollInterval <= 0 {
		cfg.ConfirmPollInterval = DefaultExecutorConfig().ConfirmPollInterval
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultExecutorConfig().ConfirmTimeout
	}
	e := &Executor{
		cfg:       cfg,
		builder:   builder,
		wallet:    wallet,
		submitter: submitter,
		guard:     guard,
		clock:     clk,
		log:       log,
		tracer:    otel.Tracer(tracerName),
	}
	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.submitted, err = meter.Int64Counter(
		"transactions_submitted_total",
		metric.WithDescription("Send attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	e.metrics.confirmed, err = meter.Int64Counter(
		"transactions_confirmed_total",
		metric.WithDescription("Transactions confirmed"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return err
	}

	e.metrics.failed, err = meter.Int64Counter(
		"transactions_failed_total",
		metric.WithDescription("Transactions that failed after admission"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return err
	}

	e.metrics.rejected, err = meter.Int64Counter(
		"transactions_rejected_total",
		metric.WithDescription("Transactions refused by the exposure guard"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return err
	}

	e.metrics.latency, err = meter.Float64Histogram(
		"transaction_confirm_seconds",
		metric.WithDescription("Time from first send to confirmation"),
		metric.WithUnit("s"),
	)
	return err
}

// Guard exposes the exposure guard for health and metrics.
func (e *Executor) Guard() *Guard {
	return e.guard
}

// Execute submits order and waits for confirmation.
func (e *Executor) Execute(ctx context.Context, order domain.Order) (rec domain.Receipt, err error) {
	ctx, span := e.tracer.Start(ctx, "execution.execute",
		trace.WithAttributes(
			attribute.String("order", order.ID),
			attribute.String("pool", order.Pool),
			attribute.Bool("dry_run", e.cfg.DryRun),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperror.GetCode(err)))
		}
		span.End()
	}()

	rec.OrderID = order.ID
	if err := order.Validate(); err != nil {
		return rec, err
	}

	tx, err := e.builder.Build(ctx, order)
	if err != nil {
		return rec, apperror.Wrap(err, apperror.CodeInvalidTransaction, order.ID)
	}
	if err := tx.Validate(); err != nil {
		return rec, err
	}
	if err := e.wallet.Sign(tx); err != nil {
		return rec, apperror.Execution(apperror.CodeSigningFailed, order.ID, err)
	}

	if err := e.guard.Guard(tx.ID, tx.Size); err != nil {
		e.metrics.rejected.Add(ctx, 1)
		return rec, err
	}
	success := false
	defer func() {
		e.guard.Complete(tx.ID, success)
		if !success {
			e.metrics.failed.Add(ctx, 1)
		}
	}()

	rec.Signature = tx.Signature()
	if e.cfg.DryRun {
		success = true
		rec.DryRun = true
		rec.Confirmed = e.clock.Now()
		e.log.Info(ctx, "dry run, transaction not sent",
			"order", order.ID, "signature", rec.Signature, "size", tx.Size.String())
		return rec, nil
	}

	start := e.clock.Now()
	sig, attempts, err := e.send(ctx, tx)
	rec.Attempts = attempts
	if err != nil {
		return rec, apperror.Execution(apperror.CodeSubmissionFailed,
			fmt.Sprintf("%s after %d attempts", order.ID, attempts), err)
	}
	rec.Signature = sig

	status, err := e.confirm(ctx, sig)
	if err != nil {
		return rec, err
	}

	success = true
	rec.Slot = status.Slot
	rec.Confirmed = e.clock.Now()
	e.metrics.confirmed.Add(ctx, 1)
	e.metrics.latency.Record(ctx, rec.Confirmed.Sub(start).Seconds())
	e.log.Info(ctx, "transaction confirmed",
		"order", order.ID, "signature", sig, "slot", status.Slot, "attempts", attempts)
	return rec, nil
}

func (e *Executor) send(ctx context.Context, tx *domain.Transaction) (string, int, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		e.metrics.submitted.Add(ctx, 1)
		sig, err := e.submitter.Send(ctx, tx)
		if err == nil {
			return sig, attempt, nil
		}
		lastErr = err
		e.log.Warn(ctx, "send failed", "tx", tx.ID, "attempt", attempt, "error", err)

		if attempt == e.cfg.MaxRetries || e.cfg.RetryDelay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return "", attempt, ctx.Err()
		case <-e.clock.After(e.cfg.RetryDelay):
		}
	}
	return "", e.cfg.MaxRetries, lastErr
}

func (e *Executor) confirm(ctx context.Context, sig string) (domain.Status, error) {
	deadline := e.clock.After(e.cfg.ConfirmTimeout)
	ticker := e.clock.NewTicker(e.cfg.ConfirmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.Status{}, apperror.Execution(apperror.CodeConfirmationFailed, sig, ctx.Err())
		case <-deadline:
			return domain.Status{}, apperror.Execution(apperror.CodeConfirmationTimeout, sig, nil)
		case <-ticker.Chan():
			st, err := e.submitter.Status(ctx, sig)
			if err != nil {
				e.log.Debug(ctx, "status poll failed", "signature", sig, "error", err)
				continue
			}
			if st.Err != "" {
				return st, apperror.Execution(apperror.CodeConfirmationFailed,
					sig+": "+st.Err, nil)
			}
			if st.Confirmed {
				return st, nil
			}
		}
	}
}
