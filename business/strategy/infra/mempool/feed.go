// Package mempool streams pending swaps from a websocket endpoint that
// exposes pendingSwapSubscribe.
package mempool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sugawarayuuta/sonnet"

	"github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/wsconn"
)

const (
	subscribeMethod    = "pendingSwapSubscribe"
	notificationMethod = "pendingSwapNotification"

	bufferSize = 64
)

type subscribeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type notification struct {
	Method string `json:"method"`
	Params struct {
		Subscription uint64  `json:"subscription"`
		Result       wireTxn `json:"result"`
	} `json:"params"`
}

type wireTxn struct {
	Signature    string `json:"signature"`
	Pool         string `json:"pool"`
	InputMint    string `json:"inputMint"`
	OutputMint   string `json:"outputMint"`
	AmountIn     string `json:"amountIn"`
	MinAmountOut string `json:"minAmountOut"`
}

// Feed decodes pending swap notifications. The underlying client redials on
// its own and the subscription is renewed after every reconnect.
type Feed struct {
	ws       *wsconn.Client
	registry *asset.Registry
	clock    clockwork.Clock
	log      logger.LoggerInterface

	nextID atomic.Uint64
	active atomic.Bool

	mu      sync.Mutex
	out     chan domain.PendingSwap
	closed  bool
	dropped int
}

// NewFeed creates a feed for url. Mints are resolved through registry.
func NewFeed(url string, registry *asset.Registry, clk clockwork.Clock, log logger.LoggerInterface) (*Feed, error) {
	cfg := wsconn.DefaultConfig(url, "mempool")
	cfg.Clock = clk

	ws, err := wsconn.New(cfg)
	if err != nil {
		return nil, err
	}
	f := &Feed{ws: ws, registry: registry, clock: clk, log: log}
	ws.OnMessage(f.handleMessage)
	ws.OnStateChange(f.handleState)
	return f, nil
}

// Subscribe connects and returns the swap channel. It is closed once ctx
// ends and the connection is torn down.
func (f *Feed) Subscribe(ctx context.Context) (<-chan domain.PendingSwap, error) {
	f.mu.Lock()
	if f.out != nil {
		f.mu.Unlock()
		return nil, apperror.Validation(apperror.CodeSubscribeFailed, "mempool feed already subscribed")
	}
	f.out = make(chan domain.PendingSwap, bufferSize)
	out := f.out
	f.mu.Unlock()

	if err := f.ws.Connect(ctx); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeSubscribeFailed, "mempool")
	}
	if err := f.subscribe(ctx); err != nil {
		_ = f.ws.Close()
		return nil, err
	}
	f.active.Store(true)

	go func() {
		<-ctx.Done()
		f.active.Store(false)
		_ = f.ws.Close()

		f.mu.Lock()
		f.closed = true
		close(f.out)
		f.mu.Unlock()
	}()
	return out, nil
}

func (f *Feed) subscribe(ctx context.Context) error {
	req := subscribeRequest{
		JSONRPC: "2.0",
		ID:      f.nextID.Add(1),
		Method:  subscribeMethod,
		Params:  []any{},
	}
	if err := f.ws.SendJSON(ctx, req); err != nil {
		return apperror.Wrap(err, apperror.CodeSubscribeFailed, subscribeMethod)
	}
	return nil
}

func (f *Feed) handleState(state wsconn.State, err error) {
	switch state {
	case wsconn.StateConnected:
		if f.active.Load() {
			go func() {
				if err := f.subscribe(context.Background()); err != nil {
					f.log.Warn(context.Background(), "mempool resubscribe failed", "error", err)
				}
			}()
		}
	case wsconn.StateReconnecting, wsconn.StateDisconnected:
		if err != nil {
			f.log.Warn(context.Background(), "mempool connection lost", "state", string(state), "error", err)
		}
	}
}

func (f *Feed) handleMessage(ctx context.Context, msg []byte) {
	var n notification
	if err := sonnet.Unmarshal(msg, &n); err != nil {
		f.log.Debug(ctx, "mempool frame not understood", "error", err)
		return
	}
	if n.Method != notificationMethod {
		return
	}
	swap, err := f.decode(n.Params.Result)
	if err != nil {
		f.log.Debug(ctx, "pending swap discarded", "signature", n.Params.Result.Signature, "error", err)
		return
	}
	f.emit(ctx, swap)
}

func (f *Feed) decode(w wireTxn) (domain.PendingSwap, error) {
	if w.Signature == "" || w.Pool == "" {
		return domain.PendingSwap{}, apperror.Validation(apperror.CodeRequiredField, "signature and pool")
	}
	from, err := f.registry.Resolve(w.InputMint)
	if err != nil {
		return domain.PendingSwap{}, apperror.Wrap(err, apperror.CodeInvalidTransaction, "inputMint")
	}
	to, err := f.registry.Resolve(w.OutputMint)
	if err != nil {
		return domain.PendingSwap{}, apperror.Wrap(err, apperror.CodeInvalidTransaction, "outputMint")
	}
	in, err := decimal.NewFromString(w.AmountIn)
	if err != nil || !in.IsPositive() {
		return domain.PendingSwap{}, apperror.Validation(apperror.CodeInvalidTransaction, "amountIn "+w.AmountIn)
	}
	minOut := decimal.Zero
	if w.MinAmountOut != "" {
		if minOut, err = decimal.NewFromString(w.MinAmountOut); err != nil {
			return domain.PendingSwap{}, apperror.Validation(apperror.CodeInvalidTransaction, "minAmountOut "+w.MinAmountOut)
		}
	}
	return domain.PendingSwap{
		Signature:    w.Signature,
		Pool:         w.Pool,
		From:         from,
		To:           to,
		AmountIn:     in,
		MinAmountOut: minOut,
		SeenAt:       f.clock.Now(),
	}, nil
}

func (f *Feed) emit(ctx context.Context, swap domain.PendingSwap) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.out == nil {
		return
	}
	select {
	case f.out <- swap:
	default:
		f.dropped++
		f.log.Debug(ctx, "pending swap dropped, consumer behind", "dropped", f.dropped)
	}
}
