package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sugawarayuuta/sonnet"

	"github.com/fd1az/pool-sniper/business/connection/app"
	"github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/wsconn"
)

const requestTimeout = 10 * time.Second

type wireRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *wireError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// wireMessage covers both responses (ID set) and notifications (Method set).
type wireMessage struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *wireError      `json:"error"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type accountNotification struct {
	Subscription uint64 `json:"subscription"`
	Result       struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value *struct {
			Data []string `json:"data"`
		} `json:"value"`
	} `json:"result"`
}

type response struct {
	result json.RawMessage
	err    error
}

// AccountStream speaks the accountSubscribe protocol over a websocket. It
// never reconnects on its own; drops are reported through OnDisconnect.
type AccountStream struct {
	ws         *wsconn.Client
	commitment string
	log        logger.LoggerInterface

	nextID atomic.Uint64

	mu        sync.Mutex
	pending   map[uint64]chan response
	addresses map[uint64]string // wire id -> address
	connected bool

	handlerMu    sync.RWMutex
	onNotify     app.NotificationHandler
	onDisconnect func(error)
}

// NewAccountStream creates a stream for url.
func NewAccountStream(url, commitment string, clk clockwork.Clock, log logger.LoggerInterface) (*AccountStream, error) {
	cfg := wsconn.DefaultConfig(url, "account-stream")
	cfg.AutoReconnect = false
	cfg.PingInterval = 0
	cfg.Clock = clk

	ws, err := wsconn.New(cfg)
	if err != nil {
		return nil, err
	}
	if commitment == "" {
		commitment = "confirmed"
	}

	s := &AccountStream{
		ws:         ws,
		commitment: commitment,
		log:        log,
		pending:    make(map[uint64]chan response),
		addresses:  make(map[uint64]string),
	}
	ws.OnMessage(s.handleMessage)
	ws.OnStateChange(s.handleState)
	return s, nil
}

// OnNotification sets the account-change handler.
func (s *AccountStream) OnNotification(h app.NotificationHandler) {
	s.handlerMu.Lock()
	s.onNotify = h
	s.handlerMu.Unlock()
}

// OnDisconnect sets the handler called when a live connection drops.
func (s *AccountStream) OnDisconnect(h func(error)) {
	s.handlerMu.Lock()
	s.onDisconnect = h
	s.handlerMu.Unlock()
}

// Open dials the websocket.
func (s *AccountStream) Open(ctx context.Context) error {
	if err := s.ws.Connect(ctx); err != nil {
		return apperror.Connection(apperror.CodeStreamError, "open", err)
	}
	return nil
}

// Close shuts the websocket permanently.
func (s *AccountStream) Close() error {
	return s.ws.Close()
}

// Ping round-trips a ping frame.
func (s *AccountStream) Ping(ctx context.Context) error {
	return s.ws.Ping(ctx)
}

// Subscribe issues accountSubscribe and returns the server's subscription id.
func (s *AccountStream) Subscribe(ctx context.Context, address string) (uint64, error) {
	opts := map[string]any{"encoding": "base64", "commitment": s.commitment}
	raw, err := s.request(ctx, "accountSubscribe", address, opts)
	if err != nil {
		return 0, err
	}

	var wireID uint64
	if err := sonnet.Unmarshal(raw, &wireID); err != nil {
		return 0, apperror.Connection(apperror.CodeSubscribeFailed, "decode subscription id", err)
	}

	s.mu.Lock()
	s.addresses[wireID] = address
	s.mu.Unlock()
	return wireID, nil
}

// Unsubscribe issues accountUnsubscribe.
func (s *AccountStream) Unsubscribe(ctx context.Context, wireID uint64) error {
	s.mu.Lock()
	delete(s.addresses, wireID)
	s.mu.Unlock()

	_, err := s.request(ctx, "accountUnsubscribe", wireID)
	return err
}

func (s *AccountStream) request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	id := s.nextID.Add(1)
	ch := make(chan response, 1)

	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	req := wireRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := s.ws.SendJSON(ctx, req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return nil, apperror.Connection(apperror.CodeStreamError, method+": no response", ctx.Err())
	case resp := <-ch:
		if resp.err != nil {
			return nil, apperror.Connection(apperror.CodeStreamError, method, resp.err)
		}
		return resp.result, nil
	}
}

func (s *AccountStream) handleMessage(ctx context.Context, data []byte) {
	var msg wireMessage
	if err := sonnet.Unmarshal(data, &msg); err != nil {
		s.log.Warn(ctx, "stream: undecodable frame", "error", err)
		return
	}

	if msg.ID != nil {
		s.mu.Lock()
		ch, ok := s.pending[*msg.ID]
		s.mu.Unlock()
		if !ok {
			return
		}
		resp := response{result: msg.Result}
		if msg.Error != nil {
			resp.err = msg.Error
		}
		select {
		case ch <- resp:
		default:
		}
		return
	}

	if msg.Method != "accountNotification" {
		return
	}
	var n accountNotification
	if err := sonnet.Unmarshal(msg.Params, &n); err != nil {
		s.log.Warn(ctx, "stream: bad account notification", "error", err)
		return
	}

	s.mu.Lock()
	address, ok := s.addresses[n.Subscription]
	s.mu.Unlock()
	if !ok {
		return
	}

	change := domain.AccountChange{Address: address, Slot: n.Result.Context.Slot}
	if n.Result.Value != nil {
		decoded, err := DecodeAccountData(n.Result.Value.Data)
		if err != nil {
			s.log.Warn(ctx, "stream: bad account data", "address", address, "error", err)
			return
		}
		change.Data = decoded
	}

	s.handlerMu.RLock()
	h := s.onNotify
	s.handlerMu.RUnlock()
	if h != nil {
		h(ctx, change)
	}
}

// handleState turns a drop of a live connection into one disconnect callback.
// Failed dials never reach it because the connection was never live.
func (s *AccountStream) handleState(state wsconn.State, err error) {
	s.mu.Lock()
	wasConnected := s.connected
	s.connected = state == wsconn.StateConnected
	dropped := wasConnected && !s.connected
	if dropped {
		clear(s.addresses)
		for id, ch := range s.pending {
			select {
			case ch <- response{err: apperror.New(apperror.CodeWebSocketClosed)}:
			default:
			}
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()

	if !dropped || state == wsconn.StateClosed {
		return
	}

	s.handlerMu.RLock()
	h := s.onDisconnect
	s.handlerMu.RUnlock()
	if h != nil {
		h(err)
	}
}
