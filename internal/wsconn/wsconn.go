// Package wsconn provides a production-grade WebSocket client with reconnection.
package wsconn

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sugawarayuuta/sonnet"

	"github.com/fd1az/pool-sniper/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL  string
	Name string

	// AutoReconnect makes the client redial on its own after a read failure.
	// Owners that run their own reconnect policy turn it off.
	AutoReconnect  bool
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite

	PingInterval time.Duration // 0 disables pings
	PongTimeout  time.Duration
	ReadTimeout  time.Duration // 0 = no idle limit
	WriteTimeout time.Duration

	MaxMessageSize int64
	Header         http.Header
	HTTPClient     *http.Client
	Clock          clockwork.Clock
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		AutoReconnect:  true,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 4 << 20,
	}
}

// MessageHandler receives every data frame.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler observes state transitions; err is the cause for a drop.
type StateHandler func(state State, err error)

// Client is a production-grade WebSocket client.
type Client struct {
	config Config
	clock  clockwork.Clock

	state   State
	stateMu sync.RWMutex

	connMu     sync.RWMutex
	conn       *websocket.Conn
	connCancel context.CancelFunc

	handlerMu     sync.RWMutex
	onMessage     MessageHandler
	onStateChange StateHandler

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, apperror.New(apperror.CodeRequiredField, apperror.WithContext("wsconn url"))
	}
	if config.Name == "" {
		config.Name = config.URL
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}
	if config.PongTimeout <= 0 {
		config.PongTimeout = 10 * time.Second
	}
	clk := config.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config: config,
		clock:  clk,
		state:  StateDisconnected,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// OnMessage sets the handler for incoming frames. Set it before Connect.
func (c *Client) OnMessage(h MessageHandler) {
	c.handlerMu.Lock()
	c.onMessage = h
	c.handlerMu.Unlock()
}

// OnStateChange sets the state transition observer.
func (c *Client) OnStateChange(h StateHandler) {
	c.handlerMu.Lock()
	c.onStateChange = h
	c.handlerMu.Unlock()
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	if c.isClosed() {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}

	c.setState(StateConnecting, nil)
	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected, err)
		return err
	}
	c.attach(conn)
	return nil
}

// ConnectWithRetry keeps dialing with backoff until success, ctx ends, or
// MaxReconnects attempts fail.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	var lastErr error
	for attempt := 1; c.config.MaxReconnects == 0 || attempt <= c.config.MaxReconnects; attempt++ {
		if lastErr = c.Connect(ctx); lastErr == nil {
			return nil
		}
		if c.isClosed() {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.backoff(attempt)):
		}
	}
	return lastErr
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.config.URL, &websocket.DialOptions{
		HTTPClient: c.config.HTTPClient,
		HTTPHeader: c.config.Header,
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithContext(c.config.Name), apperror.WithCause(err))
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}
	return conn, nil
}

func (c *Client) attach(conn *websocket.Conn) {
	connCtx, connCancel := context.WithCancel(c.ctx)

	c.connMu.Lock()
	c.conn = conn
	c.connCancel = connCancel
	c.connMu.Unlock()

	c.setState(StateConnected, nil)

	c.wg.Add(1)
	go c.readLoop(connCtx, conn)
	if c.config.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop(connCtx, conn)
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		rctx, cancel := ctx, context.CancelFunc(func() {})
		if c.config.ReadTimeout > 0 {
			rctx, cancel = context.WithTimeout(ctx, c.config.ReadTimeout)
		}
		_, data, err := conn.Read(rctx)
		cancel()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		c.handlerMu.RLock()
		h := c.onMessage
		c.handlerMu.RUnlock()
		if h != nil {
			h(ctx, data)
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	ticker := c.clock.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			pctx, cancel := context.WithTimeout(ctx, c.config.PongTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil && ctx.Err() == nil {
				conn.Close(websocket.StatusGoingAway, "pong timeout")
				return
			}
		}
	}
}

func (c *Client) handleDisconnect(conn *websocket.Conn, cause error) {
	c.connMu.Lock()
	if c.conn != conn {
		c.connMu.Unlock()
		return
	}
	c.conn = nil
	if c.connCancel != nil {
		c.connCancel()
		c.connCancel = nil
	}
	c.connMu.Unlock()
	conn.CloseNow()

	if c.isClosed() {
		return
	}

	err := apperror.New(apperror.CodeWebSocketConnectionError,
		apperror.WithContext(c.config.Name), apperror.WithCause(cause))
	c.setState(StateDisconnected, err)

	if c.config.AutoReconnect {
		c.wg.Add(1)
		go c.reconnectLoop()
	}
}

func (c *Client) reconnectLoop() {
	defer c.wg.Done()
	for attempt := 1; c.config.MaxReconnects == 0 || attempt <= c.config.MaxReconnects; attempt++ {
		c.setState(StateReconnecting, nil)
		select {
		case <-c.ctx.Done():
			return
		case <-c.clock.After(c.backoff(attempt)):
		}

		conn, err := c.dial(c.ctx)
		if err != nil {
			if c.isClosed() {
				return
			}
			continue
		}
		if c.isClosed() {
			conn.CloseNow()
			return
		}
		c.attach(conn)
		return
	}
	c.setState(StateDisconnected, apperror.New(apperror.CodeWebSocketConnectionError,
		apperror.WithContext(fmt.Sprintf("%s: reconnects exhausted", c.config.Name))))
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.config.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= c.config.MaxBackoff {
			return c.config.MaxBackoff
		}
	}
	return d
}

// Send sends a message through the WebSocket.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}

	wctx, cancel := ctx, context.CancelFunc(func() {})
	if c.config.WriteTimeout > 0 {
		wctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
	}
	defer cancel()

	if err := conn.Write(wctx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithContext(c.config.Name), apperror.WithCause(err))
	}
	return nil
}

// Ping round-trips a ping frame on the current connection.
func (c *Client) Ping(ctx context.Context) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.config.Name))
	}

	pctx, cancel := context.WithTimeout(ctx, c.config.PongTimeout)
	defer cancel()
	if err := conn.Ping(pctx); err != nil {
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithContext(c.config.Name), apperror.WithCause(err))
	}
	return nil
}

// SendJSON marshals v and sends it as a text frame.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := sonnet.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(c.config.Name), apperror.WithCause(err))
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether a live connection is attached.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close gracefully closes the WebSocket connection.
func (c *Client) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	c.cancel()
	c.wg.Wait()

	c.setState(StateClosed, nil)
	return nil
}

func (c *Client) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

func (c *Client) setState(state State, err error) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()

	c.handlerMu.RLock()
	h := c.onStateChange
	c.handlerMu.RUnlock()
	if h != nil {
		h(state, err)
	}
}
