// Package solana implements the connection transports against a Solana-style
// JSON-RPC node and its account-notification websocket.
package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sugawarayuuta/sonnet"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/httpclient"
	"github.com/fd1az/pool-sniper/internal/logger"
	"github.com/fd1az/pool-sniper/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/pool-sniper/business/connection/infra/solana"
	meterName  = "github.com/fd1az/pool-sniper/business/connection/infra/solana"
)

// RPCClientConfig holds the JSON-RPC client settings.
type RPCClientConfig struct {
	RequestTimeout    time.Duration
	RequestsPerSecond float64 // <= 0 disables limiting
	Burst             int
	Commitment        string
}

// DefaultRPCClientConfig returns sensible defaults.
func DefaultRPCClientConfig() RPCClientConfig {
	return RPCClientConfig{
		RequestTimeout:    10 * time.Second,
		RequestsPerSecond: 40,
		Burst:             10,
		Commitment:        "confirmed",
	}
}

// AccountInfo is the decoded result of getAccountInfo.
type AccountInfo struct {
	Exists   bool
	Slot     uint64
	Owner    string
	Lamports uint64
	Data     []byte
}

// SignatureStatus is one entry of getSignatureStatuses. Found is false when
// the node has not seen the signature.
type SignatureStatus struct {
	Found              bool
	Slot               uint64
	Confirmations      *uint64
	ConfirmationStatus string
	Err                string
}

// Blockhash is the result of getLatestBlockhash.
type Blockhash struct {
	Hash                 string
	LastValidBlockHeight uint64
	Slot                 uint64
}

type rpcMetrics struct {
	requests metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

// RPCClient talks JSON-RPC over HTTP. Dial swaps the underlying client so a
// supervisor can fail over between endpoints.
type RPCClient struct {
	cfg     RPCClientConfig
	http    *http.Client
	limiter *ratelimit.Limiter
	log     logger.LoggerInterface
	tracer  trace.Tracer
	metrics *rpcMetrics

	mu       sync.RWMutex
	client   *rpc.Client
	endpoint domain.Endpoint
}

// NewRPCClient creates an undialed client.
func NewRPCClient(cfg RPCClientConfig, log logger.LoggerInterface) (*RPCClient, error) {
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	hc, err := httpclient.New(
		httpclient.WithProviderName("solana-rpc"),
		httpclient.WithRequestTimeout(cfg.RequestTimeout),
		httpclient.WithHeaders(map[string]string{"Content-Type": "application/json"}),
	)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	c := &RPCClient{
		cfg:     cfg,
		http:    hc,
		limiter: ratelimit.New("solana-rpc", cfg.RequestsPerSecond, cfg.Burst),
		log:     log,
		tracer:  otel.Tracer(tracerName),
	}
	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return c, nil
}

func (c *RPCClient) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &rpcMetrics{}

	c.metrics.requests, err = meter.Int64Counter(
		"solana_rpc_requests_total",
		metric.WithDescription("JSON-RPC requests by method"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	c.metrics.failures, err = meter.Int64Counter(
		"solana_rpc_failures_total",
		metric.WithDescription("Failed JSON-RPC requests by method"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	c.metrics.latency, err = meter.Float64Histogram(
		"solana_rpc_latency_ms",
		metric.WithDescription("JSON-RPC round trip latency"),
		metric.WithUnit("ms"),
	)
	return err
}

// Dial connects to endpoint and probes it. The previous client is replaced
// only when the probe succeeds.
func (c *RPCClient) Dial(ctx context.Context, endpoint domain.Endpoint) error {
	ctx, span := c.tracer.Start(ctx, "solana.dial",
		trace.WithAttributes(attribute.String("endpoint", endpoint.Name)),
	)
	defer span.End()

	client, err := rpc.DialOptions(ctx, endpoint.URL, rpc.WithHTTPClient(c.http))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return apperror.Connection(apperror.CodeConnectionError, endpoint.Name, err)
	}

	if err := c.health(ctx, client); err != nil {
		client.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		return err
	}

	c.mu.Lock()
	old := c.client
	c.client = client
	c.endpoint = endpoint
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}

	span.SetStatus(codes.Ok, "connected")
	c.log.Debug(ctx, "rpc client dialed", "endpoint", endpoint.Name)
	return nil
}

// Health calls getHealth on the current endpoint.
func (c *RPCClient) Health(ctx context.Context) error {
	client, err := c.current()
	if err != nil {
		return err
	}
	return c.health(ctx, client)
}

func (c *RPCClient) health(ctx context.Context, client *rpc.Client) error {
	var status string
	if err := c.call(ctx, client, &status, "getHealth"); err != nil {
		return err
	}
	if status != "ok" {
		return apperror.Connection(apperror.CodeRPCError, "getHealth: "+status, nil)
	}
	return nil
}

// Endpoint returns the endpoint currently in use.
func (c *RPCClient) Endpoint() domain.Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

type accountInfoResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value *struct {
		Data     []string `json:"data"`
		Owner    string   `json:"owner"`
		Lamports uint64   `json:"lamports"`
	} `json:"value"`
}

// GetAccountInfo fetches an account's raw data.
func (c *RPCClient) GetAccountInfo(ctx context.Context, address string) (AccountInfo, error) {
	client, err := c.current()
	if err != nil {
		return AccountInfo{}, err
	}

	var res accountInfoResult
	opts := map[string]any{"encoding": "base64", "commitment": c.cfg.Commitment}
	if err := c.call(ctx, client, &res, "getAccountInfo", address, opts); err != nil {
		return AccountInfo{}, err
	}

	info := AccountInfo{Slot: res.Context.Slot}
	if res.Value == nil {
		return info, nil
	}
	data, err := DecodeAccountData(res.Value.Data)
	if err != nil {
		return AccountInfo{}, apperror.Connection(apperror.CodeRPCError, "getAccountInfo "+address, err)
	}
	info.Exists = true
	info.Owner = res.Value.Owner
	info.Lamports = res.Value.Lamports
	info.Data = data
	return info, nil
}

// SendTransaction submits a signed wire transaction and returns its signature.
func (c *RPCClient) SendTransaction(ctx context.Context, raw []byte) (string, error) {
	client, err := c.current()
	if err != nil {
		return "", err
	}

	var signature string
	opts := map[string]any{
		"encoding":            "base64",
		"preflightCommitment": c.cfg.Commitment,
		"maxRetries":          0,
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	if err := c.call(ctx, client, &signature, "sendTransaction", encoded, opts); err != nil {
		return "", err
	}
	return signature, nil
}

type signatureStatusesResult struct {
	Value []*struct {
		Slot               uint64          `json:"slot"`
		Confirmations      *uint64         `json:"confirmations"`
		ConfirmationStatus string          `json:"confirmationStatus"`
		Err                json.RawMessage `json:"err"`
	} `json:"value"`
}

// GetSignatureStatuses looks up the status of each signature, in order.
func (c *RPCClient) GetSignatureStatuses(ctx context.Context, signatures ...string) ([]SignatureStatus, error) {
	client, err := c.current()
	if err != nil {
		return nil, err
	}

	var res signatureStatusesResult
	opts := map[string]any{"searchTransactionHistory": false}
	if err := c.call(ctx, client, &res, "getSignatureStatuses", signatures, opts); err != nil {
		return nil, err
	}

	out := make([]SignatureStatus, len(signatures))
	for i, v := range res.Value {
		if i >= len(out) || v == nil {
			continue
		}
		out[i] = SignatureStatus{
			Found:              true,
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}
		if len(v.Err) > 0 && string(v.Err) != "null" {
			out[i].Err = string(v.Err)
		}
	}
	return out, nil
}

type blockhashResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}

// GetLatestBlockhash returns the blockhash new transactions should reference.
func (c *RPCClient) GetLatestBlockhash(ctx context.Context) (Blockhash, error) {
	client, err := c.current()
	if err != nil {
		return Blockhash{}, err
	}

	var res blockhashResult
	opts := map[string]any{"commitment": c.cfg.Commitment}
	if err := c.call(ctx, client, &res, "getLatestBlockhash", opts); err != nil {
		return Blockhash{}, err
	}
	return Blockhash{
		Hash:                 res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
		Slot:                 res.Context.Slot,
	}, nil
}

type balanceResult struct {
	Value uint64 `json:"value"`
}

// GetBalance returns an account's balance in lamports.
func (c *RPCClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	client, err := c.current()
	if err != nil {
		return 0, err
	}

	var res balanceResult
	opts := map[string]any{"commitment": c.cfg.Commitment}
	if err := c.call(ctx, client, &res, "getBalance", address, opts); err != nil {
		return 0, err
	}
	return res.Value, nil
}

// Close releases the current client.
func (c *RPCClient) Close() {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()
	if client != nil {
		client.Close()
	}
}

func (c *RPCClient) current() (*rpc.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, apperror.Connection(apperror.CodeConnectionError, "rpc client not dialed", nil)
	}
	return c.client, nil
}

// call performs one rate-limited, traced request and decodes the result.
func (c *RPCClient) call(ctx context.Context, client *rpc.Client, out any, method string, args ...any) error {
	ctx, span := c.tracer.Start(ctx, "solana."+method)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	attrs := metric.WithAttributes(attribute.String("method", method))
	c.metrics.requests.Add(ctx, 1, attrs)
	start := time.Now()

	var raw json.RawMessage
	err := client.CallContext(ctx, &raw, method, args...)
	c.metrics.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)

	if err != nil {
		c.metrics.failures.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")

		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return apperror.Connection(apperror.CodeRPCError,
				fmt.Sprintf("%s: code %d", method, rpcErr.ErrorCode()), err)
		}
		return apperror.Connection(apperror.CodeConnectionError, method, err)
	}

	if err := sonnet.Unmarshal(raw, out); err != nil {
		span.RecordError(err)
		return apperror.Connection(apperror.CodeRPCError, method+": decode result", err)
	}
	return nil
}

// DecodeAccountData decodes the ["<payload>", "<encoding>"] pair the node
// returns for account data.
func DecodeAccountData(pair []string) ([]byte, error) {
	if len(pair) == 0 {
		return nil, nil
	}
	if len(pair) > 1 && pair[1] != "base64" {
		return nil, fmt.Errorf("unsupported account encoding %q", pair[1])
	}
	return base64.StdEncoding.DecodeString(pair[0])
}
