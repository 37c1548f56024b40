package mempool

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"

	"github.com/fd1az/pool-sniper/internal/asset"
	"github.com/fd1az/pool-sniper/internal/logger"
)

// pendingServer answers pendingSwapSubscribe with an ack followed by a
// malformed notification and a valid one.
func pendingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var req subscribeRequest
			if err := sonnet.Unmarshal(data, &req); err != nil || req.Method != subscribeMethod {
				return
			}
			ack, _ := sonnet.Marshal(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": 7})
			_ = conn.Write(ctx, websocket.MessageText, ack)

			for _, txn := range []map[string]any{
				{"signature": "bad", "pool": "P1", "inputMint": "NOPE", "outputMint": asset.SOL.Mint(), "amountIn": "5"},
				{"signature": "good", "pool": "P1", "inputMint": asset.USDC.Mint(), "outputMint": "SOL", "amountIn": "250.5", "minAmountOut": "2.4"},
			} {
				note, _ := sonnet.Marshal(map[string]any{
					"jsonrpc": "2.0",
					"method":  notificationMethod,
					"params":  map[string]any{"subscription": 7, "result": txn},
				})
				_ = conn.Write(ctx, websocket.MessageText, note)
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newFeed(t *testing.T, url string) *Feed {
	t.Helper()
	f, err := NewFeed(url, asset.DefaultRegistry(), clockwork.NewRealClock(),
		logger.New(io.Discard, logger.LevelDebug, "test", nil))
	require.NoError(t, err)
	return f
}

func TestFeed_DecodesPendingSwaps(t *testing.T) {
	srv := pendingServer(t)
	f := newFeed(t, wsURL(srv))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := f.Subscribe(ctx)
	require.NoError(t, err)

	select {
	case swap := <-ch:
		assert.Equal(t, "good", swap.Signature, "malformed notifications are skipped")
		assert.Equal(t, "P1", swap.Pool)
		assert.Equal(t, asset.USDC, swap.From)
		assert.Equal(t, asset.SOL, swap.To)
		assert.Equal(t, "250.5", swap.AmountIn.String())
		assert.Equal(t, "2.4", swap.MinAmountOut.String())
	case <-time.After(2 * time.Second):
		t.Fatal("no pending swap delivered")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond, "channel closes after ctx ends")
}

func TestFeed_SubscribeTwice(t *testing.T) {
	srv := pendingServer(t)
	f := newFeed(t, wsURL(srv))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := f.Subscribe(ctx)
	require.NoError(t, err)
	_, err = f.Subscribe(ctx)
	assert.Error(t, err)
}

func TestFeed_DialFailure(t *testing.T) {
	f := newFeed(t, "ws://127.0.0.1:1")
	_, err := f.Subscribe(context.Background())
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	f := newFeed(t, "ws://unused")

	tests := []struct {
		name string
		in   wireTxn
		ok   bool
	}{
		{"valid", wireTxn{Signature: "s", Pool: "P", InputMint: "USDC", OutputMint: "SOL", AmountIn: "10"}, true},
		{"missing signature", wireTxn{Pool: "P", InputMint: "USDC", OutputMint: "SOL", AmountIn: "10"}, false},
		{"unknown mint", wireTxn{Signature: "s", Pool: "P", InputMint: "XYZ", OutputMint: "SOL", AmountIn: "10"}, false},
		{"zero amount", wireTxn{Signature: "s", Pool: "P", InputMint: "USDC", OutputMint: "SOL", AmountIn: "0"}, false},
		{"bad min out", wireTxn{Signature: "s", Pool: "P", InputMint: "USDC", OutputMint: "SOL", AmountIn: "1", MinAmountOut: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.decode(tt.in)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
