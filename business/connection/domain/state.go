// Package domain holds the connection context's value types.
package domain

import "time"

// Endpoint is one RPC endpoint. Lower Priority is preferred.
type Endpoint struct {
	Name     string
	URL      string
	Priority int
}

// State is the process-wide connectivity picture. It is copied by value
// into every connection:changed event.
type State struct {
	RPCConnected      bool
	WSConnected       bool
	LastError         string
	ReconnectAttempts int
	Endpoint          string
	Fatal             bool
	Reason            string
	UpdatedAt         time.Time
}

// Healthy reports whether trading may proceed.
func (s State) Healthy() bool {
	return s.RPCConnected && s.WSConnected && !s.Fatal
}

// Fatal reasons.
const (
	ReasonRPCExhausted    = "rpc endpoints exhausted"
	ReasonHealthExhausted = "rpc health reconnects exhausted"
	ReasonStreamExhausted = "stream reconnects exhausted"
)

// SubscriptionID identifies an account subscription independently of the
// id the server assigned, which changes across reconnects.
type SubscriptionID uint64

// AccountChange is one account-change notification.
type AccountChange struct {
	Address string
	Slot    uint64
	Data    []byte
}
