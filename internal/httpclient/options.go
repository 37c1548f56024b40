// Package httpclient builds the traced, counted HTTP client behind the
// Solana JSON-RPC connection.
package httpclient

import "time"

type options struct {
	provider string
	timeout  time.Duration
	headers  map[string]string
}

// Option configures New.
type Option func(*options)

// WithProviderName labels the client's request counter and spans.
func WithProviderName(name string) Option {
	return func(o *options) { o.provider = name }
}

// WithRequestTimeout bounds each request end to end. Zero keeps the default.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithHeaders sets headers sent on every request unless the request already
// carries them.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) { o.headers = headers }
}
