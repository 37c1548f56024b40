// Package domain contains the token graph and arbitrage paths.
package domain

import (
	"strings"

	"github.com/fd1az/pool-sniper/internal/asset"
)

// Hop is one swap through a pool.
type Hop struct {
	Pool string
	From *asset.Asset
	To   *asset.Asset
}

// Path is a cycle that starts and ends at Start.
type Path struct {
	Start *asset.Asset
	Hops  []Hop
}

// NewPath copies hops.
func NewPath(start *asset.Asset, hops []Hop) Path {
	return Path{Start: start, Hops: append([]Hop(nil), hops...)}
}

// Len returns the number of hops.
func (p Path) Len() int {
	return len(p.Hops)
}

// Pools returns the pool addresses in hop order.
func (p Path) Pools() []string {
	out := make([]string, len(p.Hops))
	for i, h := range p.Hops {
		out[i] = h.Pool
	}
	return out
}

// String renders the token route, e.g. "SOL→USDC→SOL".
func (p Path) String() string {
	if len(p.Hops) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.Hops[0].From.Symbol())
	for _, h := range p.Hops {
		b.WriteString("→")
		b.WriteString(h.To.Symbol())
	}
	return b.String()
}

// Clone returns a copy with its own hop slice.
func (p Path) Clone() Path {
	return NewPath(p.Start, p.Hops)
}
