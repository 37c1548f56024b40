package domain

import (
	"sort"

	"github.com/shopspring/decimal"

	market "github.com/fd1az/pool-sniper/business/market/domain"
	"github.com/fd1az/pool-sniper/internal/asset"
)

// DefaultMaxDepth bounds cycle length when none is configured.
const DefaultMaxDepth = 3

type edge struct {
	pool string
	to   string
}

// Graph is an undirected token graph; every pool is an edge between its two
// mints. It is built per evaluation from a snapshot and never mutated.
type Graph struct {
	tokens map[string]*asset.Asset
	adj    map[string][]edge
	pools  int
}

// NewGraph builds the graph from the pools meeting minLiquidity. Pools below
// the floor are left out entirely.
func NewGraph(pools []market.Pool, minLiquidity decimal.Decimal) *Graph {
	g := &Graph{
		tokens: make(map[string]*asset.Asset),
		adj:    make(map[string][]edge),
	}
	for _, p := range pools {
		if !p.Valid(minLiquidity) || p.TokenA.Equals(p.TokenB) {
			continue
		}
		a, b := p.TokenA.Mint(), p.TokenB.Mint()
		g.tokens[a] = p.TokenA
		g.tokens[b] = p.TokenB
		g.adj[a] = append(g.adj[a], edge{pool: p.Address, to: b})
		g.adj[b] = append(g.adj[b], edge{pool: p.Address, to: a})
		g.pools++
	}
	for mint := range g.adj {
		edges := g.adj[mint]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].pool != edges[j].pool {
				return edges[i].pool < edges[j].pool
			}
			return edges[i].to < edges[j].to
		})
	}
	return g
}

// PoolCount returns the number of edges.
func (g *Graph) PoolCount() int {
	return g.pools
}

// HasPool reports whether address is an edge of the graph.
func (g *Graph) HasPool(address string) bool {
	for _, edges := range g.adj {
		for _, e := range edges {
			if e.pool == address {
				return true
			}
		}
	}
	return false
}

// Tokens returns the graph's tokens ordered by mint.
func (g *Graph) Tokens() []*asset.Asset {
	out := make([]*asset.Asset, 0, len(g.tokens))
	for _, a := range g.tokens {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mint() < out[j].Mint() })
	return out
}

// Token looks up a token by mint.
func (g *Graph) Token(mint string) (*asset.Asset, bool) {
	a, ok := g.tokens[mint]
	return a, ok
}

// FindCycles enumerates simple cycles through start with 2..maxDepth hops.
// No token is visited twice except start at the end, and a two-hop cycle
// must use two distinct pools.
func (g *Graph) FindCycles(start string, maxDepth int) []Path {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	origin, ok := g.tokens[start]
	if !ok || maxDepth < 2 {
		return nil
	}

	var (
		out     []Path
		hops    []Hop
		visited = map[string]bool{start: true}
	)

	var dfs func(at string)
	dfs = func(at string) {
		for _, e := range g.adj[at] {
			next := len(hops) + 1
			if e.to == start {
				if next < 2 || (next == 2 && e.pool == hops[0].Pool) {
					continue
				}
				cycle := append(hops, Hop{Pool: e.pool, From: g.tokens[at], To: origin})
				out = append(out, NewPath(origin, cycle))
				continue
			}
			if visited[e.to] || next >= maxDepth {
				continue
			}
			visited[e.to] = true
			hops = append(hops, Hop{Pool: e.pool, From: g.tokens[at], To: g.tokens[e.to]})
			dfs(e.to)
			hops = hops[:len(hops)-1]
			visited[e.to] = false
		}
	}
	dfs(start)
	return out
}
