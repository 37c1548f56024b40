package asset

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry is a thread-safe registry of known assets.
type Registry struct {
	byMint   map[string]*Asset
	bySymbol map[string]*Asset
	mu       sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		byMint:   make(map[string]*Asset),
		bySymbol: make(map[string]*Asset),
	}
}

// Register adds an asset. Mints and symbols must both be unique.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return fmt.Errorf("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byMint[a.mint]; exists {
		return fmt.Errorf("asset: mint %s already registered", a.mint)
	}
	key := strings.ToUpper(a.symbol)
	if _, exists := r.bySymbol[key]; exists {
		return fmt.Errorf("asset: symbol %s already registered", a.symbol)
	}

	r.byMint[a.mint] = a
	r.bySymbol[key] = a
	return nil
}

// Get retrieves an asset by mint address.
func (r *Registry) Get(mint string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byMint[mint]
	return a, ok
}

// GetBySymbol retrieves an asset by symbol, case-insensitively.
func (r *Registry) GetBySymbol(symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.bySymbol[strings.ToUpper(symbol)]
	return a, ok
}

// Resolve accepts either a symbol or a mint address.
func (r *Registry) Resolve(ref string) (*Asset, error) {
	if a, ok := r.GetBySymbol(ref); ok {
		return a, nil
	}
	if a, ok := r.Get(ref); ok {
		return a, nil
	}
	return nil, fmt.Errorf("asset: unknown token %q", ref)
}

// All returns all registered assets ordered by symbol.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Asset, 0, len(r.byMint))
	for _, a := range r.byMint {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].symbol < result[j].symbol })
	return result
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byMint)
}
