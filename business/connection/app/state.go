package app

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/internal/eventbus"
)

// StateTracker owns the single ConnectionState and publishes every change.
type StateTracker struct {
	bus   eventbus.Publisher
	clock clockwork.Clock

	mu    sync.Mutex
	state domain.State
}

// NewStateTracker creates a tracker in the all-disconnected state.
func NewStateTracker(bus eventbus.Publisher, clk clockwork.Clock) *StateTracker {
	return &StateTracker{bus: bus, clock: clk}
}

// Update applies fn and publishes the result. The lock is released before publishing.
func (t *StateTracker) Update(ctx context.Context, fn func(*domain.State)) domain.State {
	t.mu.Lock()
	fn(&t.state)
	t.state.UpdatedAt = t.clock.Now()
	snapshot := t.state
	t.mu.Unlock()

	t.bus.Publish(ctx, eventbus.TopicConnectionChanged, snapshot)
	return snapshot
}

// Snapshot returns a copy of the current state.
func (t *StateTracker) Snapshot() domain.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
