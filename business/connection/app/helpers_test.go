package app

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

type recordingBus struct {
	mu     sync.Mutex
	states []domain.State
}

func (b *recordingBus) Publish(_ context.Context, topic eventbus.Topic, payload any) {
	if topic != eventbus.TopicConnectionChanged {
		return
	}
	b.mu.Lock()
	b.states = append(b.states, payload.(domain.State))
	b.mu.Unlock()
}

func (b *recordingBus) last() domain.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.states) == 0 {
		return domain.State{}
	}
	return b.states[len(b.states)-1]
}

var errDown = errors.New("endpoint down")

type fakeRPC struct {
	mu      sync.Mutex
	dials   []string
	up      map[string]bool
	healthy bool
	probes  int
}

func newFakeRPC(up ...string) *fakeRPC {
	f := &fakeRPC{up: make(map[string]bool)}
	for _, name := range up {
		f.up[name] = true
	}
	return f
}

func (f *fakeRPC) Dial(_ context.Context, ep domain.Endpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials = append(f.dials, ep.Name)
	if f.up[ep.Name] {
		return nil
	}
	return errDown
}

func (f *fakeRPC) Health(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if f.healthy {
		return nil
	}
	return errDown
}

func (f *fakeRPC) dialLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dials...)
}

type fakeStream struct {
	mu           sync.Mutex
	openErr      error
	opens        int
	closed       bool
	nextWire     uint64
	subscribed   []string
	unsubscribed []uint64
	notify       NotificationHandler
	disconnect   func(error)
}

func (f *fakeStream) Open(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	return f.openErr
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) Ping(context.Context) error { return nil }

func (f *fakeStream) Subscribe(_ context.Context, address string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextWire++
	f.subscribed = append(f.subscribed, address)
	return f.nextWire, nil
}

func (f *fakeStream) Unsubscribe(_ context.Context, wireID uint64) error {
	f.mu.Lock()
	f.unsubscribed = append(f.unsubscribed, wireID)
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) OnNotification(h NotificationHandler) { f.notify = h }
func (f *fakeStream) OnDisconnect(h func(error))          { f.disconnect = h }

func (f *fakeStream) setOpenErr(err error) {
	f.mu.Lock()
	f.openErr = err
	f.mu.Unlock()
}

func (f *fakeStream) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribed)
}

func (f *fakeStream) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}
