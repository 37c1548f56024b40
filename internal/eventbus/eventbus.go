// Package eventbus is the in-process publish/subscribe channel between
// pipeline components. Each topic is backed by its own event.Feed and every
// subscription owns one delivery goroutine, so handlers for a subscription
// never run concurrently with each other.
package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"

	"github.com/fd1az/pool-sniper/internal/apperror"
	"github.com/fd1az/pool-sniper/internal/logger"
)

// Topic names a stream of events.
type Topic string

const (
	TopicConnectionChanged Topic = "connection:changed"
	TopicPoolUpdate        Topic = "pool:update"
	TopicOpportunity       Topic = "opportunity"
	TopicPositionOpen      Topic = "position:open"
	TopicPositionClose     Topic = "position:close"
	TopicPositionUpdate    Topic = "position:update"
	TopicMetricsUpdate     Topic = "metrics:update"
)

// Topics lists every topic the pipeline uses.
var Topics = []Topic{
	TopicConnectionChanged,
	TopicPoolUpdate,
	TopicOpportunity,
	TopicPositionOpen,
	TopicPositionClose,
	TopicPositionUpdate,
	TopicMetricsUpdate,
}

const defaultBuffer = 256

// Event is what subscribers receive. Payload is owned by the publisher and
// must be treated as read-only.
type Event struct {
	Topic   Topic
	Payload any
	At      time.Time
}

// Handler processes one event.
type Handler func(ctx context.Context, ev Event)

// Publisher is the narrow side most components depend on.
type Publisher interface {
	Publish(ctx context.Context, topic Topic, payload any)
}

// Bus routes events by topic.
type Bus struct {
	log    logger.LoggerInterface
	buffer int

	mu     sync.Mutex
	feeds  map[Topic]*event.Feed
	subs   map[*Subscription]struct{}
	closed bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithBuffer sets the per-subscription channel size.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// New creates a bus.
func New(log logger.LoggerInterface, opts ...Option) *Bus {
	b := &Bus{
		log:    log,
		buffer: defaultBuffer,
		feeds:  make(map[Topic]*event.Feed),
		subs:   make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) feed(topic Topic) *event.Feed {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.feeds[topic]
	if !ok {
		f = new(event.Feed)
		b.feeds[topic] = f
	}
	return f
}

// Publish delivers payload to every current subscriber of topic. It blocks
// only while a subscriber's buffer is full.
func (b *Bus) Publish(ctx context.Context, topic Topic, payload any) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	b.feed(topic).Send(Event{Topic: topic, Payload: payload, At: time.Now()})
}

// Subscribe registers handler for topic. name identifies the subscriber in logs.
func (b *Bus) Subscribe(topic Topic, name string, handler Handler) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		bus:     b,
		topic:   topic,
		name:    name,
		handler: handler,
		ch:      make(chan Event, b.buffer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		close(s.done)
		return s
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	s.sub = b.feed(topic).Subscribe(s.ch)
	go s.loop(ctx)
	return s
}

// Close unsubscribes everyone and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (b *Bus) forget(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Subscription is a live registration on one topic.
type Subscription struct {
	bus     *Bus
	topic   Topic
	name    string
	handler Handler
	ch      chan Event
	sub     event.Subscription

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *Subscription) loop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.ch:
			s.deliver(ctx, ev)
		}
	}
}

func (s *Subscription) deliver(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			err := apperror.Internal(apperror.CodeInternalError,
				fmt.Sprintf("subscriber=%s topic=%s", s.name, s.topic),
				fmt.Errorf("panic: %v", r))
			s.bus.log.Error(ctx, "event handler panicked", "error", err, "details", err.ToLog())
		}
	}()
	s.handler(ctx, ev)
}

// Unsubscribe stops delivery and waits for an in-progress handler to return.
// It must not be called from inside the subscription's own handler.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.sub != nil {
			s.sub.Unsubscribe()
		}
		s.cancel()
		<-s.done
		s.bus.forget(s)
	})
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() Topic { return s.topic }
