package app

import (
	"context"
	"sync"

	connDomain "github.com/fd1az/pool-sniper/business/connection/domain"
	"github.com/fd1az/pool-sniper/business/monitoring/domain"
	positionApp "github.com/fd1az/pool-sniper/business/position/app"
	positionDomain "github.com/fd1az/pool-sniper/business/position/domain"
	strategy "github.com/fd1az/pool-sniper/business/strategy/domain"
	"github.com/fd1az/pool-sniper/internal/eventbus"
	"github.com/fd1az/pool-sniper/internal/logger"
)

// Feed forwards bus events to a reporter.
type Feed struct {
	reporter Reporter
	bus      *eventbus.Bus
	log      logger.LoggerInterface

	mu   sync.Mutex
	subs []*eventbus.Subscription
}

// NewFeed creates a feed for reporter.
func NewFeed(reporter Reporter, bus *eventbus.Bus, log logger.LoggerInterface) *Feed {
	return &Feed{reporter: reporter, bus: bus, log: log}
}

// Start starts the reporter and subscribes it to the bus.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs != nil {
		return nil
	}
	if err := f.reporter.Start(ctx); err != nil {
		return err
	}
	f.subs = []*eventbus.Subscription{
		f.bus.Subscribe(eventbus.TopicOpportunity, "monitoring.report.opportunity", f.dispatch),
		f.bus.Subscribe(eventbus.TopicConnectionChanged, "monitoring.report.connection", f.dispatch),
		f.bus.Subscribe(eventbus.TopicMetricsUpdate, "monitoring.report.metrics", f.dispatch),
		f.bus.Subscribe(eventbus.TopicPositionOpen, "monitoring.report.open", f.dispatch),
		f.bus.Subscribe(eventbus.TopicPositionUpdate, "monitoring.report.update", f.dispatch),
		f.bus.Subscribe(eventbus.TopicPositionClose, "monitoring.report.close", f.dispatch),
	}
	return nil
}

// Stop unsubscribes and stops the reporter.
func (f *Feed) Stop() error {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()

	if subs == nil {
		return nil
	}
	for _, s := range subs {
		s.Unsubscribe()
	}
	return f.reporter.Stop()
}

func (f *Feed) dispatch(ctx context.Context, ev eventbus.Event) {
	switch p := ev.Payload.(type) {
	case strategy.Opportunity:
		f.reporter.ReportOpportunity(p)
	case connDomain.State:
		f.reporter.UpdateConnection(p)
	case domain.Snapshot:
		f.reporter.UpdateMetrics(p)
	case positionDomain.Position:
		f.reporter.ReportPosition(string(ev.Topic), p)
	case positionApp.Update:
		f.reporter.ReportPosition(string(ev.Topic), p.Position)
	default:
		f.log.Debug(ctx, "report feed ignored payload", "topic", ev.Topic)
	}
}
