package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRecoveryDecision  EventType = "recovery_decision"
	EventFallbackRouted    EventType = "fallback_routed"
	EventBreakerTransition EventType = "breaker_transition"
	EventStateChanged      EventType = "state_changed"
)

type Event struct {
	Type       EventType
	Timestamp  time.Time
	Component  string
	Capability string
	Provider   string
	Strategy   string
	State      string
}

type Collector struct {
	eventCh chan Event
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- Event {
	return c.eventCh
}

// Emit is a nil-safe, non-blocking send. Events are dropped rather than
// stalling the caller when the buffer is full.
func (c *Collector) Emit(event Event) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventRecoveryDecision:
		c.metrics.RecordDecision(event.Component, event.Strategy)

	case EventFallbackRouted:
		c.metrics.RecordFallback(event.Capability)

	case EventBreakerTransition:
		c.metrics.RecordBreakerTransition(event.Provider, event.State)

	case EventStateChanged:
		c.metrics.UpdateComponentState(event.Component, event.State)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}
