package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/erp/receiving/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ErrBusStopped is returned when publishing to a stopped asynchronous bus
var ErrBusStopped = errors.New("event bus stopped")

type envelope struct {
	ctx   context.Context
	event shared.DomainEvent
}

// InMemoryEventBus dispatches domain events to in-process handlers. Without
// workers every Publish runs the handlers before returning; with workers the
// events are queued and dispatched once the bus is started.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger

	workers int
	queue   chan envelope
	running atomic.Bool
	stopped atomic.Bool
	wg      sync.WaitGroup
	mu      sync.RWMutex

	dispatched atomic.Int64
	failed     atomic.Int64
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithWorkers dispatches events on n goroutines fed by a queue of queueSize.
// n <= 0 keeps dispatch synchronous.
func WithWorkers(n, queueSize int) BusOption {
	return func(b *InMemoryEventBus) {
		if n <= 0 {
			return
		}
		if queueSize < 1 {
			queueSize = 1
		}
		b.workers = n
		b.queue = make(chan envelope, queueSize)
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(l *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if l == nil {
		l = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   l.Named("event_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands events to their handlers. Handler failures are logged and do
// not fail the publish. When the queue is full the event is dispatched inline.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.workers == 0 || !b.running.Load() {
		if b.workers > 0 && b.stopped.Load() {
			return ErrBusStopped
		}
		for _, event := range events {
			b.dispatch(ctx, event)
		}
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running.Load() {
		return ErrBusStopped
	}
	detached := context.WithoutCancel(ctx)
	for _, event := range events {
		select {
		case b.queue <- envelope{ctx: detached, event: event}:
		default:
			b.logger.Warn("event queue full, dispatching inline",
				zap.String("event_type", event.EventType()),
			)
			b.dispatch(ctx, event)
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes, or for handler.EventTypes() when none are given
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the dispatch workers
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if b.stopped.Load() {
		return ErrBusStopped
	}
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.work()
	}
	b.logger.Info("event bus started", zap.Int("workers", b.workers))
	return nil
}

// Stop stops accepting events, drains the queue and waits for the workers
// or for ctx to end.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	wasRunning := b.running.Swap(false)
	b.stopped.Store(true)
	if wasRunning && b.queue != nil {
		close(b.queue)
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("event bus stopped",
			zap.Int64("dispatched", b.dispatched.Load()),
			zap.Int64("failed", b.failed.Load()),
		)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

// Stats returns how many handler invocations succeeded and failed
func (b *InMemoryEventBus) Stats() (dispatched, failed int64) {
	return b.dispatched.Load(), b.failed.Load()
}

func (b *InMemoryEventBus) work() {
	defer b.wg.Done()
	for env := range b.queue {
		b.dispatch(env.ctx, env.event)
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.invoke(ctx, handler, event); err != nil {
			b.failed.Add(1)
			logger.WithLogger(ctx, b.logger).Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
			continue
		}
		b.dispatched.Add(1)
	}
}

func (b *InMemoryEventBus) invoke(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventPublisher = (*InMemoryEventBus)(nil)
