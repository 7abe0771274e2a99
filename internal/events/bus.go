// ============================================
// File: internal/events/bus.go
// ============================================
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusClosed is returned by Publish after Shutdown has begun.
	ErrBusClosed = errors.New("event bus is shutting down")
	// ErrQueueFull is returned by Publish when the queue cannot take
	// another event. The event is dropped, never the publisher blocked.
	ErrQueueFull = errors.New("event queue full")
)

// Bus fans submission lifecycle events out to their subscribers. The
// submission path publishes fire-and-forget: delivery is asynchronous
// through a bounded queue, and a slow or absent consumer costs dropped
// events, never latency on the pipeline.
type Bus struct {
	logger *zap.Logger
	queue  chan Event

	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBus creates a bus with the given queue capacity and starts its
// dispatch loop.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		logger:   logger.Named("event_bus"),
		queue:    make(chan Event, bufferSize),
		handlers: make(map[EventType]map[string]Handler),
		ctx:      ctx,
		cancel:   cancel,
	}

	b.wg.Add(1)
	go b.dispatch()

	return b
}

// Subscribe registers a handler for one event type and returns its
// subscription.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	b.handlers[eventType][id] = handler

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{id: id, bus: b, typ: eventType}
}

// SubscribeFunc registers a plain function as a handler.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish queues an event for asynchronous delivery.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return ErrBusClosed
	case b.queue <- event:
		return nil
	default:
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())))
		return ErrQueueFull
	}
}

// PublishSync delivers an event to every handler of its type before
// returning. Handler errors are collected, logged, and do not stop the
// remaining handlers.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, entry := range b.snapshot(event.Type()) {
		if err := entry.handler.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", entry.id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("handlers failed: %v", errs)
	}
	return nil
}

type handlerEntry struct {
	id      string
	handler Handler
}

// snapshot copies the handler set so delivery runs without the lock.
func (b *Bus) snapshot(typ EventType) []handlerEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := make([]handlerEntry, 0, len(b.handlers[typ]))
	for id, h := range b.handlers[typ] {
		entries = append(entries, handlerEntry{id: id, handler: h})
	}
	return entries
}

// dispatch drains the queue, delivering each event on its own goroutine
// so one slow handler cannot stall the others. On shutdown the queue is
// drained inline before the loop exits.
func (b *Bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			for {
				select {
				case event := <-b.queue:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.queue:
			b.wg.Add(1)
			go func(e Event) {
				defer b.wg.Done()
				_ = b.PublishSync(b.ctx, e)
			}(event)
		}
	}
}

func (b *Bus) unsubscribe(id string, typ EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[typ]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, typ)
		}
	}

	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(typ)),
		zap.String("subscription_id", id))
}

// Shutdown stops accepting events, delivers what is already queued and
// waits for in-flight handlers, up to ctx.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down event bus")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus shutdown complete")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout")
		return ctx.Err()
	}
}

// Stats describes the current state of the bus.
type Stats struct {
	BufferSize      int
	PendingEvents   int
	SubscribedTypes map[EventType]int
}

// Stats returns a snapshot of queue depth and handler registrations.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := Stats{
		BufferSize:      cap(b.queue),
		PendingEvents:   len(b.queue),
		SubscribedTypes: make(map[EventType]int, len(b.handlers)),
	}
	for typ, handlers := range b.handlers {
		st.SubscribedTypes[typ] = len(handlers)
	}
	return st
}
