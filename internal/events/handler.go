// ============================================
// File: internal/events/handler.go
// ============================================
package events

import (
	"context"
)

// Handler consumes events of the type it was subscribed for. Delivery
// happens off the submission path, but a handler that blocks still
// delays its sibling subscribers, so handlers should return quickly.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription is the detach handle returned by Subscribe. Unsubscribe
// is idempotent and safe to call while events are in flight; already
// dispatched events still reach the handler.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id  string
	bus *Bus
	typ EventType
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.typ)
}
