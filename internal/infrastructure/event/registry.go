package event

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/erp/receiving/internal/domain/shared"
)

// routes is an immutable routing table. Writers build a new one and swap it in.
type routes struct {
	typed    map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

// HandlerRegistry routes event types to handlers. Lookups read a snapshot
// without locking so dispatch never waits on a subscription change.
type HandlerRegistry struct {
	write   sync.Mutex
	current atomic.Pointer[routes]
}

func NewHandlerRegistry() *HandlerRegistry {
	r := &HandlerRegistry{}
	r.current.Store(&routes{typed: map[string][]shared.EventHandler{}})
	return r
}

// Register adds handler for eventTypes. With no event types the handler
// receives every event. Registering the same pair twice is a no-op.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.update(func(next *routes) {
		if len(eventTypes) == 0 {
			if !slices.Contains(next.wildcard, handler) {
				next.wildcard = append(next.wildcard, handler)
			}
			return
		}
		for _, eventType := range eventTypes {
			if !slices.Contains(next.typed[eventType], handler) {
				next.typed[eventType] = append(next.typed[eventType], handler)
			}
		}
	})
}

// Unregister removes handler from every route.
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	same := func(h shared.EventHandler) bool { return h == handler }
	r.update(func(next *routes) {
		next.wildcard = slices.DeleteFunc(next.wildcard, same)
		for eventType, handlers := range next.typed {
			if handlers = slices.DeleteFunc(handlers, same); len(handlers) == 0 {
				delete(next.typed, eventType)
			} else {
				next.typed[eventType] = handlers
			}
		}
	})
}

// GetHandlers returns the handlers for eventType followed by wildcard handlers.
// The slice must not be modified.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	rt := r.current.Load()
	typed := rt.typed[eventType]
	if len(rt.wildcard) == 0 {
		return typed
	}
	if len(typed) == 0 {
		return rt.wildcard
	}
	return slices.Concat(typed, rt.wildcard)
}

// EventTypes returns the event types with at least one typed handler, sorted.
func (r *HandlerRegistry) EventTypes() []string {
	return slices.Sorted(maps.Keys(r.current.Load().typed))
}

// update applies fn to a deep copy of the current table and publishes it.
func (r *HandlerRegistry) update(fn func(next *routes)) {
	r.write.Lock()
	defer r.write.Unlock()

	cur := r.current.Load()
	next := &routes{
		typed:    make(map[string][]shared.EventHandler, len(cur.typed)),
		wildcard: slices.Clone(cur.wildcard),
	}
	for eventType, handlers := range cur.typed {
		next.typed[eventType] = slices.Clone(handlers)
	}
	fn(next)
	r.current.Store(next)
}
