package controller

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/pixil98/go-kaillera/internal/relay"
)

// HandlerFunc turns one event into whatever the session should send.
type HandlerFunc func(ctx context.Context, s *Session, ev relay.Event) error

// Handler is a registered HandlerFunc with a diagnostic counter.
type Handler struct {
	name    string
	fn      HandlerFunc
	handled atomic.Int64
}

func (h *Handler) Name() string {
	return h.name
}

// HandledEventCount is the number of events dispatched to h, including ones
// that needed no outbound message.
func (h *Handler) HandledEventCount() int64 {
	return h.handled.Load()
}

func (h *Handler) handle(ctx context.Context, s *Session, ev relay.Event) error {
	h.handled.Add(1)
	return h.fn(ctx, s, ev)
}

// Dispatcher routes events to handlers by kind. Handlers are shared by every
// session.
type Dispatcher struct {
	handlers map[relay.EventKind]*Handler
}

// NewDispatcher returns a dispatcher with the built-in handlers registered.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{handlers: map[relay.EventKind]*Handler{}}
	for kind, h := range builtinHandlers {
		// Built-in kinds are unique so registration cannot fail.
		_ = d.Register(kind, h.name, h.fn)
	}
	return d
}

// Register adds a handler for kind.
func (d *Dispatcher) Register(kind relay.EventKind, name string, fn HandlerFunc) error {
	if fn == nil {
		return fmt.Errorf("handler %q cannot be nil", name)
	}
	if kind == relay.KindStopFlag {
		return fmt.Errorf("handler %q: stop events are never dispatched", name)
	}
	if existing, ok := d.handlers[kind]; ok {
		return fmt.Errorf("handler for %s already registered as %q", kind, existing.name)
	}
	d.handlers[kind] = &Handler{name: name, fn: fn}
	return nil
}

// Handler returns the handler for kind, or nil.
func (d *Dispatcher) Handler(kind relay.EventKind) *Handler {
	return d.handlers[kind]
}

// Counts returns every handler's HandledEventCount keyed by handler name.
func (d *Dispatcher) Counts() map[string]int64 {
	counts := make(map[string]int64, len(d.handlers))
	for _, h := range d.handlers {
		counts[h.name] = h.HandledEventCount()
	}
	return counts
}

func (d *Dispatcher) dispatch(ctx context.Context, s *Session, ev relay.Event) error {
	h, ok := d.handlers[ev.Kind()]
	if !ok {
		return fmt.Errorf("no handler for %s", ev.Kind())
	}
	return h.handle(ctx, s, ev)
}
