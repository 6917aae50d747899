// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Result tells the bus whether a handler took responsibility for a
// call.
type Result int

const (
	// NotYetHandled passes the call on to the next matching handler.
	// The handler must not have replied.
	NotYetHandled Result = iota

	// Handled means the handler has replied or will reply later.
	Handled
)

// Handler receives method calls routed to a path.
type Handler interface {
	HandleMessage(ctx context.Context, call *Call) Result
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, call *Call) Result

func (f HandlerFunc) HandleMessage(ctx context.Context, call *Call) Result {
	return f(ctx, call)
}

var (
	// ErrPathInUse is returned when binding a path that already has a
	// handler.
	ErrPathInUse = errors.New("bus: object path already bound")

	// ErrNotBound is returned when unbinding a path with no handler.
	ErrNotBound = errors.New("bus: object path not bound")

	// ErrInvalidPath is returned for malformed object paths.
	ErrInvalidPath = errors.New("bus: invalid object path")
)

// signalBuffer is the per-subscriber queue depth. A subscriber that
// falls further behind loses signals rather than stalling Emit.
const signalBuffer = 64

// Bus routes calls to handlers and signals to subscribers. It is safe
// for concurrent use.
type Bus struct {
	logger *slog.Logger

	mu        sync.RWMutex
	objects   map[string]Handler
	fallbacks map[string]Handler

	subscribersMu sync.Mutex
	subscribers   map[uint64]*subscriber
	nextID        uint64
}

type subscriber struct {
	prefix  string
	signals chan Signal
}

// New returns an empty bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		logger:      logger,
		objects:     make(map[string]Handler),
		fallbacks:   make(map[string]Handler),
		subscribers: make(map[uint64]*subscriber),
	}
}

// Bind makes path reachable, routing calls for exactly that path to h.
func (b *Bus) Bind(path string, h Handler) error {
	return b.bind(b.objects, path, h)
}

// Unbind removes the handler bound to path.
func (b *Bus) Unbind(path string) error {
	return b.unbind(b.objects, path)
}

// BindFallback routes calls for path and every path below it to h,
// after any exact-path handler has declined.
func (b *Bus) BindFallback(path string, h Handler) error {
	return b.bind(b.fallbacks, path, h)
}

// UnbindFallback removes a fallback handler.
func (b *Bus) UnbindFallback(path string) error {
	return b.unbind(b.fallbacks, path)
}

func (b *Bus) bind(table map[string]Handler, path string, h Handler) error {
	if !ValidPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := table[path]; exists {
		return fmt.Errorf("%w: %s", ErrPathInUse, path)
	}
	table[path] = h
	return nil
}

func (b *Bus) unbind(table map[string]Handler, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := table[path]; !exists {
		return fmt.Errorf("%w: %s", ErrNotBound, path)
	}
	delete(table, path)
	return nil
}

// Bound reports whether an exact-path handler is bound to path.
func (b *Bus) Bound(path string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.objects[path]
	return exists
}

// route returns the handlers for path in the order they are offered
// the call: the exact-path handler, then fallbacks from the deepest
// prefix up to the root.
func (b *Bus) route(path string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var handlers []Handler
	if h, ok := b.objects[path]; ok {
		handlers = append(handlers, h)
	}

	var prefixes []string
	for prefix := range b.fallbacks {
		if covers(prefix, path) {
			prefixes = append(prefixes, prefix)
		}
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	for _, prefix := range prefixes {
		handlers = append(handlers, b.fallbacks[prefix])
	}
	return handlers
}

// Dispatch offers call to the handlers for its path until one claims
// it. Unclaimed calls are failed with ErrorUnknownMethod. Dispatch
// does not wait for the reply; use call.Done.
func (b *Bus) Dispatch(ctx context.Context, call *Call) {
	for _, h := range b.route(call.Path) {
		if h.HandleMessage(ctx, call) == Handled {
			return
		}
	}
	call.Fail(&RemoteError{
		Name: ErrorUnknownMethod,
		Message: fmt.Sprintf("method %q with interface %q does not exist on %s",
			call.Member, call.Interface, call.Path),
	})
}

// Call dispatches msg and waits for the reply or ctx.
func (b *Bus) Call(ctx context.Context, msg Message) (Response, error) {
	call := NewCall(msg)
	b.Dispatch(ctx, call)
	select {
	case <-call.Done():
		return call.Response(), nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Emit delivers signal to every subscriber whose prefix covers the
// signal's path. It never blocks.
func (b *Bus) Emit(signal Signal) {
	b.subscribersMu.Lock()
	defer b.subscribersMu.Unlock()
	for id, sub := range b.subscribers {
		if !covers(sub.prefix, signal.Path) {
			continue
		}
		select {
		case sub.signals <- signal:
		default:
			b.logger.Warn("dropping signal for slow subscriber",
				"subscriber", id,
				"path", signal.Path,
				"member", signal.Member,
			)
		}
	}
}

// Subscribe returns a channel of signals emitted at or below prefix and
// a function that ends the subscription and closes the channel.
func (b *Bus) Subscribe(prefix string) (<-chan Signal, func()) {
	b.subscribersMu.Lock()
	defer b.subscribersMu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscriber{prefix: prefix, signals: make(chan Signal, signalBuffer)}
	b.subscribers[id] = sub

	var once sync.Once
	return sub.signals, func() {
		once.Do(func() {
			b.subscribersMu.Lock()
			defer b.subscribersMu.Unlock()
			delete(b.subscribers, id)
			close(sub.signals)
		})
	}
}
