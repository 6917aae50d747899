// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/bureau-foundation/pannet/lib/bus"
)

// EventKind names a lifecycle event. The value doubles as the signal
// member name on the bus.
type EventKind string

const (
	ServerCreated     EventKind = "ServerCreated"
	ServerRemoved     EventKind = "ServerRemoved"
	ConnectionCreated EventKind = "ConnectionCreated"
	ConnectionRemoved EventKind = "ConnectionRemoved"
)

// Event reports that an object was added to or removed from a
// registry.
type Event struct {
	Kind EventKind
	Path ObjectPath
}

// Listener receives events. It is called on the manager loop and must
// not block or call back into the Manager.
type Listener func(Event)

// Notifier broadcasts lifecycle events. Registries call Notify once
// per mutation, after the mutation is visible, so a listener that
// immediately lists the registry sees the change.
type Notifier struct {
	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// NewNotifier returns a notifier with no listeners.
func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[int]Listener)}
}

// Subscribe adds a listener and returns the function that removes it.
func (n *Notifier) Subscribe(listener Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = listener
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

// Notify calls every listener with event, in subscription order.
func (n *Notifier) Notify(event Event) {
	n.mu.Lock()
	ids := make([]int, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, n.listeners[id])
	}
	n.mu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// SignalEmitter returns a Listener that re-emits events as bus signals
// from the manager object, with the affected path as the only
// argument.
func SignalEmitter(b *bus.Bus, logger *slog.Logger) Listener {
	return func(event Event) {
		signal, err := bus.NewSignal(string(ManagerPath), ManagerInterface, string(event.Kind), string(event.Path))
		if err != nil {
			logger.Error("encoding lifecycle signal", "event", event.Kind, "path", event.Path, "error", err)
			return
		}
		b.Emit(signal)
	}
}
