// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/pannet/lib/bus"
	"github.com/bureau-foundation/pannet/lib/clock"
	"github.com/bureau-foundation/pannet/lib/testutil"
)

const testTimeout = 5 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAdapter answers discovery calls from per-address tables. A
// missing address answers with no handles.
type fakeAdapter struct {
	mu      sync.Mutex
	handles map[string][]uint32
	records map[string][]byte

	handleErr error
	recordErr error

	// gate, if set, holds every FindServiceHandles call until it is
	// closed or the call's context ends.
	gate chan struct{}

	// started receives the address of each FindServiceHandles call.
	started chan string

	handleCalls []string
	recordCalls []uint32
	services    []uuid.UUID
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		handles: make(map[string][]uint32),
		records: make(map[string][]byte),
		started: make(chan string, 16),
	}
}

func (a *fakeAdapter) FindServiceHandles(ctx context.Context, _ AdapterRef, address string, service uuid.UUID) ([]uint32, error) {
	a.mu.Lock()
	a.handleCalls = append(a.handleCalls, address)
	a.services = append(a.services, service)
	gate := a.gate
	handles, err := a.handles[address], a.handleErr
	a.mu.Unlock()

	a.started <- address
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return handles, err
}

func (a *fakeAdapter) FetchServiceRecord(ctx context.Context, _ AdapterRef, address string, handle uint32) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recordCalls = append(a.recordCalls, handle)
	return a.records[address], a.recordErr
}

func (a *fakeAdapter) recordHandles() []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uint32(nil), a.recordCalls...)
}

type fixedResolver struct {
	ref AdapterRef
	ok  bool
}

func (r fixedResolver) CurrentAdapter() (AdapterRef, bool) { return r.ref, r.ok }

// failingTransport refuses to bind the paths in refuse and passes the
// rest through to the bus.
type failingTransport struct {
	Transport
	refuse map[ObjectPath]bool
}

var errBindRefused = errors.New("bind refused")

func (t failingTransport) Bind(path ObjectPath, handler bus.Handler) error {
	if t.refuse[path] {
		return errBindRefused
	}
	return t.Transport.Bind(path, handler)
}

type recordingDataPlane struct {
	mu        sync.Mutex
	setups    int
	shutdowns int
}

func (d *recordingDataPlane) Setup() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setups++
	return nil
}

func (d *recordingDataPlane) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdowns++
	return nil
}

type harness struct {
	manager   *Manager
	bus       *bus.Bus
	adapter   *fakeAdapter
	dataPlane *recordingDataPlane
	events    chan Event
}

type harnessOption func(*Config)

func withTransport(wrap func(Transport) Transport) harnessOption {
	return func(c *Config) { c.Transport = wrap(BusTransport(c.Bus)) }
}

func withResolver(r AdapterResolver) harnessOption {
	return func(c *Config) { c.Resolver = r }
}

func withTimeout(clk clock.Clock, timeout time.Duration) harnessOption {
	return func(c *Config) {
		c.Clock = clk
		c.EstablishTimeout = timeout
	}
}

func newHarness(t *testing.T, options ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		bus:       bus.New(testLogger()),
		adapter:   newFakeAdapter(),
		dataPlane: &recordingDataPlane{},
		events:    make(chan Event, 64),
	}
	config := Config{
		Bus:       h.bus,
		Resolver:  fixedResolver{ref: "/org/bluez/hci0", ok: true},
		Adapter:   h.adapter,
		DataPlane: h.dataPlane,
		Clock:     clock.Fake(time.Unix(1_700_000_000, 0)),
		Logger:    testLogger(),
	}
	for _, option := range options {
		option(&config)
	}
	manager, err := NewManager(config)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h.manager = manager
	manager.Subscribe(func(event Event) { h.events <- event })
	t.Cleanup(func() { manager.Close() })
	return h
}

func (h *harness) requireEvent(t *testing.T, kind EventKind, path ObjectPath) {
	t.Helper()
	event := testutil.RequireReceive(t, h.events, testTimeout, "waiting for %s", kind)
	if event.Kind != kind || event.Path != path {
		t.Fatalf("event = %+v, want {%s %s}", event, kind, path)
	}
}

func (h *harness) requireNoEvent(t *testing.T) {
	t.Helper()
	testutil.RequireNoReceive(t, h.events, 50*time.Millisecond, "unexpected lifecycle event")
}

func requireKind(t *testing.T, err error, sentinel *Error) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want kind %s", err, sentinel.Kind)
	}
}

func requirePaths(t *testing.T, got []ObjectPath, want ...ObjectPath) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("paths = %v, want %v", got, want)
		}
	}
}
