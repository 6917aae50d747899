// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/pannet/lib/bus"
	"github.com/bureau-foundation/pannet/lib/clock"
	"github.com/bureau-foundation/pannet/lib/netrole"
)

// Config holds the collaborators of a Manager.
type Config struct {
	// Bus receives the manager's fallback handler. Required.
	Bus *bus.Bus

	// Transport binds server and connection objects. Defaults to
	// binding on Bus.
	Transport Transport

	Resolver  AdapterResolver
	Adapter   Adapter
	DataPlane DataPlane

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// EstablishTimeout bounds each discovery stage of
	// CreateConnection. Zero waits indefinitely.
	EstablishTimeout time.Duration

	Logger *slog.Logger
}

// Manager is the network manager object. It owns the server and
// connection registries and the establishment coordinator, and
// confines all of them to one loop goroutine. The exported methods are
// safe for concurrent use.
type Manager struct {
	bus       *bus.Bus
	dataPlane DataPlane
	logger    *slog.Logger

	notifier    *Notifier
	servers     *ServerRegistry
	connections *ConnectionRegistry
	coordinator *Coordinator

	work     chan func()
	stop     chan struct{}
	loopDone chan struct{}
	cancel   context.CancelFunc

	// closed is owned by the loop. Once set, operations fail with
	// Canceled.
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// NewManager sets up the data plane, binds the manager on the bus, and
// starts the loop.
func NewManager(config Config) (*Manager, error) {
	if config.Bus == nil {
		return nil, errors.New("network manager requires a bus")
	}
	if config.Resolver == nil || config.Adapter == nil {
		return nil, errors.New("network manager requires an adapter resolver and an adapter")
	}
	if config.Transport == nil {
		config.Transport = BusTransport(config.Bus)
	}
	if config.DataPlane == nil {
		config.DataPlane = NopDataPlane{}
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	logger := config.Logger.With("component", "network")

	if err := config.DataPlane.Setup(); err != nil {
		return nil, fmt.Errorf("setting up data plane: %w", err)
	}

	base, cancel := context.WithCancel(context.Background())
	m := &Manager{
		bus:       config.Bus,
		dataPlane: config.DataPlane,
		logger:    logger,
		notifier:  NewNotifier(),
		work:      make(chan func()),
		stop:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		cancel:    cancel,
	}
	m.servers = NewServerRegistry(config.Transport, m.notifier, logger)
	m.connections = NewConnectionRegistry(config.Transport, m.notifier, logger)
	m.coordinator = NewCoordinator(CoordinatorConfig{
		Resolver:    config.Resolver,
		Adapter:     config.Adapter,
		Connections: m.connections,
		Clock:       config.Clock,
		Timeout:     config.EstablishTimeout,
		Logger:      logger,
		Post:        m.postResult,
		Base:        base,
	})
	m.notifier.Subscribe(SignalEmitter(config.Bus, logger))

	if err := config.Bus.BindFallback(string(ManagerPath), &Dispatcher{manager: m}); err != nil {
		cancel()
		if shutdownErr := config.DataPlane.Shutdown(); shutdownErr != nil {
			logger.Error("shutting down data plane", "error", shutdownErr)
		}
		return nil, fmt.Errorf("binding %s: %w", ManagerPath, err)
	}

	go m.loop()
	logger.Info("network manager started", "path", ManagerPath, "establish_timeout", config.EstablishTimeout)
	return m, nil
}

func (m *Manager) loop() {
	defer close(m.loopDone)
	for {
		select {
		case fn := <-m.work:
			fn()
		case <-m.stop:
			return
		}
	}
}

// do runs fn on the loop and waits for it. Functions running on the
// loop must never call do.
func (m *Manager) do(ctx context.Context, fn func() error) error {
	var err error
	done := make(chan struct{})
	task := func() {
		defer close(done)
		if m.closed {
			err = newError(Canceled, "network manager is closed")
			return
		}
		err = fn()
	}
	select {
	case m.work <- task:
	case <-m.stop:
		return newError(Canceled, "network manager is closed")
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return err
}

// postResult schedules fn on the loop without waiting. Results posted
// after the loop stopped are dropped; Close has already answered their
// requests.
func (m *Manager) postResult(fn func()) {
	select {
	case m.work <- fn:
	case <-m.stop:
	}
}

// Subscribe registers listener for lifecycle events. Listeners run on
// the loop and must not call back into the Manager.
func (m *Manager) Subscribe(listener Listener) func() {
	return m.notifier.Subscribe(listener)
}

// ListServers returns the registered server paths.
func (m *Manager) ListServers(ctx context.Context) ([]ObjectPath, error) {
	var paths []ObjectPath
	err := m.do(ctx, func() error {
		paths = m.servers.List()
		return nil
	})
	return paths, err
}

// CreateServer registers the server for serviceName, or returns the
// existing one for its role.
func (m *Manager) CreateServer(ctx context.Context, serviceName string) (ObjectPath, error) {
	role, err := netrole.Resolve(serviceName)
	if err != nil {
		return "", wrapError(UnsupportedService, "CreateServer", err)
	}
	if !role.Serving() {
		return "", newError(UnsupportedService, fmt.Sprintf("%s is not a serving role", role.Name))
	}

	var path ObjectPath
	err = m.do(ctx, func() error {
		var createErr error
		path, createErr = m.servers.Create(role)
		return createErr
	})
	return path, err
}

// RemoveServer unregisters the server at path.
func (m *Manager) RemoveServer(ctx context.Context, path ObjectPath) error {
	return m.do(ctx, func() error { return m.servers.Remove(path) })
}

// ListConnections returns the established connection paths.
func (m *Manager) ListConnections(ctx context.Context) ([]ObjectPath, error) {
	var paths []ObjectPath
	err := m.do(ctx, func() error {
		paths = m.connections.List()
		return nil
	})
	return paths, err
}

// CreateConnection starts establishing a connection to the remote
// device at address offering serviceName. reply is called exactly
// once with the result. It may be called before CreateConnection
// returns, and always on the manager loop, so it must not block or
// call back into the Manager.
//
// Cancelling ctx only abandons queueing the request; an accepted
// request runs to its own terminal result.
func (m *Manager) CreateConnection(ctx context.Context, address, serviceName string, reply ReplyFunc) {
	task := func() {
		if m.closed {
			reply("", newError(Canceled, "network manager is closed"))
			return
		}
		m.coordinator.Begin(address, serviceName, reply)
	}
	select {
	case m.work <- task:
	case <-m.stop:
		reply("", newError(Canceled, "network manager is closed"))
	case <-ctx.Done():
		reply("", ctx.Err())
	}
}

// Connect is CreateConnection that waits for the result.
func (m *Manager) Connect(ctx context.Context, address, serviceName string) (ObjectPath, error) {
	type result struct {
		path ObjectPath
		err  error
	}
	results := make(chan result, 1)
	m.CreateConnection(ctx, address, serviceName, func(path ObjectPath, err error) {
		results <- result{path, err}
	})
	select {
	case r := <-results:
		return r.path, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// RemoveConnection unregisters the connection at path.
func (m *Manager) RemoveConnection(ctx context.Context, path ObjectPath) error {
	return m.do(ctx, func() error { return m.connections.Remove(path) })
}

// owns reports whether path is a registered server or connection.
func (m *Manager) owns(ctx context.Context, path ObjectPath) (bool, error) {
	var found bool
	err := m.do(ctx, func() error {
		_, isServer := m.servers.Lookup(path)
		_, isConnection := m.connections.Lookup(path)
		found = isServer || isConnection
		return nil
	})
	return found, err
}

// Close fails pending establishments, removes every connection and
// server, stops the loop, and shuts down the data plane. Later calls
// return the first call's result.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		done := make(chan struct{})
		m.work <- func() {
			defer close(done)
			m.closed = true
			m.coordinator.CancelAll()
			m.connections.Teardown()
			m.servers.Teardown()
		}
		<-done

		close(m.stop)
		<-m.loopDone
		m.cancel()

		if err := m.bus.UnbindFallback(string(ManagerPath)); err != nil {
			m.logger.Warn("unbinding network manager", "error", err)
		}
		if err := m.dataPlane.Shutdown(); err != nil {
			m.closeErr = fmt.Errorf("shutting down data plane: %w", err)
		}
		m.logger.Info("network manager stopped")
	})
	return m.closeErr
}
