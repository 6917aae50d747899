// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bureau-foundation/pannet/lib/bus"
)

// Transport makes object paths reachable on the bus.
type Transport interface {
	Bind(path ObjectPath, handler bus.Handler) error
	Unbind(path ObjectPath) error
}

// BusTransport binds objects directly on b.
func BusTransport(b *bus.Bus) Transport { return busTransport{b} }

type busTransport struct{ bus *bus.Bus }

func (t busTransport) Bind(path ObjectPath, handler bus.Handler) error {
	return t.bus.Bind(string(path), handler)
}

func (t busTransport) Unbind(path ObjectPath) error {
	return t.bus.Unbind(string(path))
}

// AdapterRef is the object path of a local adapter, such as
// /org/bluez/hci0.
type AdapterRef string

// AdapterResolver picks the adapter that owns the default local
// address.
type AdapterResolver interface {
	CurrentAdapter() (AdapterRef, bool)
}

// ErrorNameConnectionAttemptFailed is the remote error name that
// discovery failures keep; every other remote error becomes
// NotSupported.
const ErrorNameConnectionAttemptFailed = "org.bluez.Error.ConnectionAttemptFailed"

// Adapter performs the remote service discovery calls. Both methods
// block until the remote answers or ctx ends. Errors implementing
// bus.NamedError with ErrorNameConnectionAttemptFailed are reported to
// the caller as ConnectionAttemptFailed.
type Adapter interface {
	FindServiceHandles(ctx context.Context, adapter AdapterRef, address string, service uuid.UUID) ([]uint32, error)
	FetchServiceRecord(ctx context.Context, adapter AdapterRef, address string, handle uint32) ([]byte, error)
}

// DataPlane owns the link-layer resources behind connections (the
// bridge and the per-connection interfaces). The manager sets it up
// when created and shuts it down after teardown.
type DataPlane interface {
	Setup() error
	Shutdown() error
}

// NopDataPlane is a DataPlane that only logs. Use it where link-layer
// bring-up is handled elsewhere.
type NopDataPlane struct {
	Logger *slog.Logger
}

func (d NopDataPlane) Setup() error {
	if d.Logger != nil {
		d.Logger.Info("data plane setup skipped")
	}
	return nil
}

func (d NopDataPlane) Shutdown() error {
	if d.Logger != nil {
		d.Logger.Info("data plane shutdown skipped")
	}
	return nil
}
