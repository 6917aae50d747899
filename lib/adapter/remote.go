// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/bureau-foundation/pannet/lib/bus"
	"github.com/bureau-foundation/pannet/lib/network"
)

// Interface is the bus interface adapter objects implement.
const Interface = "org.bluez.Adapter"

// Remote performs service discovery through the adapter service at a
// bus socket.
type Remote struct {
	client *bus.Client
}

// NewRemote returns a Remote that dials socketPath for every call.
func NewRemote(socketPath string) *Remote {
	return &Remote{client: bus.NewClient(socketPath)}
}

// FindServiceHandles asks the adapter for the record handles of
// service on the remote device.
func (r *Remote) FindServiceHandles(ctx context.Context, adapter network.AdapterRef, address string, service uuid.UUID) ([]uint32, error) {
	var handles []uint32
	err := r.client.Call(ctx, string(adapter), Interface, "GetRemoteServiceHandles",
		[]any{address, service.String()}, &handles)
	if err != nil {
		return nil, err
	}
	return handles, nil
}

// FetchServiceRecord asks the adapter for the raw service record at
// handle on the remote device.
func (r *Remote) FetchServiceRecord(ctx context.Context, adapter network.AdapterRef, address string, handle uint32) ([]byte, error) {
	var record []byte
	err := r.client.Call(ctx, string(adapter), Interface, "GetRemoteServiceRecord",
		[]any{address, handle}, &record)
	if err != nil {
		return nil, err
	}
	return record, nil
}
