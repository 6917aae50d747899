// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"context"
	"encoding/hex"

	"github.com/bureau-foundation/pannet/lib/bus"
)

// ServerInfo is the GetInfo reply of a server object.
type ServerInfo struct {
	Path string `cbor:"path" json:"path"`
	Name string `cbor:"name" json:"name"`
	UUID string `cbor:"uuid" json:"uuid"`
}

// ConnectionInfo is the GetInfo reply of a connection object.
type ConnectionInfo struct {
	Path         string `cbor:"path" json:"path"`
	Address      string `cbor:"address" json:"address"`
	Name         string `cbor:"name" json:"name"`
	UUID         string `cbor:"uuid" json:"uuid"`
	RecordSize   int    `cbor:"record_size" json:"record_size"`
	RecordDigest string `cbor:"record_digest" json:"record_digest"`
}

// serverObject answers calls on a server path. Entries are immutable,
// so the handler reads its copy without going through the loop.
type serverObject struct {
	entry ServerEntry
}

func (o serverObject) HandleMessage(_ context.Context, call *bus.Call) bus.Result {
	if call.Interface != ServerInterface || call.Member != "GetInfo" {
		return bus.NotYetHandled
	}
	if err := call.DecodeArgs(); err != nil {
		call.Fail(wrapError(InvalidArguments, "GetInfo", err))
		return bus.Handled
	}
	call.Return(ServerInfo{
		Path: string(o.entry.Path),
		Name: o.entry.Role.Name,
		UUID: o.entry.Role.UUID.String(),
	})
	return bus.Handled
}

type connectionObject struct {
	entry ConnectionEntry
}

func (o connectionObject) HandleMessage(_ context.Context, call *bus.Call) bus.Result {
	if call.Interface != ConnectionInterface || call.Member != "GetInfo" {
		return bus.NotYetHandled
	}
	if err := call.DecodeArgs(); err != nil {
		call.Fail(wrapError(InvalidArguments, "GetInfo", err))
		return bus.Handled
	}
	call.Return(ConnectionInfo{
		Path:         string(o.entry.Path),
		Address:      o.entry.Address,
		Name:         o.entry.Role.Name,
		UUID:         o.entry.Role.UUID.String(),
		RecordSize:   o.entry.RecordSize,
		RecordDigest: hex.EncodeToString(o.entry.RecordDigest[:]),
	})
	return bus.Handled
}
