// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/pannet/lib/bus"
)

// Dispatcher is the fallback handler bound at ManagerPath. It serves
// the manager interface and answers calls to any other path under the
// manager that names no registered object.
type Dispatcher struct {
	manager *Manager
}

func (d *Dispatcher) HandleMessage(ctx context.Context, call *bus.Call) bus.Result {
	path := ObjectPath(call.Path)
	if path != ManagerPath {
		return d.handleChild(ctx, call, path)
	}
	if call.Interface != ManagerInterface {
		return bus.NotYetHandled
	}

	switch call.Member {
	case "ListServers":
		if !decode(call) {
			return bus.Handled
		}
		paths, err := d.manager.ListServers(ctx)
		replyPaths(call, paths, err)

	case "CreateServer":
		var service string
		if !decode(call, &service) {
			return bus.Handled
		}
		created, err := d.manager.CreateServer(ctx, service)
		replyPath(call, created, err)

	case "RemoveServer":
		var target string
		if !decode(call, &target) {
			return bus.Handled
		}
		replyEmpty(call, d.manager.RemoveServer(ctx, ObjectPath(target)))

	case "ListConnections":
		if !decode(call) {
			return bus.Handled
		}
		paths, err := d.manager.ListConnections(ctx)
		replyPaths(call, paths, err)

	case "CreateConnection":
		var address, service string
		if !decode(call, &address, &service) {
			return bus.Handled
		}
		d.manager.CreateConnection(ctx, address, service, func(created ObjectPath, err error) {
			replyPath(call, created, err)
		})

	case "RemoveConnection":
		var target string
		if !decode(call, &target) {
			return bus.Handled
		}
		replyEmpty(call, d.manager.RemoveConnection(ctx, ObjectPath(target)))

	default:
		return bus.NotYetHandled
	}
	return bus.Handled
}

// handleChild passes calls for registered objects on, so the bus can
// report an unknown method, and rejects the rest as unknown objects.
func (d *Dispatcher) handleChild(ctx context.Context, call *bus.Call, path ObjectPath) bus.Result {
	owned, err := d.manager.owns(ctx, path)
	if err != nil {
		call.Fail(err)
		return bus.Handled
	}
	if owned {
		return bus.NotYetHandled
	}
	call.Fail(newError(UnknownObject, fmt.Sprintf("no network object at %s", path)))
	return bus.Handled
}

func decode(call *bus.Call, targets ...any) bool {
	if err := call.DecodeArgs(targets...); err != nil {
		call.Fail(wrapError(InvalidArguments, call.Member, err))
		return false
	}
	return true
}

func replyPaths(call *bus.Call, paths []ObjectPath, err error) {
	if err != nil {
		call.Fail(err)
		return
	}
	values := make([]string, len(paths))
	for i, path := range paths {
		values[i] = string(path)
	}
	call.Return(values)
}

func replyPath(call *bus.Call, path ObjectPath, err error) {
	if err != nil {
		call.Fail(err)
		return
	}
	call.Return(string(path))
}

func replyEmpty(call *bus.Call, err error) {
	if err != nil {
		call.Fail(err)
		return
	}
	call.Return(nil)
}
