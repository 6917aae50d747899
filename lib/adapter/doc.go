// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package adapter connects the network manager to the local Bluetooth
// adapter service.
//
// [SysfsResolver] and [StaticResolver] pick the adapter object the
// manager discovers through. [Remote] performs service discovery by
// calling that adapter object (interface org.bluez.Adapter) over a bus
// socket:
//
//	GetRemoteServiceHandles(address string, uuid string) -> []uint32
//	GetRemoteServiceRecord(address string, handle uint32) -> []byte
//
// Failure replies come back as *bus.RemoteError, so the manager can
// tell org.bluez.Error.ConnectionAttemptFailed apart from other
// failures.
package adapter
