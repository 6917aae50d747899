// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package network is the personal-area-network manager: it owns the
// registries of server endpoints and established connections, runs
// the discovery handshake that must succeed before a connection
// exists, and exposes both over the bus at /org/bluez/network.
//
// # Execution model
//
// A [Manager] runs one loop goroutine. Every registry mutation, event
// notification, and establishment state transition happens on that
// loop, so the registries carry no locks of their own. Public Manager
// methods hop onto the loop and wait for it.
//
// The only work done off the loop is the two remote calls of the
// establishment handshake. Each runs in its own goroutine and posts
// its result back to the loop, where the [Coordinator] decides what
// happens next.
//
// # Establishment
//
// CreateConnection resolves the role, allocates a correlation id (and
// from it the future connection path), and picks the local adapter.
// It then asks the adapter for the remote's service handles, and with
// the first handle fetches the service record. A non-empty record
// promotes the request into the [ConnectionRegistry], which binds the
// path and emits ConnectionCreated; only then is the caller answered.
// Any failure discards the request without touching the registry.
// Each request gets exactly one reply.
//
// # Objects
//
//	/org/bluez/network                 org.bluez.network.Manager
//	/org/bluez/network/server/<ID>     org.bluez.network.Server
//	/org/bluez/network/connection<N>   org.bluez.network.Connection
//
// <ID> is the role's service class id in upper-case hex and <N> is the
// decimal correlation id. Calls to any other path under
// /org/bluez/network are answered with UnknownObject.
package network
