// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bus is the message bus the network manager is reached over.
//
// The bus routes method calls to handlers by object path, in the
// style of D-Bus: a handler is bound either to one exact path
// ([Bus.Bind]) or to a path and everything below it
// ([Bus.BindFallback]). A handler may decline a call by returning
// [NotYetHandled], in which case routing continues with the next
// matching fallback. A call nobody claims is answered with
// [ErrorUnknownMethod].
//
// Every call receives exactly one reply. Handlers reply through the
// [Call] they are given, either before returning or later from another
// goroutine; the first Return or Fail wins and later ones are dropped.
// This is what lets CreateConnection answer after two remote round
// trips without blocking the dispatcher.
//
// Signals emitted with [Bus.Emit] fan out to every subscriber whose
// path prefix covers the signal's path.
//
// [SocketServer] exposes a Bus on a Unix socket using CBOR (see
// lib/codec). Each connection carries either one method call and its
// reply, or a signal subscription that streams until either side
// closes. [Client] is the matching caller.
package bus
