// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/pannet/lib/netrole"
)

// ConnectionEntry is an established connection. Entries are created
// only by the establishment coordinator, after the remote service
// record has been fetched.
type ConnectionEntry struct {
	Path    ObjectPath
	Address string
	Role    netrole.Role

	// Adapter is the local adapter the connection was discovered
	// through.
	Adapter AdapterRef

	// Handle is the remote service record handle the connection was
	// established against.
	Handle uint32

	// RecordSize and RecordDigest describe the fetched service record.
	// The digest is BLAKE3-256 over the raw record bytes.
	RecordSize   int
	RecordDigest [32]byte

	EstablishedAt time.Time
}

// ConnectionRegistry tracks established connections. Like
// ServerRegistry it is confined to the Manager loop.
type ConnectionRegistry struct {
	transport Transport
	notifier  *Notifier
	logger    *slog.Logger
	table     objectTable[ConnectionEntry]
}

// NewConnectionRegistry returns an empty registry.
func NewConnectionRegistry(transport Transport, notifier *Notifier, logger *slog.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		transport: transport,
		notifier:  notifier,
		logger:    logger,
		table:     objectTable[ConnectionEntry]{pathOf: func(e ConnectionEntry) ObjectPath { return e.Path }},
	}
}

// List returns the connection paths in establishment order.
func (r *ConnectionRegistry) List() []ObjectPath {
	return r.table.paths()
}

// Lookup returns the entry registered at path.
func (r *ConnectionRegistry) Lookup(path ObjectPath) (ConnectionEntry, bool) {
	entry, index := r.table.find(path)
	return entry, index >= 0
}

// Promote installs entry. Either the entry is bound, stored and
// announced, or nothing changes.
func (r *ConnectionRegistry) Promote(entry ConnectionEntry) error {
	if _, index := r.table.find(entry.Path); index >= 0 {
		return newError(Conflict, fmt.Sprintf("connection %s already registered", entry.Path))
	}
	if err := r.transport.Bind(entry.Path, connectionObject{entry: entry}); err != nil {
		return wrapError(RegistrationFailed, fmt.Sprintf("binding %s", entry.Path), err)
	}
	r.table.insert(entry)

	r.logger.Info("connection created",
		"path", entry.Path,
		"address", entry.Address,
		"role", entry.Role.Name,
		"adapter", entry.Adapter,
		"record_size", entry.RecordSize,
	)
	r.notifier.Notify(Event{Kind: ConnectionCreated, Path: entry.Path})
	return nil
}

// Remove unregisters the connection at path.
func (r *ConnectionRegistry) Remove(path ObjectPath) error {
	_, index := r.table.find(path)
	if index < 0 {
		return newError(NotFound, "Path doesn't exist")
	}
	r.table.removeAt(index)
	if err := r.transport.Unbind(path); err != nil {
		r.logger.Error("unbinding connection object", "path", path, "error", err)
	}

	r.logger.Info("connection removed", "path", path)
	r.notifier.Notify(Event{Kind: ConnectionRemoved, Path: path})
	return nil
}

// Teardown removes every connection, newest first.
func (r *ConnectionRegistry) Teardown() {
	for r.table.len() > 0 {
		last := r.table.entries[r.table.len()-1]
		if err := r.Remove(last.Path); err != nil {
			r.logger.Error("removing connection during teardown", "path", last.Path, "error", err)
			r.table.removeAt(r.table.len() - 1)
		}
	}
}
