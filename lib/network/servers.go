// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/pannet/lib/netrole"
)

// ServerEntry is a registered server endpoint.
type ServerEntry struct {
	Role netrole.Role
	Path ObjectPath
}

// ServerRegistry tracks server endpoints, at most one per role. It is
// not safe for concurrent use; the Manager calls it only from its
// loop.
type ServerRegistry struct {
	transport Transport
	notifier  *Notifier
	logger    *slog.Logger
	table     objectTable[ServerEntry]
}

// NewServerRegistry returns an empty registry that binds server
// objects through transport and reports changes to notifier.
func NewServerRegistry(transport Transport, notifier *Notifier, logger *slog.Logger) *ServerRegistry {
	return &ServerRegistry{
		transport: transport,
		notifier:  notifier,
		logger:    logger,
		table:     objectTable[ServerEntry]{pathOf: func(e ServerEntry) ObjectPath { return e.Path }},
	}
}

// List returns the registered server paths in registration order.
func (r *ServerRegistry) List() []ObjectPath {
	return r.table.paths()
}

// Lookup returns the entry registered at path.
func (r *ServerRegistry) Lookup(path ObjectPath) (ServerEntry, bool) {
	entry, index := r.table.find(path)
	return entry, index >= 0
}

// Create registers the server for role and returns its path. If the
// role already has a server, Create returns the existing path and
// changes nothing.
func (r *ServerRegistry) Create(role netrole.Role) (ObjectPath, error) {
	path := ServerPath(role)
	if _, index := r.table.find(path); index >= 0 {
		return path, nil
	}

	entry := ServerEntry{Role: role, Path: path}
	if err := r.transport.Bind(path, serverObject{entry: entry}); err != nil {
		return "", wrapError(RegistrationFailed, fmt.Sprintf("binding %s", path), err)
	}
	r.table.insert(entry)

	r.logger.Info("server created", "path", path, "role", role.Name)
	r.notifier.Notify(Event{Kind: ServerCreated, Path: path})
	return path, nil
}

// Remove unregisters the server at path.
func (r *ServerRegistry) Remove(path ObjectPath) error {
	_, index := r.table.find(path)
	if index < 0 {
		return newError(NotFound, "Path doesn't exist")
	}
	r.table.removeAt(index)
	if err := r.transport.Unbind(path); err != nil {
		r.logger.Error("unbinding server object", "path", path, "error", err)
	}

	r.logger.Info("server removed", "path", path)
	r.notifier.Notify(Event{Kind: ServerRemoved, Path: path})
	return nil
}

// Teardown removes every server, newest first.
func (r *ServerRegistry) Teardown() {
	for r.table.len() > 0 {
		last := r.table.entries[r.table.len()-1]
		if err := r.Remove(last.Path); err != nil {
			r.logger.Error("removing server during teardown", "path", last.Path, "error", err)
			r.table.removeAt(r.table.len() - 1)
		}
	}
}
