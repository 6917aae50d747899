// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netrole is the catalog of personal-area-network service
// roles.
//
// The catalog is closed: PANU (the client role), NAP (network access
// point), and GN (group ad-hoc network). A service name resolves to a
// role if, after trimming surrounding whitespace, it matches any of:
//
//   - the friendly name ("panu", "nap", "gn"), ignoring case;
//   - the role's 128-bit UUID in any form uuid.Parse accepts;
//   - the 16-bit service class id in hex, with or without a "0x"
//     prefix ("1116", "0x1117").
//
// Anything else fails with ErrUnknownService. Only serving roles may
// own a server endpoint or be dialled as the remote side of a
// connection; see [Role.Serving].
package netrole

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ID is a 16-bit service class identifier.
type ID uint16

const (
	PANU ID = 0x1115
	NAP  ID = 0x1116
	GN   ID = 0x1117
)

// Role is one entry of the catalog.
type Role struct {
	ID      ID
	Name    string
	UUID    uuid.UUID
	serving bool
}

// Serving reports whether the role offers network service (NAP, GN)
// rather than consuming it (PANU).
func (r Role) Serving() bool { return r.serving }

func (r Role) String() string { return r.Name }

// ErrUnknownService is returned for names outside the catalog.
var ErrUnknownService = errors.New("unknown network service")

var catalog = []Role{
	{ID: PANU, Name: "panu", UUID: uuid.MustParse("00001115-0000-1000-8000-00805f9b34fb")},
	{ID: NAP, Name: "nap", UUID: uuid.MustParse("00001116-0000-1000-8000-00805f9b34fb"), serving: true},
	{ID: GN, Name: "gn", UUID: uuid.MustParse("00001117-0000-1000-8000-00805f9b34fb"), serving: true},
}

// All returns every role in the catalog, ordered by ID.
func All() []Role {
	roles := make([]Role, len(catalog))
	copy(roles, catalog)
	return roles
}

// Lookup returns the role with the given ID.
func Lookup(id ID) (Role, bool) {
	for _, role := range catalog {
		if role.ID == id {
			return role, true
		}
	}
	return Role{}, false
}

// Resolve maps a service name to its role. It has no side effects.
func Resolve(name string) (Role, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Role{}, fmt.Errorf("%w: empty name", ErrUnknownService)
	}

	for _, role := range catalog {
		if strings.EqualFold(trimmed, role.Name) {
			return role, nil
		}
	}

	if parsed, err := uuid.Parse(trimmed); err == nil {
		for _, role := range catalog {
			if parsed == role.UUID {
				return role, nil
			}
		}
		return Role{}, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}

	hex := trimmed
	if len(hex) > 2 && (hex[:2] == "0x" || hex[:2] == "0X") {
		hex = hex[2:]
	}
	if value, err := strconv.ParseUint(hex, 16, 16); err == nil {
		if role, ok := Lookup(ID(value)); ok {
			return role, nil
		}
	}

	return Role{}, fmt.Errorf("%w: %q", ErrUnknownService, name)
}
