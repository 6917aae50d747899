// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bureau-foundation/pannet/lib/netrole"
)

// ObjectPath names an object on the bus.
type ObjectPath string

func (p ObjectPath) String() string { return string(p) }

// Bus names for the manager and the objects it creates.
const (
	ManagerPath         ObjectPath = "/org/bluez/network"
	ManagerInterface               = "org.bluez.network.Manager"
	ServerInterface                = "org.bluez.network.Server"
	ConnectionInterface            = "org.bluez.network.Connection"
)

// ServerPath is the path of the server endpoint for role. It depends
// only on the role, so a role has at most one server.
func ServerPath(role netrole.Role) ObjectPath {
	return ObjectPath(fmt.Sprintf("%s/server/%X", ManagerPath, uint16(role.ID)))
}

// ConnectionPath is the path of the connection established by the
// request with correlation id id.
func ConnectionPath(id uint64) ObjectPath {
	return ObjectPath(fmt.Sprintf("%s/connection%d", ManagerPath, id))
}

var addressPattern = regexp.MustCompile(`^[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}$`)

// NormalizeAddress validates a 48-bit device address written as six
// colon-separated hex octets and returns it in upper case.
func NormalizeAddress(address string) (string, error) {
	if !addressPattern.MatchString(address) {
		return "", fmt.Errorf("invalid device address %q", address)
	}
	return strings.ToUpper(address), nil
}
