// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package network

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/pannet/lib/bus"
	"github.com/bureau-foundation/pannet/lib/netrole"
)

func TestPathDerivation(t *testing.T) {
	gn, _ := netrole.Lookup(netrole.GN)
	if got := ServerPath(gn); got != "/org/bluez/network/server/1117" {
		t.Errorf("ServerPath(gn) = %s", got)
	}
	if got := ConnectionPath(12); got != "/org/bluez/network/connection12" {
		t.Errorf("ConnectionPath(12) = %s", got)
	}
	for _, path := range []ObjectPath{ServerPath(gn), ConnectionPath(0), ManagerPath} {
		if !bus.ValidPath(string(path)) {
			t.Errorf("%s is not a valid bus path", path)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("0a:1b:2c:3d:4e:5f")
	if err != nil || got != "0A:1B:2C:3D:4E:5F" {
		t.Errorf("NormalizeAddress = %q, %v", got, err)
	}
	for _, bad := range []string{"", "0A:1B:2C:3D:4E", "0A-1B-2C-3D-4E-5F", "0A:1B:2C:3D:4E:5G", " 0A:1B:2C:3D:4E:5F"} {
		if _, err := NormalizeAddress(bad); err == nil {
			t.Errorf("NormalizeAddress(%q) succeeded", bad)
		}
	}
}

func TestErrorKinds(t *testing.T) {
	err := wrapError(NotSupported, "fetching service record", errors.New("boom"))
	if !errors.Is(err, ErrNotSupported) {
		t.Error("wrapped error does not match its kind")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("wrapped error matches another kind")
	}
	if err.ErrorName() != "org.bluez.Error.NotSupported" {
		t.Errorf("ErrorName = %s", err.ErrorName())
	}
	if err.Error() != "fetching service record: boom" {
		t.Errorf("Error = %q", err.Error())
	}

	call := bus.NewCall(bus.Message{})
	call.Fail(newError(NotFound, "Path doesn't exist"))
	remote := call.Response().Err()
	converted := FromRemote(remote)
	if !errors.Is(converted, ErrNotFound) {
		t.Errorf("FromRemote(%v) = %v, want NotFound", remote, converted)
	}

	foreign := &bus.RemoteError{Name: "org.example.Error", Message: "x"}
	if FromRemote(foreign) != error(foreign) {
		t.Error("FromRemote changed a foreign error")
	}
}
