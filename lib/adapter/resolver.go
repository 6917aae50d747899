// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"

	"github.com/bureau-foundation/pannet/lib/network"
)

// PathPrefix is prepended to the device name to form the adapter's
// object path.
const PathPrefix = "/org/bluez/"

// StaticResolver always answers with Ref. An empty Ref means no
// adapter.
type StaticResolver struct {
	Ref network.AdapterRef
}

func (r StaticResolver) CurrentAdapter() (network.AdapterRef, bool) {
	return r.Ref, r.Ref != ""
}

var devicePattern = regexp.MustCompile(`^hci([0-9]+)$`)

// SysfsResolver picks the lowest-numbered hciN device listed under
// Root (normally /sys/class/bluetooth). The directory is read on every
// call, so adapters plugged in after startup are found.
type SysfsResolver struct {
	Root   string
	Logger *slog.Logger
}

func (r SysfsResolver) CurrentAdapter() (network.AdapterRef, bool) {
	device, err := lowestDevice(r.Root)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn("listing bluetooth adapters", "root", r.Root, "error", err)
		}
		return "", false
	}
	if device == "" {
		return "", false
	}
	return network.AdapterRef(PathPrefix + device), true
}

func lowestDevice(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", root, err)
	}
	best, bestIndex := "", -1
	for _, entry := range entries {
		match := devicePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if bestIndex < 0 || index < bestIndex {
			best, bestIndex = entry.Name(), index
		}
	}
	return best, nil
}
