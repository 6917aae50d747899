// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/pannet/lib/adapter"
	"github.com/bureau-foundation/pannet/lib/bus"
	"github.com/bureau-foundation/pannet/lib/network"
	"github.com/bureau-foundation/pannet/lib/process"
	"github.com/bureau-foundation/pannet/lib/testutil"
)

// startManager serves a manager with no reachable adapter service and
// returns the bus socket path.
func startManager(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	socketDir := testutil.SocketDir(t)

	b := bus.New(logger)
	manager, err := network.NewManager(network.Config{
		Bus:      b,
		Resolver: adapter.StaticResolver{Ref: "/org/bluez/hci0"},
		Adapter:  adapter.NewRemote(filepath.Join(socketDir, "missing.sock")),
		Logger:   logger,
	})
	if err != nil {
		t.Fatal(err)
	}

	socketPath := filepath.Join(socketDir, "pannet.sock")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		bus.NewSocketServer(socketPath, b, logger).Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		manager.Close()
	})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", socketPath); err == nil {
			conn.Close()
			return socketPath
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("socket %s never became available", socketPath)
	return ""
}

func ctl(t *testing.T, socketPath string, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out bytes.Buffer
	err := run(ctx, append([]string{"--socket", socketPath}, args...), &out)
	return out.String(), err
}

func TestServerCommands(t *testing.T) {
	socketPath := startManager(t)

	out, err := ctl(t, socketPath, "create-server", "nap")
	if err != nil {
		t.Fatalf("create-server: %v", err)
	}
	if strings.TrimSpace(out) != "/org/bluez/network/server/1116" {
		t.Fatalf("create-server output = %q", out)
	}

	out, err = ctl(t, socketPath, "list-servers")
	if err != nil || strings.TrimSpace(out) != "/org/bluez/network/server/1116" {
		t.Fatalf("list-servers = %q, %v", out, err)
	}

	out, err = ctl(t, socketPath, "info", "/org/bluez/network/server/1116")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	var info network.ServerInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil || info.Name != "nap" {
		t.Fatalf("info = %q (%v)", out, err)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("info to a non-terminal is not one line: %q", out)
	}

	if _, err := ctl(t, socketPath, "remove-server", "/org/bluez/network/server/1116"); err != nil {
		t.Fatalf("remove-server: %v", err)
	}
	_, err = ctl(t, socketPath, "remove-server", "/org/bluez/network/server/1116")
	if !errors.Is(err, network.ErrNotFound) {
		t.Fatalf("second remove-server = %v, want NotFound", err)
	}
}

func TestCreateConnectionWithoutAdapterService(t *testing.T) {
	socketPath := startManager(t)

	// The adapter socket does not exist, so discovery fails with a
	// transport error, which maps to NotSupported.
	_, err := ctl(t, socketPath, "create-connection", "00:11:22:33:44:55", "nap")
	if !errors.Is(err, network.ErrNotSupported) {
		t.Fatalf("create-connection = %v, want NotSupported", err)
	}
	out, err := ctl(t, socketPath, "list-connections")
	if err != nil || out != "" {
		t.Fatalf("list-connections = %q, %v", out, err)
	}
}

func TestMonitorPrintsEvents(t *testing.T) {
	socketPath := startManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	reader, writer := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"--socket", socketPath, "monitor"}, writer)
		writer.Close()
	}()

	lines := make(chan string, 64)
	go func() {
		buffer := make([]byte, 256)
		for {
			n, err := reader.Read(buffer)
			if n > 0 {
				lines <- string(buffer[:n])
			}
			if err != nil {
				close(lines)
				return
			}
		}
	}()

	// Keep creating until the monitor's subscription is in place and
	// reports the event.
	deadline := time.Now().Add(5 * time.Second)
	var line string
	for line == "" && time.Now().Before(deadline) {
		if _, err := ctl(t, socketPath, "create-server", "gn"); err != nil {
			t.Fatalf("create-server: %v", err)
		}
		if _, err := ctl(t, socketPath, "remove-server", "/org/bluez/network/server/1117"); err != nil {
			t.Fatalf("remove-server: %v", err)
		}
		select {
		case line = <-lines:
		case <-time.After(50 * time.Millisecond):
		}
	}
	if !strings.HasPrefix(line, "ServerCreated /org/bluez/network/server/1117") {
		t.Fatalf("monitor output = %q", line)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "monitor exit"); err != nil {
		t.Fatalf("monitor: %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"frobnicate"},
		{"create-server"},
		{"create-connection", "00:11:22:33:44:55"},
		{"--no-such-flag"},
	} {
		_, err := ctl(t, "/nonexistent.sock", args...)
		if process.ExitCode(err) != 2 {
			t.Errorf("run(%v) = %v, want a usage error", args, err)
		}
	}
}
