// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/pannet/lib/bus"
	"github.com/bureau-foundation/pannet/lib/config"
	"github.com/bureau-foundation/pannet/lib/network"
	"github.com/bureau-foundation/pannet/lib/testutil"
)

func TestDaemonServesManager(t *testing.T) {
	socketDir := testutil.SocketDir(t)
	cfg := config.Default()
	cfg.SocketPath = filepath.Join(socketDir, "pannet.sock")
	cfg.Adapter.SocketPath = filepath.Join(socketDir, "adapter.sock")
	cfg.Adapter.SysfsRoot = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runDaemon(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()
	waitForSocket(t, cfg.SocketPath)

	client := bus.NewClient(cfg.SocketPath)
	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()

	subscription, err := client.Subscribe(callCtx, string(network.ManagerPath))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer subscription.Close()

	var path string
	if err := client.Call(callCtx, string(network.ManagerPath), network.ManagerInterface, "CreateServer", []any{"gn"}, &path); err != nil {
		t.Fatalf("CreateServer: %v", err)
	}
	if path != "/org/bluez/network/server/1117" {
		t.Fatalf("CreateServer = %s", path)
	}
	signal, err := subscription.Next()
	if err != nil || signal.Member != string(network.ServerCreated) {
		t.Fatalf("signal = %+v, %v", signal, err)
	}

	// The sysfs root is empty, so there is no adapter to connect
	// through.
	err = client.Call(callCtx, string(network.ManagerPath), network.ManagerInterface, "CreateConnection",
		[]any{"00:11:22:33:44:55", "nap"}, &path)
	var remote *bus.RemoteError
	if !errors.As(err, &remote) || remote.Name != "org.bluez.Error.NoSuchAdapter" {
		t.Fatalf("CreateConnection error = %v, want NoSuchAdapter", err)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "daemon shutdown"); err != nil {
		t.Fatalf("runDaemon: %v", err)
	}
	if _, err := os.Stat(cfg.SocketPath); !os.IsNotExist(err) {
		t.Errorf("socket %s left behind", cfg.SocketPath)
	}
}

func waitForSocket(t *testing.T, socketPath string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if conn, err := net.Dial("unix", socketPath); err == nil {
			conn.Close()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("socket %s never became available", socketPath)
}

func TestNewLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := newLogger(&buffer, config.LoggingConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil))) })

	logger.Info("hidden")
	logger.Warn("shown", "path", "/org/bluez/network")
	output := buffer.String()
	if strings.Contains(output, "hidden") || !strings.Contains(output, `"msg":"shown"`) {
		t.Errorf("output = %q", output)
	}

	if _, err := newLogger(io.Discard, config.LoggingConfig{Level: "loud"}); err == nil {
		t.Error("unknown level accepted")
	}
	if _, err := newLogger(io.Discard, config.LoggingConfig{Level: "info", Format: "xml"}); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig defaults: %v", err)
	}
	if cfg.SocketPath != config.Default().SocketPath {
		t.Errorf("SocketPath = %s", cfg.SocketPath)
	}

	path := filepath.Join(t.TempDir(), "pannet.yaml")
	if err := os.WriteFile(path, []byte("establish_timeout: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("invalid establish_timeout accepted")
	}
}

func TestRunRejectsStrayArguments(t *testing.T) {
	err := run([]string{"extra"})
	if err == nil || !strings.Contains(err.Error(), "unexpected argument") {
		t.Fatalf("run = %v", err)
	}
}
