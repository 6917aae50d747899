// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/pannet/lib/adapter"
	"github.com/bureau-foundation/pannet/lib/bus"
	"github.com/bureau-foundation/pannet/lib/clock"
	"github.com/bureau-foundation/pannet/lib/config"
	"github.com/bureau-foundation/pannet/lib/eventsink"
	"github.com/bureau-foundation/pannet/lib/network"
	"github.com/bureau-foundation/pannet/lib/version"
)

// runDaemon serves the manager until ctx is cancelled.
func runDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}

	logger.Info("pannetd starting",
		"version", version.Info(),
		"environment", cfg.Environment,
		"socket", cfg.SocketPath,
		"adapter_socket", cfg.Adapter.SocketPath,
	)

	// The publisher is closed after the manager, so it still forwards
	// the teardown events.
	var publisher *eventsink.Publisher
	if cfg.MQTT.Broker != "" {
		publisher, err = eventsink.New(eventsink.Config{
			Broker:      cfg.MQTT.Broker,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			ClientID:    cfg.MQTT.ClientID,
			QoS:         1,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	b := bus.New(logger)
	manager, err := network.NewManager(network.Config{
		Bus:              b,
		Resolver:         newResolver(cfg.Adapter, logger),
		Adapter:          adapter.NewRemote(cfg.Adapter.SocketPath),
		DataPlane:        network.NopDataPlane{Logger: logger},
		Clock:            clock.Real(),
		EstablishTimeout: timeout,
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Error("closing network manager", "error", err)
		}
	}()

	if publisher != nil {
		manager.Subscribe(publisher.Listener())
		logger.Info("publishing lifecycle events", "broker", cfg.MQTT.Broker, "topic_prefix", cfg.MQTT.TopicPrefix)
	}

	server := bus.NewSocketServer(cfg.SocketPath, b, logger)
	if err := server.Serve(ctx); err != nil {
		return err
	}
	logger.Info("pannetd shutting down")
	return nil
}

func newResolver(cfg config.AdapterConfig, logger *slog.Logger) network.AdapterResolver {
	if cfg.Path != "" {
		return adapter.StaticResolver{Ref: network.AdapterRef(cfg.Path)}
	}
	return adapter.SysfsResolver{Root: cfg.SysfsRoot, Logger: logger}
}
