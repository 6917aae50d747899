// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Pannetd runs the personal-area-network manager.
//
// It serves the manager object /org/bluez/network on a Unix socket bus
// (socket_path), performs service discovery through the adapter
// service at adapter.socket_path, and optionally mirrors lifecycle
// events to an MQTT broker (mqtt.broker).
//
// Configuration comes from --config, or the file named by
// PANNET_CONFIG, or built-in defaults when neither is set. SIGINT and
// SIGTERM stop the bus, fail establishments still in flight, and tear
// down every server and connection.
package main
