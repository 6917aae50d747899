// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by the network manager tests.
//
// [SocketDir] returns a short directory under /tmp for Unix sockets;
// sun_path is limited to 108 bytes and t.TempDir() paths can exceed it.
//
// [RequireReceive], [RequireNoReceive], and [RequireClosed] wrap the
// select-with-timeout pattern so tests never block forever on a reply
// or event channel. They are the only place tests use wall-clock
// timeouts; everything the manager itself schedules goes through a
// fake clock.
//
// [UniqueID] produces distinct identifiers (MQTT client IDs, topic
// prefixes) without consulting the clock.
package testutil
