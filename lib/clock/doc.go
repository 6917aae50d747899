// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets the network manager schedule timeouts without
// reading the wall clock directly.
//
// The establishment coordinator arms one timer per discovery stage.
// In production the timer comes from Real(); tests use Fake() and move
// time forward explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	manager := network.NewManager(network.Config{Clock: c, ...})
//	// ... start an establishment ...
//	c.WaitForTimers(1)
//	c.Advance(10 * time.Second)
package clock
