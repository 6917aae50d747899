// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock frozen at initial. Timers fire only when
// Advance moves the clock past their deadline.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for tests. It is safe for
// concurrent use. Callbacks run synchronously inside Advance, in
// deadline order; a callback must not call Advance.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*fakeTimer
	changed *sync.Cond
}

type fakeTimer struct {
	deadline time.Time
	callback func()
	done     bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc registers f to run once the clock has advanced by d. If
// d <= 0, f runs before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stopFunc: func() bool { return false }}
	}

	c.mu.Lock()
	timer := &fakeTimer{deadline: c.current.Add(d), callback: f}
	c.timers = append(c.timers, timer)
	c.changed.Broadcast()
	c.mu.Unlock()

	return &Timer{stopFunc: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if timer.done {
			return false
		}
		timer.done = true
		c.changed.Broadcast()
		return true
	}}
}

// Advance moves the clock forward by d and runs every timer whose
// deadline is now due.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current

	var due, remaining []*fakeTimer
	for _, timer := range c.timers {
		switch {
		case timer.done:
		case !timer.deadline.After(now):
			timer.done = true
			due = append(due, timer)
		default:
			remaining = append(remaining, timer)
		}
	}
	c.timers = remaining
	c.changed.Broadcast()
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	for _, timer := range due {
		timer.callback()
	}
}

// WaitForTimers blocks until at least n timers are pending. Use it to
// avoid racing a goroutine that is about to arm a timer.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of armed timers.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, timer := range c.timers {
		if !timer.done {
			count++
		}
	}
	return count
}
