/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"sync"
	"time"
)

// FakeClock is a manually driven clock. Time moves only when Advance or Set is called.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a new FakeClock that starts at the provided moment.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the fake time forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set sets the fake time to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
