// Package clock abstracts the timers the scheduler depends on so tests can
// drive time by hand.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock is the subset of the time package the scheduler needs.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine (real) or synchronously
	// inside Advance (fake) once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from firing. It reports false if the call
	// already fired or was already stopped.
	Stop() bool
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Fake is a deterministic Clock. Time only moves when Advance is called.
// Safe for concurrent use, but callbacks must not call Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeTimer
}

// NewFake returns a Fake clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

type fakeTimer struct {
	clock    *Fake
	deadline time.Time
	f        func()
	done     bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Now returns the current fake time.
func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc registers f to run once the clock has advanced by d.
func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), f: f}
	c.waiters = append(c.waiters, t)
	return t
}

// Pending returns how many timers are waiting to fire.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.waiters {
		if !t.done {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing due timers in deadline
// order. Timers registered by a callback fire in the same call if their
// deadline falls inside the window.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		t := c.nextDueLocked(target)
		if t == nil {
			break
		}
		t.done = true
		c.now = t.deadline
		c.mu.Unlock()
		t.f()
		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

// nextDueLocked pops the earliest live timer due by target.
func (c *Fake) nextDueLocked(target time.Time) *fakeTimer {
	live := c.waiters[:0]
	for _, t := range c.waiters {
		if !t.done {
			live = append(live, t)
		}
	}
	c.waiters = live

	sort.SliceStable(c.waiters, func(i, j int) bool {
		return c.waiters[i].deadline.Before(c.waiters[j].deadline)
	})
	if len(c.waiters) == 0 || c.waiters[0].deadline.After(target) {
		return nil
	}
	return c.waiters[0]
}
