/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"time"

	"github.com/acronis/go-throttle/log"
)

// LockedUntilLogFieldKey is the name of the logged field that contains the lockout deadline.
const LockedUntilLogFieldKey = "locked_until"

// CounterOpts represents optional parameters for constructing Counter.
type CounterOpts struct {
	// Clock is a source of the current time. RealClock is used if nil.
	Clock Clock

	// Logger is used for reporting triggered lockouts. Logging is disabled if nil.
	Logger log.FieldLogger

	// MetricsCollector receives every verdict. Metrics are disabled if nil.
	MetricsCollector MetricsCollector
}

// Counter tracks attempt events of a single subject and decides whether the next event should be throttled.
//
// Up to limit events are admitted within any window-wide period.
// The event that exceeds the limit is throttled and puts the subject into lockout:
// all events are throttled until lockout duration passes, then counting starts from zero.
//
// Counter is not safe for concurrent use. It's supposed to be owned by a single goroutine
// (or guarded by an external lock, see SyncKeyedCounter).
type Counter struct {
	window  time.Duration
	limit   int
	lockout time.Duration

	events      []time.Time // oldest first
	lockedUntil time.Time

	clock            Clock
	logger           log.FieldLogger
	metricsCollector MetricsCollector
}

// NewCounter creates a new Counter that admits up to limit events per window
// and throttles everything for lockout once the limit is exceeded.
// Arguments are not validated: zero or negative values produce degenerate, but well-defined policies
// (e.g., limit <= 0 throttles the very first event, lockout <= 0 releases the subject on the next event).
func NewCounter(window time.Duration, limit int, lockout time.Duration) *Counter {
	return NewCounterWithOpts(window, limit, lockout, CounterOpts{})
}

// NewCounterWithOpts is a more configurable version of NewCounter.
func NewCounterWithOpts(window time.Duration, limit int, lockout time.Duration, opts CounterOpts) *Counter {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	return &Counter{
		window:           window,
		limit:            limit,
		lockout:          lockout,
		clock:            opts.Clock,
		logger:           opts.Logger,
		metricsCollector: opts.MetricsCollector,
	}
}

// IsThrottled records an event that happens right now and reports whether it should be rejected.
func (c *Counter) IsThrottled() bool {
	if c.check(c.clock.Now()) {
		c.metricsCollector.IncThrottled()
		return true
	}
	c.metricsCollector.IncAdmitted()
	return false
}

func (c *Counter) check(now time.Time) bool {
	if !c.lockedUntil.IsZero() {
		if now.Before(c.lockedUntil) {
			return true
		}
		c.lockedUntil = time.Time{}
	}

	c.prune(now)
	c.events = append(c.events, now)
	if len(c.events) <= c.limit {
		return false
	}

	until := now
	if c.lockout > 0 {
		until = now.Add(c.lockout)
	}
	c.lockedUntil = until
	c.events = c.events[:0]

	c.metricsCollector.IncLockouts()
	c.logger.Warn("lockout triggered",
		log.Duration("lockout", c.lockout),
		log.Time(LockedUntilLogFieldKey, until),
	)
	return true
}

// prune drops events that happened before now-window.
// An event that happened exactly at now-window is still in the window.
func (c *Counter) prune(now time.Time) {
	cutoff := now.Add(-c.window)
	i := 0
	for i < len(c.events) && c.events[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	c.events = append(c.events[:0], c.events[i:]...)
}

// idle reports whether the counter keeps no state that may affect future verdicts.
func (c *Counter) idle(now time.Time) bool {
	if !c.lockedUntil.IsZero() && now.Before(c.lockedUntil) {
		return false
	}
	cutoff := now.Add(-c.window)
	for _, t := range c.events {
		if !t.Before(cutoff) {
			return false
		}
	}
	return true
}

// LockedUntil returns the moment when the current lockout expires.
// The second value is false if the subject is not locked out right now.
func (c *Counter) LockedUntil() (time.Time, bool) {
	if c.lockedUntil.IsZero() || !c.clock.Now().Before(c.lockedUntil) {
		return time.Time{}, false
	}
	return c.lockedUntil, true
}

// Reset forgets all recorded events and lifts the lockout if any.
func (c *Counter) Reset() {
	c.events = c.events[:0]
	c.lockedUntil = time.Time{}
}

// Window returns the configured window length.
func (c *Counter) Window() time.Duration {
	return c.window
}

// Limit returns the configured maximum number of admitted events per window.
func (c *Counter) Limit() int {
	return c.limit
}

// Lockout returns the configured lockout duration.
func (c *Counter) Lockout() time.Duration {
	return c.lockout
}
