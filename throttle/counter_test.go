/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-throttle/log/logtest"
	"github.com/acronis/go-throttle/testutil"
)

var testStartTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCounter(window time.Duration, limit int, lockout time.Duration) (*Counter, *testutil.FakeClock) {
	clock := testutil.NewFakeClock(testStartTime)
	return NewCounterWithOpts(window, limit, lockout, CounterOpts{Clock: clock}), clock
}

func TestCounter_IsThrottled(t *testing.T) {
	t.Run("burst over the limit triggers lockout", func(t *testing.T) {
		c, clock := newTestCounter(time.Second, 5, 60*time.Second)
		for i := 0; i < 5; i++ {
			require.False(t, c.IsThrottled(), "attempt #%d", i+1)
		}
		require.True(t, c.IsThrottled())
		lockoutStart := clock.Now()

		clock.Advance(10 * time.Millisecond)
		require.True(t, c.IsThrottled())

		clock.Set(lockoutStart.Add(61 * time.Second))
		require.False(t, c.IsThrottled())
	})

	t.Run("counting restarts after lockout", func(t *testing.T) {
		c, clock := newTestCounter(500*time.Millisecond, 3, time.Second)
		for i := 0; i < 3; i++ {
			require.False(t, c.IsThrottled())
		}
		require.True(t, c.IsThrottled())

		clock.Advance(time.Second)
		for i := 0; i < 3; i++ {
			require.False(t, c.IsThrottled(), "attempt #%d after lockout", i+1)
		}
		require.True(t, c.IsThrottled())
	})

	t.Run("evenly spaced events never trigger", func(t *testing.T) {
		c, clock := newTestCounter(500*time.Millisecond, 3, time.Second)
		for i := 0; i < 50; i++ {
			require.False(t, c.IsThrottled(), "attempt #%d", i+1)
			clock.Advance(200 * time.Millisecond)
		}
	})

	t.Run("events older than window are not counted", func(t *testing.T) {
		c, clock := newTestCounter(time.Second, 2, time.Minute)
		require.False(t, c.IsThrottled())
		require.False(t, c.IsThrottled())
		clock.Advance(time.Second + time.Nanosecond)
		require.False(t, c.IsThrottled())
		require.False(t, c.IsThrottled())
		require.True(t, c.IsThrottled())
	})

	t.Run("event exactly at window boundary is counted", func(t *testing.T) {
		c, clock := newTestCounter(time.Second, 1, time.Minute)
		require.False(t, c.IsThrottled())
		clock.Advance(time.Second)
		require.True(t, c.IsThrottled())
	})

	t.Run("lockout ends exactly at its deadline", func(t *testing.T) {
		c, clock := newTestCounter(time.Second, 1, time.Minute)
		require.False(t, c.IsThrottled())
		require.True(t, c.IsThrottled())
		clock.Advance(time.Minute - time.Nanosecond)
		require.True(t, c.IsThrottled())
		clock.Advance(time.Nanosecond)
		require.False(t, c.IsThrottled())
	})

	t.Run("rejections during lockout don't extend it", func(t *testing.T) {
		c, clock := newTestCounter(time.Second, 1, time.Minute)
		require.False(t, c.IsThrottled())
		require.True(t, c.IsThrottled())
		until, locked := c.LockedUntil()
		require.True(t, locked)
		for i := 0; i < 10; i++ {
			clock.Advance(5 * time.Second)
			require.True(t, c.IsThrottled())
			gotUntil, _ := c.LockedUntil()
			require.Equal(t, until, gotUntil)
		}
		clock.Set(until)
		require.False(t, c.IsThrottled())
	})

	t.Run("zero limit throttles every event", func(t *testing.T) {
		c, clock := newTestCounter(time.Second, 0, time.Second)
		require.True(t, c.IsThrottled())
		clock.Advance(time.Second)
		require.True(t, c.IsThrottled())
	})

	t.Run("zero lockout releases on the next event", func(t *testing.T) {
		c, _ := newTestCounter(time.Second, 1, 0)
		require.False(t, c.IsThrottled())
		require.True(t, c.IsThrottled())
		require.False(t, c.IsThrottled())
		require.True(t, c.IsThrottled())
	})

	t.Run("negative lockout behaves as zero", func(t *testing.T) {
		c, _ := newTestCounter(time.Second, 1, -time.Minute)
		require.False(t, c.IsThrottled())
		require.True(t, c.IsThrottled())
		until, locked := c.LockedUntil()
		require.False(t, locked)
		require.True(t, until.IsZero())
		require.False(t, c.IsThrottled())
	})
}

func TestCounter_LockedUntilAndReset(t *testing.T) {
	c, clock := newTestCounter(time.Second, 2, time.Minute)

	_, locked := c.LockedUntil()
	require.False(t, locked)

	for i := 0; i < 3; i++ {
		c.IsThrottled()
	}
	until, locked := c.LockedUntil()
	require.True(t, locked)
	require.Equal(t, testStartTime.Add(time.Minute), until)

	clock.Advance(time.Minute)
	_, locked = c.LockedUntil()
	require.False(t, locked)

	clock.Set(testStartTime)
	c.Reset()
	_, locked = c.LockedUntil()
	require.False(t, locked)
	require.False(t, c.IsThrottled())
	require.False(t, c.IsThrottled())
	require.True(t, c.IsThrottled())
}

func TestCounter_Accessors(t *testing.T) {
	c := NewCounter(time.Second, 5, time.Minute)
	require.Equal(t, time.Second, c.Window())
	require.Equal(t, 5, c.Limit())
	require.Equal(t, time.Minute, c.Lockout())
	require.False(t, c.IsThrottled())
}

func TestCounter_LogsLockout(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	clock := testutil.NewFakeClock(testStartTime)
	c := NewCounterWithOpts(time.Second, 1, time.Minute, CounterOpts{Clock: clock, Logger: logRecorder})

	require.False(t, c.IsThrottled())
	require.Empty(t, logRecorder.Entries())

	require.True(t, c.IsThrottled())
	require.True(t, c.IsThrottled())

	entries := logRecorder.Entries()
	require.Len(t, entries, 1, "only the triggering event is logged")
	require.Equal(t, "lockout triggered", entries[0].Text)
	_, found := entries[0].FindField(LockedUntilLogFieldKey)
	require.True(t, found)
}

func TestCounter_Metrics(t *testing.T) {
	metrics := NewPrometheusMetrics()
	clock := testutil.NewFakeClock(testStartTime)
	c := NewCounterWithOpts(time.Second, 2, time.Minute, CounterOpts{Clock: clock, MetricsCollector: metrics})

	for i := 0; i < 5; i++ {
		c.IsThrottled()
	}

	testutil.AssertCounterValue(t, metrics.AdmittedTotal.With(nil), 2)
	testutil.AssertCounterValue(t, metrics.ThrottledTotal.With(nil), 3)
	testutil.AssertCounterValue(t, metrics.LockoutsTotal.With(nil), 1)
}
