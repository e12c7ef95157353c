/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-throttle/testutil"
)

func TestSyncKeyedCounter_Concurrent(t *testing.T) {
	const limit = 10
	const goroutines = 20
	const attemptsPerGoroutine = 50

	kc, err := NewKeyedCounterWithOpts[string](time.Minute, limit, time.Hour, KeyedCounterOpts{
		Clock:   testutil.NewFakeClock(testStartTime),
		MaxKeys: 1000,
	})
	require.NoError(t, err)
	skc := NewSyncKeyedCounter(kc)

	admitted := map[string]*atomic.Int32{"john@example.com": atomic.NewInt32(0), "jane@example.com": atomic.NewInt32(0)}
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "john@example.com"
			if i%2 == 0 {
				key = "jane@example.com"
			}
			for j := 0; j < attemptsPerGoroutine; j++ {
				if !skc.IsThrottled(key) {
					admitted[key].Inc()
				}
				if j%10 == 0 {
					skc.Sweep()
					_, _ = skc.LockedUntil(key)
				}
			}
		}(i)
	}
	wg.Wait()

	for key, cnt := range admitted {
		require.Equal(t, int32(limit), cnt.Load(), fmt.Sprintf("admitted events for %s", key))
	}
	require.Equal(t, 2, skc.Len())
	require.Equal(t, time.Hour, skc.Lockout())

	until, locked := skc.LockedUntil("john@example.com")
	require.True(t, locked)
	require.Equal(t, testStartTime.Add(time.Hour), until)

	require.True(t, skc.Forget("john@example.com"))
	require.Equal(t, 1, skc.Len())
}
