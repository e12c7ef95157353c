/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import "time"

// Clock provides the current time for counters.
// Implementations should return readings with a monotonic component (as time.Now does),
// so that wall clock adjustments do not shift windows and lockouts.
type Clock interface {
	Now() time.Time
}

// RealClock is a Clock that uses time.Now.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}
