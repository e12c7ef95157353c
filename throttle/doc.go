/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

/*
Package throttle decides whether an attempt event (a login, a connection, an API call) should be rejected
because too many events happened recently.

Counter tracks a single subject: it admits up to limit events within any window-wide period,
and the event that exceeds the limit starts a lockout during which every event is throttled.
When the lockout expires, counting starts from scratch.

	c := throttle.NewCounter(time.Second, 5, time.Minute)
	if c.IsThrottled() {
		// reject
	}

KeyedCounter keeps an independent Counter per key (e.g., per user email or client IP).
Counter and KeyedCounter are not safe for concurrent use. SyncKeyedCounter serializes access
to a KeyedCounter, and NewSweeper periodically forgets keys that no longer affect verdicts.
*/
package throttle
