/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"sync"
	"time"
)

// SyncKeyedCounter wraps KeyedCounter and makes it safe for concurrent use.
// All operations are serialized by a single mutex.
type SyncKeyedCounter[K comparable] struct {
	mu sync.Mutex
	kc *KeyedCounter[K]
}

// NewSyncKeyedCounter creates a new SyncKeyedCounter that guards the passed KeyedCounter.
// The KeyedCounter must not be used directly afterwards.
func NewSyncKeyedCounter[K comparable](kc *KeyedCounter[K]) *SyncKeyedCounter[K] {
	return &SyncKeyedCounter[K]{kc: kc}
}

// IsThrottled records an event for the key and reports whether it should be rejected.
func (s *SyncKeyedCounter[K]) IsThrottled(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kc.IsThrottled(key)
}

// LockedUntil returns the moment when the key's lockout expires, if it's locked out.
func (s *SyncKeyedCounter[K]) LockedUntil(key K) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kc.LockedUntil(key)
}

// RetryAfter returns how long the key stays locked out.
func (s *SyncKeyedCounter[K]) RetryAfter(key K) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kc.RetryAfter(key)
}

// Forget drops the state of the key.
func (s *SyncKeyedCounter[K]) Forget(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kc.Forget(key)
}

// Sweep forgets idle keys and returns their number.
func (s *SyncKeyedCounter[K]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kc.Sweep()
}

// Len returns the number of tracked keys.
func (s *SyncKeyedCounter[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kc.Len()
}

// Lockout returns the configured lockout duration.
func (s *SyncKeyedCounter[K]) Lockout() time.Duration {
	return s.kc.Lockout() // immutable
}
