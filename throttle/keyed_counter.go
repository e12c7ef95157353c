/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"fmt"
	"time"

	"github.com/acronis/go-throttle/log"
	"github.com/acronis/go-throttle/lrucache"
)

// KeyLogFieldKey is the name of the logged field that contains the throttling key.
const KeyLogFieldKey = "throttle_key"

// KeyedCounterOpts represents optional parameters for constructing KeyedCounter.
type KeyedCounterOpts struct {
	// Clock is a source of the current time shared by all per-key counters. RealClock is used if nil.
	Clock Clock

	// Logger is used for reporting triggered lockouts (tagged with the key). Logging is disabled if nil.
	Logger log.FieldLogger

	// MetricsCollector receives verdicts of all per-key counters and the number of tracked keys.
	// Metrics are disabled if nil.
	MetricsCollector MetricsCollector

	// MaxKeys is the maximum number of tracked keys.
	// When it's exceeded, the least recently used key is forgotten.
	// Zero means no limit.
	MaxKeys int

	// CacheMetricsCollector collects metrics of the LRU cache that is used when MaxKeys > 0.
	CacheMetricsCollector lrucache.MetricsCollector
}

// KeyedCounter keeps an independent Counter per key (user id, email, IP address, etc.).
// All counters share the same window, limit and lockout.
//
// KeyedCounter is not safe for concurrent use, see SyncKeyedCounter.
type KeyedCounter[K comparable] struct {
	window  time.Duration
	limit   int
	lockout time.Duration

	store            counterStore[K]
	clock            Clock
	logger           log.FieldLogger
	metricsCollector MetricsCollector
}

// NewKeyedCounter creates a new KeyedCounter with unbounded number of keys.
func NewKeyedCounter[K comparable](window time.Duration, limit int, lockout time.Duration) *KeyedCounter[K] {
	kc, _ := NewKeyedCounterWithOpts[K](window, limit, lockout, KeyedCounterOpts{}) // can't fail without MaxKeys
	return kc
}

// NewKeyedCounterWithOpts is a more configurable version of NewKeyedCounter.
func NewKeyedCounterWithOpts[K comparable](
	window time.Duration, limit int, lockout time.Duration, opts KeyedCounterOpts,
) (*KeyedCounter[K], error) {
	if opts.MaxKeys < 0 {
		return nil, fmt.Errorf("max keys must be non-negative, got %d", opts.MaxKeys)
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}

	var store counterStore[K]
	if opts.MaxKeys == 0 {
		store = make(mapStore[K])
	} else {
		cache, err := lrucache.New[K, *Counter](opts.MaxKeys, opts.CacheMetricsCollector)
		if err != nil {
			return nil, fmt.Errorf("new LRU in-memory store for keys: %w", err)
		}
		store = lruStore[K]{cache}
	}

	return &KeyedCounter[K]{
		window:           window,
		limit:            limit,
		lockout:          lockout,
		store:            store,
		clock:            opts.Clock,
		logger:           opts.Logger,
		metricsCollector: opts.MetricsCollector,
	}, nil
}

// IsThrottled records an event for the key and reports whether it should be rejected.
// A counter for the key is created on its first observation.
func (kc *KeyedCounter[K]) IsThrottled(key K) bool {
	c, created := kc.store.getOrAdd(key, func() *Counter {
		return NewCounterWithOpts(kc.window, kc.limit, kc.lockout, CounterOpts{
			Clock:            kc.clock,
			Logger:           kc.logger.With(log.Any(KeyLogFieldKey, key)),
			MetricsCollector: kc.metricsCollector,
		})
	})
	if created {
		kc.metricsCollector.SetKeysAmount(kc.store.len())
	}
	return c.IsThrottled()
}

// LockedUntil returns the moment when the key's lockout expires.
// The second value is false if the key is not tracked or not locked out right now.
// Unlike IsThrottled, it doesn't record an event and doesn't start tracking the key.
func (kc *KeyedCounter[K]) LockedUntil(key K) (time.Time, bool) {
	c, ok := kc.store.get(key)
	if !ok {
		return time.Time{}, false
	}
	return c.LockedUntil()
}

// RetryAfter returns how long the key stays locked out. Zero is returned if the key is not locked out.
func (kc *KeyedCounter[K]) RetryAfter(key K) time.Duration {
	until, ok := kc.LockedUntil(key)
	if !ok {
		return 0
	}
	return until.Sub(kc.clock.Now())
}

// Forget drops the state of the key (e.g., after a successful login).
// It returns false if the key was not tracked.
func (kc *KeyedCounter[K]) Forget(key K) bool {
	if !kc.store.remove(key) {
		return false
	}
	kc.metricsCollector.SetKeysAmount(kc.store.len())
	return true
}

// Sweep forgets all keys that have neither in-window events nor an active lockout
// and returns the number of forgotten keys.
// Verdicts for swept keys stay the same as if they were kept.
func (kc *KeyedCounter[K]) Sweep() int {
	now := kc.clock.Now()
	removed := kc.store.removeFunc(func(c *Counter) bool { return c.idle(now) })
	if removed > 0 {
		kc.metricsCollector.SetKeysAmount(kc.store.len())
	}
	return removed
}

// Len returns the number of tracked keys.
func (kc *KeyedCounter[K]) Len() int {
	return kc.store.len()
}

// Window returns the configured window length.
func (kc *KeyedCounter[K]) Window() time.Duration {
	return kc.window
}

// Limit returns the configured maximum number of admitted events per window.
func (kc *KeyedCounter[K]) Limit() int {
	return kc.limit
}

// Lockout returns the configured lockout duration.
func (kc *KeyedCounter[K]) Lockout() time.Duration {
	return kc.lockout
}

type counterStore[K comparable] interface {
	getOrAdd(key K, newCounter func() *Counter) (c *Counter, created bool)
	get(key K) (*Counter, bool)
	remove(key K) bool
	removeFunc(shouldRemove func(c *Counter) bool) int
	len() int
}

type mapStore[K comparable] map[K]*Counter

func (s mapStore[K]) getOrAdd(key K, newCounter func() *Counter) (*Counter, bool) {
	if c, ok := s[key]; ok {
		return c, false
	}
	c := newCounter()
	s[key] = c
	return c, true
}

func (s mapStore[K]) get(key K) (*Counter, bool) {
	c, ok := s[key]
	return c, ok
}

func (s mapStore[K]) remove(key K) bool {
	if _, ok := s[key]; !ok {
		return false
	}
	delete(s, key)
	return true
}

func (s mapStore[K]) removeFunc(shouldRemove func(c *Counter) bool) int {
	removed := 0
	for key, c := range s {
		if shouldRemove(c) {
			delete(s, key)
			removed++
		}
	}
	return removed
}

func (s mapStore[K]) len() int {
	return len(s)
}

type lruStore[K comparable] struct {
	cache *lrucache.LRUCache[K, *Counter]
}

func (s lruStore[K]) getOrAdd(key K, newCounter func() *Counter) (*Counter, bool) {
	c, exists := s.cache.GetOrAdd(key, newCounter)
	return c, !exists
}

func (s lruStore[K]) get(key K) (*Counter, bool) {
	return s.cache.Get(key)
}

func (s lruStore[K]) remove(key K) bool {
	return s.cache.Remove(key)
}

func (s lruStore[K]) removeFunc(shouldRemove func(c *Counter) bool) int {
	return s.cache.RemoveFunc(func(_ K, c *Counter) bool { return shouldRemove(c) })
}

func (s lruStore[K]) len() int {
	return s.cache.Len()
}
