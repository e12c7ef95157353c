/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides in-memory cache with LRU eviction policy and Prometheus metrics.
// It's used for keeping the number of tracked throttling subjects bounded.
package lrucache
