/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs the long-living parts of an application (HTTP server, sweepers)
// as units that are started together and stopped on an OS signal.
package service

// Unit represents a service unit that can be started and stopped.
type Unit interface {
	// Start runs the unit. It may block for the whole unit lifetime.
	// A fatal error is reported via the channel; nothing is written there on success.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start has failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is an interface for objects that can register their own metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
