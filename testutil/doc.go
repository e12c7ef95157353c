/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains helpers for testing time-dependent throttling code: a manually driven clock,
// assertions on Prometheus collectors and waiting for listening servers.
package testutil

type tHelper interface {
	Helper()
}
