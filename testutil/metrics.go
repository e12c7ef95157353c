/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCounterValue asserts that passed prometheus.Counter has the expected value.
func AssertCounterValue(t assert.TestingT, counter prometheus.Counter, want int) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	metric, ok := gatherSingle(t, counter)
	if !ok {
		return false
	}
	return assert.Equal(t, want, int(metric.GetCounter().GetValue()))
}

// RequireCounterValue calls AssertCounterValue and fails test immediately in case of error.
func RequireCounterValue(t require.TestingT, counter prometheus.Counter, want int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if AssertCounterValue(t, counter, want) {
		return
	}
	t.FailNow()
}

// AssertGaugeValue asserts that passed prometheus.Gauge has the expected value.
func AssertGaugeValue(t assert.TestingT, gauge prometheus.Gauge, want int) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	metric, ok := gatherSingle(t, gauge)
	if !ok {
		return false
	}
	return assert.Equal(t, want, int(metric.GetGauge().GetValue()))
}

func gatherSingle(t assert.TestingT, c prometheus.Collector) (*dto.Metric, bool) {
	reg := prometheus.NewPedanticRegistry()
	if !assert.NoError(t, reg.Register(c)) {
		return nil, false
	}
	families, err := reg.Gather()
	if !assert.NoError(t, err) {
		return nil, false
	}
	if !assert.Equal(t, 1, len(families)) || !assert.Equal(t, 1, len(families[0].GetMetric())) {
		return nil, false
	}
	return families[0].GetMetric()[0], true
}
