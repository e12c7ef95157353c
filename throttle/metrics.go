/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-throttle/internal/libinfo"
)

// MetricsCollector represents a collector of metrics about throttling verdicts.
type MetricsCollector interface {
	// IncAdmitted increments the total number of admitted events.
	IncAdmitted()

	// IncThrottled increments the total number of throttled events (including ones rejected during lockout).
	IncThrottled()

	// IncLockouts increments the total number of triggered lockouts.
	IncLockouts()

	// SetKeysAmount sets the number of keys tracked by KeyedCounter.
	SetKeysAmount(int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	// Keep in mind that if this list is not empty,
	// PrometheusMetrics.MustCurryWith method must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string
}

// PrometheusMetrics represents Prometheus metrics for counters.
type PrometheusMetrics struct {
	AdmittedTotal  *prometheus.CounterVec
	ThrottledTotal *prometheus.CounterVec
	LockoutsTotal  *prometheus.CounterVec
	KeysAmount     *prometheus.GaugeVec
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
// The library version is added to ConstLabels.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)

	admittedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "throttle_admitted_total",
			Help:        "Number of admitted events.",
			ConstLabels: constLabels,
		},
		opts.CurriedLabelNames,
	)

	throttledTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "throttle_throttled_total",
			Help:        "Number of throttled events.",
			ConstLabels: constLabels,
		},
		opts.CurriedLabelNames,
	)

	lockoutsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "throttle_lockouts_total",
			Help:        "Number of triggered lockouts.",
			ConstLabels: constLabels,
		},
		opts.CurriedLabelNames,
	)

	keysAmount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "throttle_keys_amount",
			Help:        "Number of keys tracked by the keyed counter.",
			ConstLabels: constLabels,
		},
		opts.CurriedLabelNames,
	)

	return &PrometheusMetrics{
		AdmittedTotal:  admittedTotal,
		ThrottledTotal: throttledTotal,
		LockoutsTotal:  lockoutsTotal,
		KeysAmount:     keysAmount,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		AdmittedTotal:  pm.AdmittedTotal.MustCurryWith(labels),
		ThrottledTotal: pm.ThrottledTotal.MustCurryWith(labels),
		LockoutsTotal:  pm.LockoutsTotal.MustCurryWith(labels),
		KeysAmount:     pm.KeysAmount.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.AdmittedTotal,
		pm.ThrottledTotal,
		pm.LockoutsTotal,
		pm.KeysAmount,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.AdmittedTotal)
	prometheus.Unregister(pm.ThrottledTotal)
	prometheus.Unregister(pm.LockoutsTotal)
	prometheus.Unregister(pm.KeysAmount)
}

// IncAdmitted increments the total number of admitted events.
func (pm *PrometheusMetrics) IncAdmitted() {
	pm.AdmittedTotal.With(nil).Inc()
}

// IncThrottled increments the total number of throttled events.
func (pm *PrometheusMetrics) IncThrottled() {
	pm.ThrottledTotal.With(nil).Inc()
}

// IncLockouts increments the total number of triggered lockouts.
func (pm *PrometheusMetrics) IncLockouts() {
	pm.LockoutsTotal.With(nil).Inc()
}

// SetKeysAmount sets the number of keys tracked by KeyedCounter.
func (pm *PrometheusMetrics) SetKeysAmount(amount int) {
	pm.KeysAmount.With(nil).Set(float64(amount))
}

type disabledMetrics struct{}

func (disabledMetrics) IncAdmitted()      {}
func (disabledMetrics) IncThrottled()     {}
func (disabledMetrics) IncLockouts()      {}
func (disabledMetrics) SetKeysAmount(int) {}
