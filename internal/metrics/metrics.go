// Package metrics holds the prometheus collectors for archview.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FetchTotal counts backend requests by endpoint family and outcome.
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archview_fetch_total",
			Help: "Total backend fetches by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// FetchSeconds observes backend request latency.
	FetchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archview_fetch_seconds",
			Help:    "Backend fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// LayoutTicks counts force simulation steps.
	LayoutTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "archview_layout_ticks_total",
			Help: "Total force simulation ticks",
		},
	)

	// LayoutConverged counts simulations that cooled to convergence.
	LayoutConverged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "archview_layout_converged_total",
			Help: "Total simulations that reached convergence",
		},
	)

	// ActiveSimulations tracks simulations currently holding tick loops.
	ActiveSimulations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "archview_active_simulations",
			Help: "Number of live layout simulations",
		},
	)
)

// Register installs all collectors on the given registry, or the default
// one if nil. Call once at startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		FetchTotal,
		FetchSeconds,
		LayoutTicks,
		LayoutConverged,
		ActiveSimulations,
	)
}
