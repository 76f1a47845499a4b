// Package metrics exposes Prometheus instrumentation for the
// dashboard service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// FetchLatencyMetricName identifies the backend fetch histogram in the
// registry; the stats endpoint reads it back by this name.
const FetchLatencyMetricName = "duofisio_dashboard_backend_fetch_latency_seconds"

// DashboardMetrics exposes counters/histograms for the dashboard flows.
type DashboardMetrics struct {
	fetchTotal    *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	filterTotal   *prometheus.CounterVec
	snapshotTotal *prometheus.CounterVec
}

func NewDashboardMetrics(reg prometheus.Registerer) *DashboardMetrics {
	m := &DashboardMetrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duofisio",
			Subsystem: "dashboard",
			Name:      "backend_fetch_total",
			Help:      "Total appointment fetches from the clinic backend",
		}, []string{"status"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "duofisio",
			Subsystem: "dashboard",
			Name:      "backend_fetch_latency_seconds",
			Help:      "Latency of clinic backend fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		filterTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duofisio",
			Subsystem: "dashboard",
			Name:      "filter_recompute_total",
			Help:      "Derived-view recomputations by active filter",
		}, []string{"filter"}),
		snapshotTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duofisio",
			Subsystem: "dashboard",
			Name:      "snapshot_cache_total",
			Help:      "Snapshot cache operations",
		}, []string{"op", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.fetchTotal, m.fetchLatency, m.filterTotal, m.snapshotTotal)
	return m
}

func (m *DashboardMetrics) ObserveFetch(status string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(status).Inc()
	m.fetchLatency.WithLabelValues(status).Observe(seconds)
}

func (m *DashboardMetrics) ObserveFilter(filter string) {
	if m == nil {
		return
	}
	m.filterTotal.WithLabelValues(filter).Inc()
}

func (m *DashboardMetrics) ObserveSnapshot(op, outcome string) {
	if m == nil {
		return
	}
	m.snapshotTotal.WithLabelValues(op, outcome).Inc()
}
