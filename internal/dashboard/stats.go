package dashboard

import (
	"math"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/observability/metrics"
)

// FetchLatencySnapshot summarizes backend fetch latency as served by
// the stats endpoint.
type FetchLatencySnapshot struct {
	Total   int64                `json:"total"`
	P90Ms   float64              `json:"p90_ms"`
	P95Ms   float64              `json:"p95_ms"`
	Buckets []FetchLatencyBucket `json:"buckets"`
}

type FetchLatencyBucket struct {
	LeSeconds float64 `json:"le_seconds"`
	Count     int64   `json:"count"`
}

// StatsHandler serves operational numbers for the dashboard itself,
// read back out of the Prometheus registry.
type StatsHandler struct {
	gatherer prometheus.Gatherer
}

// NewStatsHandler creates a stats handler. A nil gatherer uses the
// default registry.
func NewStatsHandler(gatherer prometheus.Gatherer) *StatsHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &StatsHandler{gatherer: gatherer}
}

// Stats handles GET /dashboard/stats.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"backend_fetch_latency": snapshotFetchLatency(h.gatherer),
	})
}

// snapshotFetchLatency aggregates the fetch histogram across statuses,
// keeping only status="ok" samples.
func snapshotFetchLatency(gatherer prometheus.Gatherer) FetchLatencySnapshot {
	mfs, err := gatherer.Gather()
	if err != nil {
		return FetchLatencySnapshot{}
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == metrics.FetchLatencyMetricName {
			family = mf
			break
		}
	}
	if family == nil {
		return FetchLatencySnapshot{}
	}

	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64
	for _, metric := range family.Metric {
		if metric == nil || !hasLabel(metric, "status", "ok") {
			continue
		}
		hist := metric.GetHistogram()
		if hist == nil {
			continue
		}
		sampleCount += hist.GetSampleCount()
		for _, b := range hist.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if sampleCount == 0 || len(cumulativeByUpper) == 0 {
		return FetchLatencySnapshot{}
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	buckets := make([]FetchLatencyBucket, 0, len(uppers))
	for _, upper := range uppers {
		if math.IsInf(upper, 1) {
			continue
		}
		buckets = append(buckets, FetchLatencyBucket{
			LeSeconds: upper,
			Count:     int64(cumulativeByUpper[upper]),
		})
	}

	return FetchLatencySnapshot{
		Total:   int64(sampleCount),
		P90Ms:   histogramQuantile(0.90, sampleCount, uppers, cumulativeByUpper) * 1000,
		P95Ms:   histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper) * 1000,
		Buckets: buckets,
	}
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, lp := range metric.Label {
		if lp == nil {
			continue
		}
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

// histogramQuantile interpolates a quantile from cumulative bucket
// counts, clamping to the last finite upper bound.
func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 {
		return 0
	}
	target := q * float64(total)
	var prevUpper, prevCum float64
	for _, upper := range uppers {
		cum := float64(cumulativeByUpper[upper])
		if cum >= target {
			if math.IsInf(upper, 1) {
				return prevUpper
			}
			if cum == prevCum {
				return upper
			}
			return prevUpper + (upper-prevUpper)*(target-prevCum)/(cum-prevCum)
		}
		prevUpper, prevCum = upper, cum
	}
	for i := len(uppers) - 1; i >= 0; i-- {
		if !math.IsInf(uppers[i], 1) {
			return uppers[i]
		}
	}
	return 0
}
