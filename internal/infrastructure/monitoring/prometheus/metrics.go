package prometheus

import (
	"strconv"
	"time"
)

// MatchMetrics holds the metrics recorded by the matching service and the
// HTTP layer.
type MatchMetrics struct {
	SearchesTotal       CounterVec
	SearchDuration      HistogramVec
	ResultsTotal        CounterVec
	CatalogRowsSkipped  CounterVec
	SnapshotReloads     CounterVec
	SnapshotProducts    GaugeVec
	SnapshotSubstances  GaugeVec
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
}

// Search outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultSearchDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}
)

// NewMatchMetrics registers all matching metrics on collector.
func NewMatchMetrics(collector MetricsCollector) *MatchMetrics {
	return &MatchMetrics{
		SearchesTotal:       collector.RegisterCounter("searches_total", "Catalog searches by outcome", "outcome"),
		SearchDuration:      collector.RegisterHistogram("search_duration_seconds", "Catalog search latency", DefaultSearchDurationBuckets),
		ResultsTotal:        collector.RegisterCounter("results_total", "Search results by classification", "class"),
		CatalogRowsSkipped:  collector.RegisterCounter("catalog_rows_skipped_total", "Malformed catalog rows skipped during search"),
		SnapshotReloads:     collector.RegisterCounter("snapshot_reloads_total", "Catalog snapshot reloads by status", "status"),
		SnapshotProducts:    collector.RegisterGauge("snapshot_products", "Products in the active catalog snapshot"),
		SnapshotSubstances:  collector.RegisterGauge("snapshot_substances", "Canonical substances in the active synonym dictionary"),
		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path"),
	}
}

// RecordSearch records one finished search. exact and deviating are the
// result counts per class.
func (m *MatchMetrics) RecordSearch(duration time.Duration, exact, deviating, skipped int, err error) {
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeError
	case exact+deviating == 0:
		outcome = OutcomeEmpty
	}
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	m.SearchDuration.WithLabelValues().Observe(duration.Seconds())
	if err != nil {
		return
	}
	m.ResultsTotal.WithLabelValues("exact").Add(float64(exact))
	m.ResultsTotal.WithLabelValues("deviating").Add(float64(deviating))
	if skipped > 0 {
		m.CatalogRowsSkipped.WithLabelValues().Add(float64(skipped))
	}
}

// RecordReload records a snapshot rebuild and, on success, its size.
func (m *MatchMetrics) RecordReload(products, substances int, err error) {
	if err != nil {
		m.SnapshotReloads.WithLabelValues("failure").Inc()
		return
	}
	m.SnapshotReloads.WithLabelValues("success").Inc()
	m.SnapshotProducts.WithLabelValues().Set(float64(products))
	m.SnapshotSubstances.WithLabelValues().Set(float64(substances))
}

func (m *MatchMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
