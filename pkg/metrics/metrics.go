package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cache metrics
	CacheDatasetsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atlas_cache_datasets_total",
			Help: "Number of datasets currently mounted in the cache",
		},
	)

	CacheBytesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atlas_cache_bytes_total",
			Help: "Total on-disk bytes held by cached datasets",
		},
	)

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_cache_hits_total",
			Help: "Total number of dataset connection requests served from an already-mounted entry",
		},
	)

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_cache_misses_total",
			Help: "Total number of dataset connection requests that required a fetch",
		},
	)

	CacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_cache_evictions_total",
			Help: "Total number of cache evictions by reason",
		},
		[]string{"reason"},
	)

	CacheLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "atlas_cache_load_duration_seconds",
			Help:    "Time taken to fetch, verify, and mount a dataset",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Query metrics
	QueryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_query_requests_total",
			Help: "Total number of query_genes requests by classification and outcome",
		},
		[]string{"classification", "outcome"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atlas_query_duration_seconds",
			Help:    "query_genes execution duration in seconds by classification",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"classification"},
	)

	QueryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "atlas_query_rows_returned",
			Help:    "Number of gene rows returned per query_genes page",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	QueryPolicyRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_query_policy_rejections_total",
			Help: "Total number of requests rejected by policy (full scan, budget exceeded)",
		},
		[]string{"reason"},
	)

	// Catalog metrics
	CatalogSourceHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "atlas_catalog_source_healthy",
			Help: "Whether a federated catalog source's last poll succeeded (1 = healthy, 0 = unhealthy)",
		},
		[]string{"source"},
	)

	CatalogPollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atlas_catalog_poll_duration_seconds",
			Help:    "Time taken to poll a federated catalog source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	CatalogDatasetsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "atlas_catalog_datasets_total",
			Help: "Total number of datasets in the merged federated catalog",
		},
	)

	CatalogShadowedTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "atlas_catalog_shadowed_total",
			Help: "Number of dataset entries shadowed by a higher-priority source",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(CacheDatasetsTotal)
	prometheus.MustRegister(CacheBytesTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CacheEvictionsTotal)
	prometheus.MustRegister(CacheLoadDuration)

	prometheus.MustRegister(QueryRequestsTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryRowsReturned)
	prometheus.MustRegister(QueryPolicyRejectionsTotal)

	prometheus.MustRegister(CatalogSourceHealth)
	prometheus.MustRegister(CatalogPollDuration)
	prometheus.MustRegister(CatalogDatasetsTotal)
	prometheus.MustRegister(CatalogShadowedTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
