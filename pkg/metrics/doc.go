/*
Package metrics provides Prometheus metrics collection and exposition for Atlas.

The metrics package defines and registers all Atlas metrics using the Prometheus
client library, providing observability into cache occupancy, query cost and
latency, and federated catalog source health. Metrics are exposed via HTTP
endpoint for scraping by Prometheus servers.

# Architecture

Atlas's metrics system follows Prometheus best practices with instrumentation
across the cache, query, and catalog components:

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  │  - Automatic Go runtime metrics             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │                                              │          │
	│  │  Gauge: Instant values (cache dataset count)│          │
	│  │  Counter: Monotonic increases (cache hits)  │          │
	│  │  Histogram: Distributions (query latency)   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Cache: datasets, bytes, hits/misses,       │          │
	│  │         evictions, load duration            │          │
	│  │  Query: requests, duration, rows, policy    │          │
	│  │         rejections                          │          │
	│  │  Catalog: source health, poll duration,     │          │
	│  │           dataset count, shadowed entries   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Prometheus Server                   │          │
	│  │  - Scrapes /metrics every 15s               │          │
	│  │  - Stores time series data                  │          │
	│  │  - Provides PromQL query interface          │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered at package init
  - Automatic collection of Go runtime metrics
  - Thread-safe for concurrent updates

Gauge Metrics:
  - Instant value that can go up or down
  - Examples: cache dataset count, catalog source health
  - Operations: Set, Inc, Dec, Add, Sub

Counter Metrics:
  - Monotonically increasing value
  - Examples: cache hits total, policy rejections total
  - Operations: Inc, Add (cannot decrease)

Histogram Metrics:
  - Distribution of observed values
  - Buckets for latency percentiles (p50, p95, p99)
  - Examples: query duration, dataset load duration
  - Includes: sum, count, buckets

Timer Helper:
  - Convenience wrapper for timing operations
  - Start timer, observe duration to histogram
  - Supports label values for histogram vectors

Collector:
  - Samples pkg/cache.Manager and pkg/catalog.Resolver on a 15s
    interval and publishes their occupancy/health into the gauges below
  - Started once at process startup, alongside the HTTP server

# Metrics Catalog

Cache Metrics:

atlas_cache_datasets_total:
  - Type: Gauge
  - Description: Number of datasets currently mounted in the cache
  - Example: atlas_cache_datasets_total 12

atlas_cache_bytes_total:
  - Type: Gauge
  - Description: Total on-disk bytes held by cached datasets
  - Example: atlas_cache_bytes_total 4294967296

atlas_cache_hits_total:
  - Type: Counter
  - Description: Dataset connection requests served from an already-mounted entry
  - Example: atlas_cache_hits_total 98234

atlas_cache_misses_total:
  - Type: Counter
  - Description: Dataset connection requests that required a fetch
  - Example: atlas_cache_misses_total 41

atlas_cache_evictions_total{reason}:
  - Type: Counter
  - Description: Cache evictions by reason (budget, corruption)
  - Labels: reason

atlas_cache_load_duration_seconds:
  - Type: Histogram
  - Description: Time to fetch, verify, and mount a dataset
  - Buckets: Default Prometheus buckets

Query Metrics:

atlas_query_requests_total{classification, outcome}:
  - Type: Counter
  - Description: query_genes requests by classification (cheap/medium/heavy) and outcome (ok/error)
  - Labels: classification, outcome
  - Example: atlas_query_requests_total{classification="medium",outcome="ok"} 1500

atlas_query_duration_seconds{classification}:
  - Type: Histogram
  - Description: query_genes execution duration in seconds, by classification
  - Labels: classification

atlas_query_rows_returned:
  - Type: Histogram
  - Description: Number of gene rows returned per query_genes page
  - Buckets: 1, 5, 10, 25, 50, 100, 250, 500, 1000

atlas_query_policy_rejections_total{reason}:
  - Type: Counter
  - Description: Requests rejected by policy (full scan disallowed, work-unit budget exceeded)
  - Labels: reason

Catalog Metrics:

atlas_catalog_source_healthy{source}:
  - Type: Gauge
  - Description: Whether a federated source's last poll succeeded (1=healthy, 0=unhealthy)
  - Labels: source
  - Example: atlas_catalog_source_healthy{source="ensembl-primary"} 1

atlas_catalog_poll_duration_seconds{source}:
  - Type: Histogram
  - Description: Time to poll a federated catalog source
  - Labels: source

atlas_catalog_datasets_total:
  - Type: Gauge
  - Description: Total number of datasets in the merged federated catalog

atlas_catalog_shadowed_total{source}:
  - Type: Gauge
  - Description: Number of a source's entries shadowed by a higher-priority source
  - Labels: source

# Usage

Updating Gauge Metrics:

	import "github.com/bijux/atlas/pkg/metrics"

	// Set absolute value
	metrics.CacheDatasetsTotal.Set(12)

Updating Counter Metrics:

	// Increment by 1
	metrics.CacheHitsTotal.Inc()

	// Add with labels
	metrics.QueryRequestsTotal.WithLabelValues("medium", "ok").Inc()

Recording Histogram Observations:

	// Direct observation
	metrics.QueryRowsReturned.Observe(42)

	// Using Timer helper
	timer := metrics.NewTimer()
	// ... run query ...
	timer.ObserveDuration(metrics.CacheLoadDuration)

Using Timer with Labels:

	timer := metrics.NewTimer()
	// ... run query ...
	timer.ObserveDurationVec(metrics.QueryDuration, "medium")

Complete Example:

	package main

	import (
		"net/http"
		"github.com/bijux/atlas/pkg/metrics"
	)

	func main() {
		collector := metrics.NewCollector(cacheManager, resolver)
		collector.Start()
		defer collector.Stop()

		timer := metrics.NewTimer()
		page, err := serviceContext.QueryGenes(ctx, id, req)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.QueryRequestsTotal.WithLabelValues(string(req.Classify()), outcome).Inc()
		timer.ObserveDurationVec(metrics.QueryDuration, string(req.Classify()))

		// Expose metrics endpoint
		http.Handle("/metrics", metrics.Handler())
		http.ListenAndServe(":9090", nil)
	}

# Integration Points

This package integrates with:

  - pkg/cache: Collector samples Manager.Stats() for occupancy gauges
  - pkg/catalog: Collector samples Resolver.Health() for source health
  - pkg/atlas: QueryGenes records request count, latency, rows returned, and
    policy rejections; the other entry points record no metrics
  - Prometheus: Scrapes /metrics endpoint

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration
  - Ensures metrics available before main()
  - No runtime registration needed

Label Discipline:
  - Use WithLabelValues for cardinality-bounded labels
  - classification is one of cheap/medium/heavy; source is one configured registry name
  - Never label by dataset_id, gene_id, or query_hash (unbounded cardinality)
  - Keep label count low (< 5 per metric)

Timer Pattern:
  - Create timer at operation start
  - Defer or explicitly call ObserveDuration
  - Automatically calculates elapsed time
  - Supports both simple and vector histograms

Global Metrics:
  - Package-level variables for all metrics
  - Accessible from any Atlas package
  - Thread-safe concurrent updates
  - No initialization required by callers

# Performance Characteristics

Metric Update Overhead:
  - Gauge set/inc: ~50ns per operation
  - Counter inc: ~50ns per operation
  - Histogram observe: ~200ns per operation
  - Labels: +100ns per label value
  - Negligible impact on hot path

Memory Usage:
  - Per metric: ~1KB baseline
  - Per label combination: ~100 bytes
  - Histogram buckets: ~50 bytes each
  - Total: well under 1MB for a typical federated catalog's source count

Scrape Performance:
  - Metrics gathering: ~1-5ms for full scrape
  - HTTP response: ~10ms for typical metric set
  - Recommendation: Scrape interval ≥ 15s
  - Concurrent scrapes: Safe (read-only)

Cardinality Management:
  - Low cardinality: classification, outcome, reason (< 10 values)
  - Medium cardinality: source (bounded by configured registries)
  - Avoid: dataset IDs, gene IDs, query hashes (unbounded)
  - Best practice: Aggregate high-cardinality identifiers in logs, not metrics

# Troubleshooting

Common Issues:

Missing Metrics:
  - Symptom: Metric not appearing in /metrics output
  - Check: Metric registered in init() function
  - Check: MustRegister called (panics if duplicate)
  - Solution: Verify metric variable is exported

High Cardinality:
  - Symptom: Prometheus memory usage grows
  - Cause: Using IDs or unbounded values as labels
  - Check: Label cardinality (count unique combinations)
  - Solution: Remove high-cardinality labels, aggregate differently

Histogram Bucket Mismatch:
  - Symptom: No data in desired percentiles
  - Cause: Buckets don't cover observed value range
  - Check: Histogram sum / count for average
  - Solution: Customize buckets for value range

Stale Metrics:
  - Symptom: Cache/catalog gauges not updating
  - Cause: Collector.Start() not called, or stopped early
  - Check: Add logging around collect()
  - Solution: Start the collector once at process startup

# Monitoring

Prometheus Queries (PromQL):

Cache Health:
  - Dataset count: atlas_cache_datasets_total
  - Hit ratio: rate(atlas_cache_hits_total[5m]) / (rate(atlas_cache_hits_total[5m]) + rate(atlas_cache_misses_total[5m]))
  - Eviction rate: rate(atlas_cache_evictions_total[5m])
  - Disk usage: atlas_cache_bytes_total

Query Performance:
  - Request rate: rate(atlas_query_requests_total[1m])
  - Error rate: rate(atlas_query_requests_total{outcome="error"}[1m])
  - p95 latency: histogram_quantile(0.95, atlas_query_duration_seconds_bucket)
  - Policy rejection rate: rate(atlas_query_policy_rejections_total[5m])

Catalog Health:
  - Any source unhealthy: min(atlas_catalog_source_healthy) == 0
  - Shadowed entries: sum(atlas_catalog_shadowed_total)
  - Poll latency: histogram_quantile(0.95, atlas_catalog_poll_duration_seconds_bucket)

# Alerting Rules

Recommended Prometheus alerts:

High Query Error Rate:
  - Alert: rate(atlas_query_requests_total{outcome="error"}[5m]) > 0.1
  - Description: More than 0.1 query errors per second
  - Action: Check pkg/query validation and dataset health

Catalog Source Unhealthy:
  - Alert: min(atlas_catalog_source_healthy) == 0
  - Description: At least one federated source's last poll failed
  - Action: Check source connectivity, review Resolver.Health() LastError

Cache Disk Budget Near Limit:
  - Alert: atlas_cache_bytes_total > 0.9 * max_disk_bytes
  - Description: Cache is close to its configured disk budget
  - Action: Raise MaxDiskBytes or investigate unexpectedly large datasets

High Query Latency:
  - Alert: histogram_quantile(0.95, atlas_query_duration_seconds_bucket) > 1
  - Description: p95 query latency > 1 second
  - Action: Check EXPLAIN QUERY PLAN for the slow classification tier

# Grafana Dashboards

Recommended dashboard panels:

Cache Overview:
  - Gauge: Datasets mounted, bytes used
  - Time series: Hit/miss rate
  - Time series: Eviction rate by reason

Query Performance:
  - Time series: Request rate by classification
  - Time series: p95 and p99 latency by classification
  - Time series: Policy rejection rate

Catalog Health:
  - Single stat: Per-source health (healthy/unhealthy)
  - Time series: Poll latency by source
  - Time series: Shadowed dataset count by source

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
  - PromQL tutorial: https://prometheus.io/docs/prometheus/latest/querying/basics/
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
