package metrics

import (
	"context"
	"time"

	"github.com/bijux/atlas/pkg/cache"
	"github.com/bijux/atlas/pkg/catalog"
)

// Collector periodically samples the cache manager and catalog resolver
// and publishes their occupancy/health into the Prometheus gauges
// registered in metrics.go.
type Collector struct {
	cache    *cache.Manager
	resolver *catalog.Resolver
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector and installs this
// package's Prometheus-backed cache.Recorder on cacheManager, so hits,
// misses, evictions, and load durations are recorded as they happen
// rather than only sampled on Collector's periodic tick.
func NewCollector(cacheManager *cache.Manager, resolver *catalog.Resolver) *Collector {
	if cacheManager != nil {
		cacheManager.SetRecorder(cacheRecorder{})
	}
	return &Collector{
		cache:    cacheManager,
		resolver: resolver,
		stopCh:   make(chan struct{}),
	}
}

// cacheRecorder implements cache.Recorder against the package's
// existing Prometheus counters and histogram.
type cacheRecorder struct{}

func (cacheRecorder) CacheHit()  { CacheHitsTotal.Inc() }
func (cacheRecorder) CacheMiss() { CacheMissesTotal.Inc() }

func (cacheRecorder) CacheEviction(reason string) {
	CacheEvictionsTotal.WithLabelValues(reason).Inc()
}

func (cacheRecorder) CacheLoadDuration(d time.Duration) {
	CacheLoadDuration.Observe(d.Seconds())
}

// Start begins collecting metrics on a fixed interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectCacheMetrics()
	c.collectCatalogMetrics()
}

func (c *Collector) collectCacheMetrics() {
	if c.cache == nil {
		return
	}
	stats := c.cache.Stats()
	CacheDatasetsTotal.Set(float64(stats.DatasetsTotal))
	CacheBytesTotal.Set(float64(stats.BytesTotal))
}

func (c *Collector) collectCatalogMetrics() {
	if c.resolver == nil {
		return
	}
	for _, h := range c.resolver.Health() {
		healthy := 0.0
		if h.Healthy {
			healthy = 1.0
		}
		CatalogSourceHealth.WithLabelValues(h.Name).Set(healthy)
		CatalogShadowedTotal.WithLabelValues(h.Name).Set(float64(h.ShadowedDatasets))
	}

	cat, err := c.resolver.FetchCatalog(context.Background())
	if err != nil {
		return
	}
	CatalogDatasetsTotal.Set(float64(len(cat.Entries)))
}
