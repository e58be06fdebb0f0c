package config

import (
	"os"
	"strconv"
	"time"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/cache"
)

const minCursorSecretBytes = 32

// Config holds every environment-sourced setting a process needs to
// construct a cache.Manager and an atlas.ServiceContext (§6.6).
type Config struct {
	CursorSecret []byte
	Cache        cache.Config
}

// Load reads and validates the environment variables of §6.6, failing on
// the first problem found rather than constructing a partially-valid
// Config. CURSOR_SECRET's minimum length is enforced here, at process
// startup, so an undersized secret never reaches a running
// ServiceContext.
func Load() (Config, error) {
	secret := os.Getenv("CURSOR_SECRET")
	if len(secret) < minCursorSecretBytes {
		return Config{}, atlaserr.New(atlaserr.Validation,
			"CURSOR_SECRET must be set to at least 32 bytes")
	}

	maxDatasets, err := getenvInt("CACHE_MAX_DATASETS", 64)
	if err != nil {
		return Config{}, err
	}
	maxDiskBytes, err := getenvInt64("CACHE_MAX_DISK_BYTES", 0)
	if err != nil {
		return Config{}, err
	}
	maxTotalConns, err := getenvInt64("CACHE_MAX_TOTAL_CONNS", 64)
	if err != nil {
		return Config{}, err
	}
	maxConnsPerDataset, err := getenvInt64("CACHE_MAX_CONNS_PER_DATASET", 8)
	if err != nil {
		return Config{}, err
	}
	openTimeout, err := getenvDuration("CACHE_DATASET_OPEN_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	cachedOnly, err := getenvBool("CACHED_ONLY_MODE", false)
	if err != nil {
		return Config{}, err
	}

	return Config{
		CursorSecret: []byte(secret),
		Cache: cache.Config{
			DiskRoot:                 getenv("CACHE_ROOT", "/var/lib/atlas/cache"),
			MaxTotalConnections:      maxTotalConns,
			MaxConnectionsPerDataset: maxConnsPerDataset,
			MaxDatasetCount:          maxDatasets,
			MaxDiskBytes:             maxDiskBytes,
			DatasetOpenTimeout:       openTimeout,
			CachedOnlyMode:           cachedOnly,
		},
	}, nil
}

// FailReadinessOnMissingWarmup reads FAIL_READINESS_ON_MISSING_WARMUP
// separately from Load because it governs warm-up behavior at
// cmd/atlas-server's call site, not a cache.Manager field.
func FailReadinessOnMissingWarmup() (bool, error) {
	return getenvBool("FAIL_READINESS_ON_MISSING_WARMUP", false)
}

// getenv retrieves an environment variable with a default fallback value.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, atlaserr.Wrap(atlaserr.Validation, "parsing "+k, err)
	}
	return n, nil
}

func getenvInt64(k string, def int64) (int64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, atlaserr.Wrap(atlaserr.Validation, "parsing "+k, err)
	}
	return n, nil
}

func getenvBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, atlaserr.Wrap(atlaserr.Validation, "parsing "+k, err)
	}
	return b, nil
}

func getenvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, atlaserr.Wrap(atlaserr.Validation, "parsing "+k, err)
	}
	return d, nil
}
