package catalog

import (
	"context"
	"time"

	"github.com/bijux/atlas/pkg/dataset"
)

// FetchStatus distinguishes a catalog fetch that returned fresh bytes from
// one that confirmed the cached bytes are still current.
type FetchStatus int

const (
	Updated FetchStatus = iota
	NotModified
)

// FetchResult is what a RegistrySource returns for a single catalog poll.
type FetchResult struct {
	Status       FetchStatus
	CatalogBytes []byte // canonical JSON; only meaningful when Status == Updated
	ETag         string
}

// RegistrySource is one upstream catalog provider. Implementations (e.g.
// LocalFSSource, HTTPSource) supply the transport; the resolver supplies
// merge, health, and freshness policy uniformly across all of them.
type RegistrySource interface {
	Name() string
	Priority() int
	TTL() time.Duration
	// ExpectedSignature returns the SHA-256 hex digest this source's
	// catalog is pinned to, or "" if unpinned.
	ExpectedSignature() string

	FetchCatalog(ctx context.Context, etag string) (FetchResult, error)
	FetchManifest(ctx context.Context, id dataset.DatasetId) ([]byte, error)
	FetchDBBytes(ctx context.Context, id dataset.DatasetId) ([]byte, error)
	FetchAuxiliary(ctx context.Context, id dataset.DatasetId, name string) ([]byte, error)
}

// SourceState is the resolver's bookkeeping for one source, exposed
// verbatim as the §4.E health surface.
type SourceState struct {
	Name             string
	Priority         int
	Healthy          bool
	LastError        error
	ShadowedDatasets int
	TTLSeconds       int

	cachedCatalog Catalog
	cachedETag    string
	lastRefresh   time.Time
}

// Health is the read-only snapshot the §4.E health surface names:
// {name, priority, healthy, last_error, shadowed_datasets, ttl_seconds}.
type Health struct {
	Name             string
	Priority         int
	Healthy          bool
	LastError        string
	ShadowedDatasets int
	TTLSeconds       int
}
