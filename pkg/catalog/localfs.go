package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bijux/atlas/pkg/canon"
	"github.com/bijux/atlas/pkg/dataset"
)

// LocalFSSource is a RegistrySource backed by a plain directory tree laid
// out per §6.1 — the reference implementation used for a single-node
// deployment or in tests standing in for a remote registry.
type LocalFSSource struct {
	name               string
	priority           int
	root               string
	ttl                time.Duration
	expectedSignature  string
	catalogRelPath     string
}

// NewLocalFSSource builds a LocalFSSource rooted at root, serving its
// catalog from <root>/<catalogRelPath> (typically "catalog.json").
func NewLocalFSSource(name string, priority int, root, catalogRelPath string, ttl time.Duration) *LocalFSSource {
	return &LocalFSSource{name: name, priority: priority, root: root, ttl: ttl, catalogRelPath: catalogRelPath}
}

// WithExpectedSignature pins the source to a SHA-256 digest its catalog
// must recompute to.
func (s *LocalFSSource) WithExpectedSignature(sig string) *LocalFSSource {
	s.expectedSignature = sig
	return s
}

func (s *LocalFSSource) Name() string                 { return s.name }
func (s *LocalFSSource) Priority() int                { return s.priority }
func (s *LocalFSSource) TTL() time.Duration            { return s.ttl }
func (s *LocalFSSource) ExpectedSignature() string     { return s.expectedSignature }

func (s *LocalFSSource) catalogPath() string {
	return filepath.Join(s.root, s.catalogRelPath)
}

// FetchCatalog reads the catalog file and compares its content hash
// against etag: identical content reports NotModified without the
// caller needing to re-parse anything.
func (s *LocalFSSource) FetchCatalog(_ context.Context, etag string) (FetchResult, error) {
	raw, err := os.ReadFile(s.catalogPath())
	if err != nil {
		return FetchResult{}, fmt.Errorf("reading catalog at %s: %w", s.catalogPath(), err)
	}

	newETag := canon.SHA256Hex(raw)
	if newETag == etag {
		return FetchResult{Status: NotModified, ETag: etag}, nil
	}
	return FetchResult{Status: Updated, CatalogBytes: raw, ETag: newETag}, nil
}

func (s *LocalFSSource) datasetDir(id dataset.DatasetId) string {
	return filepath.Join(s.root, id.Release, id.Species, id.Assembly)
}

func (s *LocalFSSource) FetchManifest(_ context.Context, id dataset.DatasetId) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.datasetDir(id), "manifest.json"))
}

func (s *LocalFSSource) FetchDBBytes(_ context.Context, id dataset.DatasetId) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.datasetDir(id), "dataset.db"))
}

func (s *LocalFSSource) FetchAuxiliary(_ context.Context, id dataset.DatasetId, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.datasetDir(id), "derived", name))
}
