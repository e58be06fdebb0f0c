package cache

import (
	"os"
	"path/filepath"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/dataset"
)

// entryState is the in-memory record for one cached dataset: its
// manifest, the pool that leases its DB connections, its on-disk
// location, and the bookkeeping eviction and re-verification need.
type entryState struct {
	id       dataset.DatasetId
	manifest *dataset.ArtifactManifest

	manifestDigest string
	sqliteDigest   string
	sizeBytes      int64

	dir          string
	manifestPath string
	dbPath       string

	pinned bool
	pool   *pool
}

// datasetDir returns the per-dataset subdirectory of diskRoot, per §4.F.1.c.
func datasetDir(diskRoot string, id dataset.DatasetId) string {
	return filepath.Join(diskRoot, id.Release, id.Species, id.Assembly)
}

// writeAtomic writes data to path by writing to a sibling temp file and
// renaming over the destination, so a concurrent reader (or a crash
// mid-write) never observes a partial file. Grounded on
// pkg/catalog/store.go's writeAtomic of the same shape.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return atlaserr.Wrap(atlaserr.StoreError, "creating cache directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return atlaserr.Wrap(atlaserr.StoreError, "creating temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return atlaserr.Wrap(atlaserr.StoreError, "writing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return atlaserr.Wrap(atlaserr.StoreError, "closing temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return atlaserr.Wrap(atlaserr.StoreError, "renaming temp file into place", err)
	}
	return nil
}
