// Package integration exercises pkg/catalog, pkg/cache, pkg/dataset and
// pkg/embedded together against real files on disk, rather than any
// package's internal test doubles.
package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/cache"
	"github.com/bijux/atlas/pkg/canon"
	"github.com/bijux/atlas/pkg/catalog"
	"github.com/bijux/atlas/pkg/dataset"
	"github.com/bijux/atlas/pkg/embedded"
)

// countingSource wraps a real *catalog.LocalFSSource and counts
// FetchManifest calls, so a test can assert on the number of distinct
// fetches a concurrent burst of cache misses produced without reaching
// into pkg/cache's unexported entryState.
type countingSource struct {
	*catalog.LocalFSSource
	manifestCalls int32
	fetchDelay    time.Duration
}

func (s *countingSource) FetchManifest(ctx context.Context, id dataset.DatasetId) ([]byte, error) {
	atomic.AddInt32(&s.manifestCalls, 1)
	if s.fetchDelay > 0 {
		select {
		case <-time.After(s.fetchDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.LocalFSSource.FetchManifest(ctx, id)
}

// writeDataset builds a real embedded SQLite database under root's
// catalog layout (§6.1: <root>/<release>/<species>/<assembly>/...) and
// returns the dataset it describes, ready to be listed in catalog.json.
func writeDataset(t *testing.T, root string, id dataset.DatasetId) catalog.CatalogEntry {
	t.Helper()

	dir := filepath.Join(root, id.Release, id.Species, id.Assembly)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll(%s): %v", dir, err)
	}

	dbPath := filepath.Join(dir, "dataset.db")
	w, err := embedded.Create(dbPath)
	if err != nil {
		t.Fatalf("embedded.Create() error = %v", err)
	}
	genes := []embedded.GeneRecord{
		{GeneID: "ENSG001", Name: "BRCA2", Biotype: "protein_coding", Seqid: "13", Start: 100, End: 200},
	}
	if err := w.BulkLoad(context.Background(), genes, nil, nil); err != nil {
		t.Fatalf("BulkLoad() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	dbBytes, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatalf("reading %s: %v", dbPath, err)
	}

	digest := strings.Repeat("a", 64)
	manifest := dataset.ArtifactManifest{
		SchemaVersion:   1,
		ContractVersion: "v1",
		Dataset: dataset.ManifestDataset{
			Release:  id.Release,
			Species:  id.Species,
			Assembly: id.Assembly,
		},
		Checksums: dataset.Checksums{
			FeaturesSHA256: digest,
			FastaSHA256:    digest,
			FaiSHA256:      digest,
			SqliteSHA256:   canon.SHA256Hex(dbBytes),
		},
		Stats:                  dataset.Stats{GeneCount: 1, TranscriptCount: 0, FeatureCount: 1},
		DatasetSignatureSHA256: digest,
		DerivedColumnOrigins:   map[string]string{"name_norm": "name.lower()"},
	}
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), manifestBytes, 0o644); err != nil {
		t.Fatalf("writing manifest.json: %v", err)
	}

	return catalog.CatalogEntry{
		DatasetId:    id,
		ManifestPath: filepath.Join(id.Release, id.Species, id.Assembly, "manifest.json"),
		DBPath:       filepath.Join(id.Release, id.Species, id.Assembly, "dataset.db"),
	}
}

func writeCatalogIndex(t *testing.T, root string, entries []catalog.CatalogEntry) {
	t.Helper()
	raw, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal catalog entries: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "catalog.json"), raw, 0o644); err != nil {
		t.Fatalf("writing catalog.json: %v", err)
	}
}

func testID() dataset.DatasetId {
	return dataset.DatasetId{Release: "110", Species: "homo_sapiens", Assembly: "GRCh38"}
}

// TestConcurrentMissesSingleFlightThroughRealResolver exercises §8
// scenario 1 end to end: a burst of concurrent OpenDatasetConnection
// calls for the same absent dataset, resolved through a real
// catalog.Resolver backed by a real catalog.LocalFSSource, must collapse
// into exactly one manifest fetch.
func TestConcurrentMissesSingleFlightThroughRealResolver(t *testing.T) {
	catalogRoot := t.TempDir()
	id := testID()
	entry := writeDataset(t, catalogRoot, id)
	writeCatalogIndex(t, catalogRoot, []catalog.CatalogEntry{entry})

	base := catalog.NewLocalFSSource("local", 0, catalogRoot, "catalog.json", time.Minute)
	counting := &countingSource{LocalFSSource: base, fetchDelay: 20 * time.Millisecond}
	resolver := catalog.New([]catalog.RegistrySource{counting})

	m, err := cache.NewManager(cache.Config{
		DiskRoot:                 t.TempDir(),
		MaxTotalConnections:      64,
		MaxConnectionsPerDataset: 64,
	}, resolver)
	if err != nil {
		t.Fatalf("cache.NewManager() error = %v", err)
	}
	defer m.Close()

	const n = 64
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := m.OpenDatasetConnection(context.Background(), id)
			errs[i] = err
			if h != nil {
				h.Release()
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("OpenDatasetConnection()[%d] error = %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&counting.manifestCalls); got != 1 {
		t.Errorf("manifest fetches = %d, want exactly 1", got)
	}
}

// TestReverifyEvictsDatasetCorruptedOnDisk exercises §8 scenario 2 end
// to end: once a dataset is mounted through a real resolver, corrupting
// its cached db file on disk must cause ReverifyCachedDatasets to report
// an IntegrityFailure and evict the entry, so the next open re-fetches
// from the source of truth rather than serving corrupted bytes.
func TestReverifyEvictsDatasetCorruptedOnDisk(t *testing.T) {
	catalogRoot := t.TempDir()
	id := testID()
	entry := writeDataset(t, catalogRoot, id)
	writeCatalogIndex(t, catalogRoot, []catalog.CatalogEntry{entry})

	source := catalog.NewLocalFSSource("local", 0, catalogRoot, "catalog.json", time.Minute)
	resolver := catalog.New([]catalog.RegistrySource{source})

	diskRoot := t.TempDir()
	m, err := cache.NewManager(cache.Config{DiskRoot: diskRoot}, resolver)
	if err != nil {
		t.Fatalf("cache.NewManager() error = %v", err)
	}
	defer m.Close()

	h, err := m.OpenDatasetConnection(context.Background(), id)
	if err != nil {
		t.Fatalf("OpenDatasetConnection() error = %v", err)
	}
	h.Release()

	cachedDBPath := filepath.Join(diskRoot, id.Release, id.Species, id.Assembly, "dataset.db")
	if _, err := os.Stat(cachedDBPath); err != nil {
		t.Fatalf("expected cached db at %s: %v", cachedDBPath, err)
	}
	if err := os.WriteFile(cachedDBPath, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("corrupting cached db: %v", err)
	}

	reverifyErrs := m.ReverifyCachedDatasets(context.Background())
	if len(reverifyErrs) != 1 {
		t.Fatalf("ReverifyCachedDatasets() errs = %v, want exactly one", reverifyErrs)
	}
	if !atlaserr.Is(reverifyErrs[0], atlaserr.IntegrityFailure) {
		t.Errorf("reverify error = %v, want IntegrityFailure", reverifyErrs[0])
	}

	stats := m.Stats()
	if stats.DatasetsTotal != 0 {
		t.Errorf("Stats().DatasetsTotal = %d after eviction, want 0", stats.DatasetsTotal)
	}

	// Re-opening must re-fetch and re-cache from the source of truth
	// rather than serve the evicted, corrupted entry.
	h2, err := m.OpenDatasetConnection(context.Background(), id)
	if err != nil {
		t.Fatalf("re-opening after eviction: %v", err)
	}
	defer h2.Release()

	var geneID string
	if err := h2.DB.QueryRow(`SELECT gene_id FROM gene_summary LIMIT 1`).Scan(&geneID); err != nil {
		t.Fatalf("querying re-cached handle: %v", err)
	}
	if geneID != "ENSG001" {
		t.Errorf("gene_id = %q, want ENSG001", geneID)
	}
}
