package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/bijux/atlas/pkg/cache"
	"github.com/bijux/atlas/pkg/catalog"
	"github.com/bijux/atlas/pkg/dataset"
)

func testutilGaugeValue(g interface{ Write(*dto.Metric) error }) float64 {
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		return -1
	}
	return m.GetGauge().GetValue()
}

func buildCollectorFixture(t *testing.T) (*cache.Manager, *catalog.Resolver) {
	t.Helper()
	root := t.TempDir()

	id := dataset.DatasetId{Release: "110", Species: "homo_sapiens", Assembly: "GRCh38"}
	entries := []catalog.CatalogEntry{
		{DatasetId: id, ManifestPath: filepath.Join(id.Release, id.Species, id.Assembly, "manifest.json"), DBPath: filepath.Join(id.Release, id.Species, id.Assembly, "dataset.db")},
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal catalog entries: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "catalog.json"), raw, 0o644); err != nil {
		t.Fatalf("writing catalog.json: %v", err)
	}

	src := catalog.NewLocalFSSource("local", 0, root, "catalog.json", time.Minute)
	resolver := catalog.New([]catalog.RegistrySource{src})

	mgr, err := cache.NewManager(cache.Config{
		DiskRoot:                 t.TempDir(),
		MaxTotalConnections:      4,
		MaxConnectionsPerDataset: 2,
	}, resolver)
	if err != nil {
		t.Fatalf("cache.NewManager() error = %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	return mgr, resolver
}

func TestCollectorPublishesCacheAndCatalogGauges(t *testing.T) {
	mgr, resolver := buildCollectorFixture(t)

	c := NewCollector(mgr, resolver)
	c.collect()

	if got := testutilGaugeValue(CatalogDatasetsTotal); got != 1 {
		t.Errorf("CatalogDatasetsTotal = %v, want 1", got)
	}
	if got := testutilGaugeValue(CacheDatasetsTotal); got != 0 {
		t.Errorf("CacheDatasetsTotal = %v, want 0 (nothing opened yet)", got)
	}

	health := resolver.Health()
	if len(health) != 1 || health[0].Name != "local" {
		t.Fatalf("resolver.Health() = %+v, want one entry named local", health)
	}
}

func TestCollectorStartStop(t *testing.T) {
	mgr, resolver := buildCollectorFixture(t)

	c := NewCollector(mgr, resolver)
	c.Start()
	c.Stop()
}
