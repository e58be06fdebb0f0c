package atlas

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bijux/atlas/pkg/cache"
	"github.com/bijux/atlas/pkg/canon"
	"github.com/bijux/atlas/pkg/catalog"
	"github.com/bijux/atlas/pkg/dataset"
	"github.com/bijux/atlas/pkg/embedded"
	"github.com/bijux/atlas/pkg/query"
)

var testSecret = []byte("01234567890123456789012345678901")

func buildLocalFSFixture(t *testing.T, id dataset.DatasetId) string {
	t.Helper()
	root := t.TempDir()
	datasetDir := filepath.Join(root, id.Release, id.Species, id.Assembly)
	if err := os.MkdirAll(datasetDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	dbPath := filepath.Join(datasetDir, "dataset.db")
	w, err := embedded.Create(dbPath)
	if err != nil {
		t.Fatalf("embedded.Create() error = %v", err)
	}
	genes := []embedded.GeneRecord{
		{GeneID: "ENSG001", Name: "BRCA2", Biotype: "protein_coding", Seqid: "13", Start: 100, End: 200},
		{GeneID: "ENSG002", Name: "TP53", Biotype: "protein_coding", Seqid: "17", Start: 300, End: 400},
	}
	if err := w.BulkLoad(context.Background(), genes, nil, nil); err != nil {
		t.Fatalf("BulkLoad() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	dbBytes, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatalf("reading db: %v", err)
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
		Stats:                  dataset.Stats{GeneCount: 2, TranscriptCount: 0, FeatureCount: 2},
		DatasetSignatureSHA256: digest,
		DerivedColumnOrigins:   map[string]string{"name_norm": "name.lower()"},
	}
	manifestBytes, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(datasetDir, "manifest.json"), manifestBytes, 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}

	return root
}

func newTestServiceContext(t *testing.T, id dataset.DatasetId) *ServiceContext {
	t.Helper()
	root := buildLocalFSFixture(t, id)
	src := catalog.NewLocalFSSource("local", 0, root, "catalog.json", time.Minute)
	resolver := catalog.New([]catalog.RegistrySource{src})

	mgr, err := cache.NewManager(cache.Config{
		DiskRoot:                 t.TempDir(),
		MaxTotalConnections:      8,
		MaxConnectionsPerDataset: 4,
	}, resolver)
	if err != nil {
		t.Fatalf("cache.NewManager() error = %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	limits := query.QueryLimits{
		MaxPageSize:      100,
		MaxRegionSpan:    1_000_000,
		MaxPrefixLen:     16,
		MaxWorkUnits:     10_000,
		MaxResponseBytes: 1 << 20,
		MaxPrefixCost:    1_000,
	}
	return NewServiceContext(mgr, resolver, limits, testSecret)
}

func TestQueryGenesReturnsMatchingRows(t *testing.T) {
	id := dataset.DatasetId{Release: "110", Species: "homo_sapiens", Assembly: "GRCh38"}
	sc := newTestServiceContext(t, id)

	req := query.GeneQueryRequest{
		Biotype:    "protein_coding",
		PageSize:   10,
		Projection: query.Projection{Name: true},
	}
	page, err := sc.QueryGenes(context.Background(), id, req)
	if err != nil {
		t.Fatalf("QueryGenes() error = %v", err)
	}
	if len(page.Rows) != 2 {
		t.Fatalf("QueryGenes() rows = %+v, want 2", page.Rows)
	}
}

func TestQueryGeneByIDFastNarrowProjection(t *testing.T) {
	id := dataset.DatasetId{Release: "110", Species: "homo_sapiens", Assembly: "GRCh38"}
	sc := newTestServiceContext(t, id)

	data, found, err := sc.QueryGeneByIDFast(context.Background(), id, "ENSG001", query.Projection{Name: true})
	if err != nil {
		t.Fatalf("QueryGeneByIDFast() error = %v", err)
	}
	if !found {
		t.Fatalf("QueryGeneByIDFast() found = false, want true")
	}
	if string(data) != `{"gene_id":"ENSG001","name":"BRCA2"}` {
		t.Errorf("QueryGeneByIDFast() data = %s, want compact gene_id+name JSON", data)
	}
}

func TestQueryGeneByIDFastWideProjectionFallsBack(t *testing.T) {
	id := dataset.DatasetId{Release: "110", Species: "homo_sapiens", Assembly: "GRCh38"}
	sc := newTestServiceContext(t, id)

	data, found, err := sc.QueryGeneByIDFast(context.Background(), id, "ENSG001",
		query.Projection{Name: true, Biotype: true, Seqid: true, Start: true, End: true})
	if err != nil {
		t.Fatalf("QueryGeneByIDFast() error = %v", err)
	}
	if !found {
		t.Fatalf("QueryGeneByIDFast() found = false, want true")
	}
	var row query.GeneRow
	if err := json.Unmarshal(data, &row); err != nil {
		t.Fatalf("unmarshal fallback row: %v", err)
	}
	if row.Biotype != "protein_coding" {
		t.Errorf("row.Biotype = %q, want protein_coding", row.Biotype)
	}
}

func TestClassifyAndEstimateArePure(t *testing.T) {
	id := dataset.DatasetId{Release: "110", Species: "homo_sapiens", Assembly: "GRCh38"}
	sc := newTestServiceContext(t, id)

	req := query.GeneQueryRequest{Biotype: "protein_coding", PageSize: 10}
	if got := sc.ClassifyQuery(req); got != query.Medium {
		t.Errorf("ClassifyQuery() = %v, want Medium", got)
	}
	if got := sc.EstimateWorkUnits(req); got != 210 {
		t.Errorf("EstimateWorkUnits() = %d, want 210", got)
	}
}

func TestExplainQueryPlanReturnsSortedLines(t *testing.T) {
	id := dataset.DatasetId{Release: "110", Species: "homo_sapiens", Assembly: "GRCh38"}
	sc := newTestServiceContext(t, id)

	req := query.GeneQueryRequest{Biotype: "protein_coding", PageSize: 10}
	lines, err := sc.ExplainQueryPlan(context.Background(), id, req)
	if err != nil {
		t.Fatalf("ExplainQueryPlan() error = %v", err)
	}
	if len(lines) == 0 {
		t.Errorf("ExplainQueryPlan() returned no lines")
	}
}

func TestQueryNormalizationHashIgnoresCursor(t *testing.T) {
	sc := &ServiceContext{}
	base := query.GeneQueryRequest{Biotype: "protein_coding", PageSize: 10}
	withCursor := base
	withCursor.Cursor = "some-token"

	h1, err := sc.QueryNormalizationHash(base)
	if err != nil {
		t.Fatalf("QueryNormalizationHash() error = %v", err)
	}
	h2, err := sc.QueryNormalizationHash(withCursor)
	if err != nil {
		t.Fatalf("QueryNormalizationHash() error = %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash differs by cursor alone: %s vs %s", h1, h2)
	}
}
