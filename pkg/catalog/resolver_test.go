package catalog

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bijux/atlas/pkg/dataset"
)

type fakeSource struct {
	name     string
	priority int
	ttl      time.Duration
	entries  []CatalogEntry
	fail     bool
}

func (f *fakeSource) Name() string               { return f.name }
func (f *fakeSource) Priority() int              { return f.priority }
func (f *fakeSource) TTL() time.Duration         { return f.ttl }
func (f *fakeSource) ExpectedSignature() string  { return "" }

func (f *fakeSource) FetchCatalog(_ context.Context, etag string) (FetchResult, error) {
	if f.fail {
		return FetchResult{}, errFakeSourceUnavailable
	}
	raw, _ := json.Marshal(f.entries)
	return FetchResult{Status: Updated, CatalogBytes: raw, ETag: "etag-" + f.name}, nil
}

func (f *fakeSource) FetchManifest(_ context.Context, id dataset.DatasetId) ([]byte, error) {
	if f.fail {
		return nil, errFakeSourceUnavailable
	}
	return []byte(`{"dataset_id":"` + id.String() + `","source":"` + f.name + `"}`), nil
}

func (f *fakeSource) FetchDBBytes(_ context.Context, _ dataset.DatasetId) ([]byte, error) {
	return []byte("db-bytes-from-" + f.name), nil
}

func (f *fakeSource) FetchAuxiliary(_ context.Context, _ dataset.DatasetId, name string) ([]byte, error) {
	return []byte("aux-" + name), nil
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const errFakeSourceUnavailable = fakeErr("fake source unavailable")

func id(release string) dataset.DatasetId {
	return dataset.DatasetId{Release: release, Species: "homo_sapiens", Assembly: "GRCh38"}
}

func TestFetchCatalogMergesWithFirstSourceWinning(t *testing.T) {
	a := &fakeSource{name: "a", priority: 0, ttl: time.Minute, entries: []CatalogEntry{
		{DatasetId: id("110"), ManifestPath: "m1", DBPath: "d1"},
	}}
	b := &fakeSource{name: "b", priority: 1, ttl: time.Minute, entries: []CatalogEntry{
		{DatasetId: id("110"), ManifestPath: "m2", DBPath: "d2"}, // collides with a, shadowed
		{DatasetId: id("111"), ManifestPath: "m3", DBPath: "d3"},
	}}

	r := New([]RegistrySource{a, b})
	cat, err := r.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("FetchCatalog() error = %v", err)
	}
	if len(cat.Entries) != 2 {
		t.Fatalf("FetchCatalog() entries = %+v, want 2", cat.Entries)
	}
	if cat.Entries[0].ManifestPath != "m1" {
		t.Errorf("winning entry for 110 = %q, want m1 (source a wins)", cat.Entries[0].ManifestPath)
	}

	health := r.Health()
	var bHealth Health
	for _, h := range health {
		if h.Name == "b" {
			bHealth = h
		}
	}
	if bHealth.ShadowedDatasets != 1 {
		t.Errorf("source b ShadowedDatasets = %d, want 1", bHealth.ShadowedDatasets)
	}
}

func TestFetchCatalogFailsWhenAllSourcesFail(t *testing.T) {
	a := &fakeSource{name: "a", priority: 0, ttl: time.Minute, fail: true}
	r := New([]RegistrySource{a})

	if _, err := r.FetchCatalog(context.Background()); err == nil {
		t.Fatalf("FetchCatalog() error = nil, want failure when all sources fail")
	}
}

func TestFetchCatalogToleratesPartialFailure(t *testing.T) {
	a := &fakeSource{name: "a", priority: 0, ttl: time.Minute, fail: true}
	b := &fakeSource{name: "b", priority: 1, ttl: time.Minute, entries: []CatalogEntry{
		{DatasetId: id("110"), ManifestPath: "m1", DBPath: "d1"},
	}}

	r := New([]RegistrySource{a, b})
	cat, err := r.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("FetchCatalog() error = %v, want success from surviving source", err)
	}
	if len(cat.Entries) != 1 {
		t.Errorf("FetchCatalog() entries = %+v, want 1", cat.Entries)
	}
}

func TestFetchManifestTriesPrimarySourceFirst(t *testing.T) {
	a := &fakeSource{name: "a", priority: 0, ttl: time.Minute, entries: []CatalogEntry{
		{DatasetId: id("110"), ManifestPath: "m1", DBPath: "d1"},
	}}
	b := &fakeSource{name: "b", priority: 1, ttl: time.Minute, entries: nil}

	// b is configured first, but a is the primary source for 110.
	r := New([]RegistrySource{b, a})
	if _, err := r.FetchCatalog(context.Background()); err != nil {
		t.Fatalf("FetchCatalog() error = %v", err)
	}

	data, err := r.FetchManifest(context.Background(), id("110"))
	if err != nil {
		t.Fatalf("FetchManifest() error = %v", err)
	}
	if string(data) == "" {
		t.Errorf("FetchManifest() returned empty data")
	}
	if !strings.Contains(string(data), `"source":"a"`) {
		t.Errorf("FetchManifest() = %s, want it served by primary source a", data)
	}
}

func TestEntrySortingIsTotalOrder(t *testing.T) {
	entries := []CatalogEntry{
		{DatasetId: id("111"), ManifestPath: "a", DBPath: "a"},
		{DatasetId: id("110"), ManifestPath: "b", DBPath: "a"},
		{DatasetId: id("110"), ManifestPath: "a", DBPath: "b"},
	}
	SortEntries(entries)
	if entries[0].ManifestPath != "a" || entries[0].DatasetId.Release != "110" {
		t.Errorf("SortEntries() first = %+v, want (110, manifest a)", entries[0])
	}
	if entries[1].ManifestPath != "b" {
		t.Errorf("SortEntries() second = %+v, want manifest b", entries[1])
	}
}
