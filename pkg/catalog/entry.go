package catalog

import (
	"encoding/json"
	"sort"

	"github.com/bijux/atlas/pkg/dataset"
)

// CatalogEntry names one published dataset's manifest and DB paths.
type CatalogEntry struct {
	DatasetId    dataset.DatasetId `json:"dataset_id"`
	ManifestPath string            `json:"manifest_path"`
	DBPath       string            `json:"db_path"`
}

// Catalog is the merged, totally-ordered view of every dataset a source
// set exposes, plus the ETag the resolver recomputed over it.
type Catalog struct {
	Entries []CatalogEntry `json:"entries"`
	ETag    string         `json:"etag"`
}

// entrySortKey builds the total-order key named in §3: canonical
// DatasetId string, then manifest_path, then db_path.
func entrySortKey(e CatalogEntry) [3]string {
	return [3]string{e.DatasetId.String(), e.ManifestPath, e.DBPath}
}

// SortEntries sorts entries in place by the §3 total order.
func SortEntries(entries []CatalogEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entrySortKey(entries[i]), entrySortKey(entries[j])
		return a[0] < b[0] || (a[0] == b[0] && (a[1] < b[1] || (a[1] == b[1] && a[2] < b[2])))
	})
}

func parseCatalogBytes(raw []byte) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
