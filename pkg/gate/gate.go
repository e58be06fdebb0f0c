package gate

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/canon"
	"github.com/bijux/atlas/pkg/catalog"
	"github.com/bijux/atlas/pkg/dataset"
)

// sqliteMagic is the fixed 16-byte header every SQLite database file
// begins with.
var sqliteMagic = []byte("SQLite format 3\x00")

// RequiredIndexes names the index set every published DB must carry, as
// checked by both Validate and PublishGates.
var RequiredIndexes = []string{
	"idx_gene_id",
	"idx_gene_name_norm",
	"idx_gene_biotype",
	"idx_transcript_gene_id",
	"idx_transcript_id",
}

// Artifact bundles the bytes and parsed forms a gate layer inspects. The
// caller assembles it from the store/cache; gate never fetches anything
// itself.
type Artifact struct {
	ManifestBytes []byte
	DBBytes       []byte
	DB            *sql.DB // opened read-only against the same bytes as DBBytes
	Manifest      *dataset.ArtifactManifest
	Lock          dataset.ManifestLock
	ShardCatalog  catalog.ShardCatalog
	QCReport      QCReport
	GeneRows       []any // canonical row data for signature recomputation
	TranscriptRows []any
}

// Validate implements the §4.G shallow layer.
func Validate(ctx context.Context, a Artifact, id dataset.DatasetId, thresholds Thresholds) error {
	if a.Manifest == nil {
		return atlaserr.New(atlaserr.Validation, "manifest is nil")
	}
	if err := a.Manifest.ValidateStrict(id); err != nil {
		return err
	}

	if !bytes.HasPrefix(a.DBBytes, sqliteMagic) {
		return atlaserr.New(atlaserr.Validation, "db file does not begin with the SQLite magic header")
	}

	if canon.SHA256Hex(a.DBBytes) != a.Manifest.Checksums.SqliteSHA256 {
		return atlaserr.New(atlaserr.IntegrityFailure, "db bytes do not hash to manifest checksums.sqlite_sha256")
	}

	if a.Manifest.Stats.GeneCount <= 0 {
		return atlaserr.New(atlaserr.Validation, "gene_count must be > 0")
	}

	if a.DB != nil {
		present, err := requiredIndexesPresent(ctx, a.DB)
		if err != nil {
			return atlaserr.Wrap(atlaserr.Upstream, "checking required indexes", err)
		}
		if !present {
			return atlaserr.New(atlaserr.Validation, "one or more required indexes are missing")
		}
	}

	if err := CheckQC(a.QCReport, thresholds); err != nil {
		return err
	}

	if err := a.ShardCatalog.ValidateSorted(); err != nil {
		return err
	}

	return nil
}

// Verify implements the §4.G deep layer: Validate plus lock and signature
// cross-checks.
func Verify(ctx context.Context, a Artifact, id dataset.DatasetId, thresholds Thresholds) error {
	if err := Validate(ctx, a, id, thresholds); err != nil {
		return err
	}

	if err := a.Lock.Validate(a.ManifestBytes, a.DBBytes); err != nil {
		return err
	}

	recomputed, err := dataset.DatasetSignature(a.GeneRows, a.TranscriptRows)
	if err != nil {
		return atlaserr.Wrap(atlaserr.Validation, "recomputing dataset signature", err)
	}
	if recomputed != a.Manifest.DatasetSignatureSHA256 {
		return atlaserr.New(atlaserr.IntegrityFailure, "recomputed dataset signature does not match manifest")
	}

	return nil
}

// PublishGatesConfig names the admission thresholds §4.G.3 checks beyond
// the QC report.
type PublishGatesConfig struct {
	MinGeneCount      int64
	MaxMissingParents int64
	MissingParents    int64
}

// PublishGates implements the §4.G final admission layer: Verify plus the
// gene_count/missing_parents/required-index/QC thresholds that gate
// whether a dataset is allowed to be published at all.
func PublishGates(ctx context.Context, a Artifact, id dataset.DatasetId, thresholds Thresholds, cfg PublishGatesConfig) error {
	if err := Verify(ctx, a, id, thresholds); err != nil {
		return err
	}

	if a.Manifest.Stats.GeneCount < cfg.MinGeneCount {
		return atlaserr.New(atlaserr.Policy, "gene_count below publish gate min_gene_count")
	}
	if cfg.MissingParents > cfg.MaxMissingParents {
		return atlaserr.New(atlaserr.Policy, "missing_parents exceeds max_missing_parents")
	}

	return nil
}

func requiredIndexesPresent(ctx context.Context, db *sql.DB) (bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'index'`)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	present := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	for _, idx := range RequiredIndexes {
		if !present[idx] {
			return false, nil
		}
	}
	return true, nil
}

// ParseQCReport parses the canonical JSON form of derived/qc.json.
func ParseQCReport(raw []byte) (QCReport, error) {
	var report QCReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return QCReport{}, atlaserr.Wrap(atlaserr.Validation, "parsing QC report", err)
	}
	return report, nil
}
