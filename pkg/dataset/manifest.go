package dataset

import (
	"fmt"
	"strings"
)

// Checksums holds the hex SHA-256 digest of every top-level artifact file
// named by ArtifactPaths.
type Checksums struct {
	FeaturesSHA256 string `json:"features_sha256"`
	FastaSHA256    string `json:"fasta_sha256"`
	FaiSHA256      string `json:"fai_sha256"`
	SqliteSHA256   string `json:"sqlite_sha256"`
}

// Stats holds the row counts an ingest run recorded for a dataset.
type Stats struct {
	GeneCount       int64 `json:"gene_count"`
	TranscriptCount int64 `json:"transcript_count"`
	FeatureCount    int64 `json:"feature_count"`
}

// ManifestDataset mirrors the DatasetId fields, shaped for the manifest's
// "dataset" JSON object.
type ManifestDataset struct {
	Release  string `json:"release"`
	Species  string `json:"species"`
	Assembly string `json:"assembly"`
}

// ToDatasetId converts the manifest's embedded dataset block into a
// DatasetId.
func (d ManifestDataset) ToDatasetId() DatasetId {
	return DatasetId{Release: d.Release, Species: d.Species, Assembly: d.Assembly}
}

// ArtifactManifest is the publishable description of one dataset version:
// schema version, contract version, identity, checksums, stats, the
// dataset signature, the column-provenance map every derived column must
// be traceable through, and free-form provenance metadata from the
// ingest tool that produced it.
type ArtifactManifest struct {
	SchemaVersion   int             `json:"schema_version"`
	ContractVersion string          `json:"contract_version"`
	Dataset         ManifestDataset `json:"dataset"`
	Checksums       Checksums       `json:"checksums"`
	Stats           Stats           `json:"stats"`

	DatasetSignatureSHA256 string `json:"dataset_signature_sha256"`

	// DerivedColumnOrigins maps every derived column name (e.g.
	// "name_norm") to the source column(s) or rule it was computed from.
	DerivedColumnOrigins map[string]string `json:"derived_column_origins"`

	// Provenance is free-form: ingest tool name/version, source file
	// timestamps, and anything else worth recording that validate-strict
	// does not enforce the shape of.
	Provenance map[string]string `json:"provenance,omitempty"`
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		isHexDigit := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !isHexDigit {
			return false
		}
	}
	return true
}

// ValidationErrors collects every failure ValidateStrict found, in the
// order they were discovered. It implements error so it can be returned
// and inspected like any other error, while still exposing the full list
// via Errors().
type ValidationErrors struct {
	Failures []string
}

func (e *ValidationErrors) Error() string {
	if len(e.Failures) == 0 {
		return "no validation errors"
	}
	return fmt.Sprintf("manifest validation failed (%d issue(s)): %s", len(e.Failures), strings.Join(e.Failures, "; "))
}

// Errors returns the individual failure messages, first-failure first.
func (e *ValidationErrors) Errors() []string {
	return e.Failures
}

// First returns the first failure message, or "" if there were none.
func (e *ValidationErrors) First() string {
	if len(e.Failures) == 0 {
		return ""
	}
	return e.Failures[0]
}

// ValidateStrict checks every field spec.md §4.B/§6.2 names and reports
// every failure found, not just the first. enclosingID is the DatasetId
// this manifest is being validated in the context of — it must match the
// manifest's own embedded dataset block.
func (m *ArtifactManifest) ValidateStrict(enclosingID DatasetId) error {
	var failures []string
	add := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}

	if m.SchemaVersion < 1 {
		add("schema_version must be >= 1, got %d", m.SchemaVersion)
	}
	if m.ContractVersion == "" {
		add("contract_version must not be empty")
	}

	manifestID := m.Dataset.ToDatasetId()
	if manifestID != enclosingID {
		add("dataset %s does not match enclosing dataset %s", manifestID, enclosingID)
	}
	if err := manifestID.Validate(); err != nil {
		add("dataset: %v", err)
	}

	for name, digest := range map[string]string{
		"checksums.features_sha256": m.Checksums.FeaturesSHA256,
		"checksums.fasta_sha256":    m.Checksums.FastaSHA256,
		"checksums.fai_sha256":      m.Checksums.FaiSHA256,
		"checksums.sqlite_sha256":   m.Checksums.SqliteSHA256,
	} {
		if !isHex64(digest) {
			add("%s must be 64 lowercase hex characters, got %q", name, digest)
		}
	}

	if m.Stats.GeneCount <= 0 {
		add("stats.gene_count must be > 0, got %d", m.Stats.GeneCount)
	}

	if len(m.DerivedColumnOrigins) == 0 {
		add("derived_column_origins must not be empty")
	}

	// Per the design note resolving the ambiguous original behavior: an
	// empty dataset_signature_sha256 is invalid in both shallow validate
	// and deep verify modes, not just the latter.
	if !isHex64(m.DatasetSignatureSHA256) {
		add("dataset_signature_sha256 must be 64 lowercase hex characters, got %q", m.DatasetSignatureSHA256)
	}

	if len(failures) > 0 {
		return &ValidationErrors{Failures: failures}
	}
	return nil
}
