package gate

import (
	"gopkg.in/yaml.v3"

	"github.com/bijux/atlas/pkg/atlaserr"
)

// QCReport is the anomaly/quality-control summary produced alongside a
// published dataset, read from derived/qc.json.
type QCReport struct {
	Genes                     int64   `json:"genes" yaml:"genes"`
	Transcripts               int64   `json:"transcripts" yaml:"transcripts"`
	OrphanTranscripts         int64   `json:"orphan_transcripts" yaml:"orphan_transcripts"`
	RejectedSum               int64   `json:"rejected_sum" yaml:"rejected_sum"`
	TotalFeatures             int64   `json:"total_features" yaml:"total_features"`
	UnknownContigFeatureRatio float64 `json:"unknown_contig_feature_ratio" yaml:"unknown_contig_feature_ratio"`
	DuplicateGeneIDEvents     int64   `json:"duplicate_gene_id_events" yaml:"duplicate_gene_id_events"`
}

// Thresholds are the configured QC admission limits, loaded from a YAML
// file at ingest-tool startup — the one place in Atlas a human edits a
// threshold without a code change.
type Thresholds struct {
	MinGeneCount                   int64   `yaml:"min_gene_count"`
	MaxOrphanPercent               float64 `yaml:"max_orphan_percent"`
	MaxRejectedPercent             float64 `yaml:"max_rejected_percent"`
	MaxUnknownContigFeaturePercent float64 `yaml:"max_unknown_contig_feature_percent"`
	MaxDuplicateGeneIDEvents       int64   `yaml:"max_duplicate_gene_id_events"`
	MaxMissingParents              int64   `yaml:"max_missing_parents"`
}

// LoadThresholds parses a YAML thresholds document, per the §4.G QC rules.
func LoadThresholds(raw []byte) (Thresholds, error) {
	var t Thresholds
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Thresholds{}, atlaserr.Wrap(atlaserr.Validation, "parsing QC thresholds", err)
	}
	return t, nil
}

// CheckQC implements the §4.G QC threshold rules in full. It returns the
// first rule violated, or nil when the report satisfies every threshold.
func CheckQC(report QCReport, thresholds Thresholds) error {
	if report.Genes < thresholds.MinGeneCount {
		return atlaserr.New(atlaserr.Validation, "genes below min_gene_count")
	}

	orphanPercent := 0.0
	if report.Transcripts != 0 {
		orphanPercent = float64(report.OrphanTranscripts) / float64(report.Transcripts) * 100
	}
	if orphanPercent > thresholds.MaxOrphanPercent {
		return atlaserr.New(atlaserr.Validation, "orphan transcript percent exceeds max_orphan_percent")
	}

	rejectedPercent := 0.0
	if report.TotalFeatures != 0 {
		rejectedPercent = float64(report.RejectedSum) / float64(report.TotalFeatures) * 100
	}
	if rejectedPercent > thresholds.MaxRejectedPercent {
		return atlaserr.New(atlaserr.Validation, "rejected feature percent exceeds max_rejected_percent")
	}

	if report.UnknownContigFeatureRatio*100 > thresholds.MaxUnknownContigFeaturePercent {
		return atlaserr.New(atlaserr.Validation, "unknown-contig feature ratio exceeds max_unknown_contig_feature_percent")
	}

	if report.DuplicateGeneIDEvents > thresholds.MaxDuplicateGeneIDEvents {
		return atlaserr.New(atlaserr.Validation, "duplicate gene_id events exceed max_duplicate_gene_id_events")
	}

	return nil
}
