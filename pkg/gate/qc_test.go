package gate

import (
	"testing"

	"github.com/bijux/atlas/pkg/atlaserr"
)

func defaultThresholds() Thresholds {
	return Thresholds{
		MinGeneCount:                   1,
		MaxOrphanPercent:               5,
		MaxRejectedPercent:             2,
		MaxUnknownContigFeaturePercent: 1,
		MaxDuplicateGeneIDEvents:       0,
		MaxMissingParents:              0,
	}
}

func TestCheckQCAcceptsWithinThresholds(t *testing.T) {
	report := QCReport{
		Genes:                     100,
		Transcripts:               200,
		OrphanTranscripts:         2,
		RejectedSum:               1,
		TotalFeatures:             1000,
		UnknownContigFeatureRatio: 0.001,
		DuplicateGeneIDEvents:     0,
	}
	if err := CheckQC(report, defaultThresholds()); err != nil {
		t.Fatalf("CheckQC() error = %v, want nil", err)
	}
}

func TestCheckQCRejectsBelowMinGeneCount(t *testing.T) {
	report := QCReport{Genes: 0, Transcripts: 10, TotalFeatures: 10}
	err := CheckQC(report, defaultThresholds())
	if !atlaserr.Is(err, atlaserr.Validation) {
		t.Fatalf("CheckQC() error = %v, want Validation", err)
	}
}

func TestCheckQCHandlesZeroTranscriptsAsZeroOrphanPercent(t *testing.T) {
	report := QCReport{Genes: 10, Transcripts: 0, OrphanTranscripts: 0, TotalFeatures: 10}
	if err := CheckQC(report, defaultThresholds()); err != nil {
		t.Fatalf("CheckQC() error = %v, want nil (0/0 orphan percent)", err)
	}
}

func TestCheckQCRejectsOrphanPercentOverThreshold(t *testing.T) {
	report := QCReport{Genes: 10, Transcripts: 100, OrphanTranscripts: 50, TotalFeatures: 10}
	err := CheckQC(report, defaultThresholds())
	if !atlaserr.Is(err, atlaserr.Validation) {
		t.Fatalf("CheckQC() error = %v, want Validation", err)
	}
}

func TestLoadThresholdsParsesYAML(t *testing.T) {
	yamlDoc := []byte(`
min_gene_count: 500
max_orphan_percent: 3.5
max_rejected_percent: 1.0
max_unknown_contig_feature_percent: 0.5
max_duplicate_gene_id_events: 0
max_missing_parents: 10
`)
	thresholds, err := LoadThresholds(yamlDoc)
	if err != nil {
		t.Fatalf("LoadThresholds() error = %v", err)
	}
	if thresholds.MinGeneCount != 500 {
		t.Errorf("MinGeneCount = %d, want 500", thresholds.MinGeneCount)
	}
	if thresholds.MaxMissingParents != 10 {
		t.Errorf("MaxMissingParents = %d, want 10", thresholds.MaxMissingParents)
	}
}
