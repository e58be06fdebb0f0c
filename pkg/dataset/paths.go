package dataset

import "path/filepath"

// ArtifactPaths names every file that makes up one published dataset
// version, derived purely from a root directory and a DatasetId. No I/O
// is performed; the files may or may not exist yet.
type ArtifactPaths struct {
	Root     string
	DatasetDir string

	SourceArchive string // features.gff3
	SequenceArchive string // sequence.fa
	SequenceIndex string // sequence.fa.fai
	EmbeddedDB    string // dataset.db
	ManifestJSON  string // manifest.json

	DerivedDir      string
	ManifestLock    string // derived/manifest.lock
	ShardCatalog    string // derived/catalog_shards.json
	QCReport        string // derived/qc.json
	AnomalyReport   string // derived/anomaly.json
}

// NewArtifactPaths computes the on-disk layout for id rooted at root,
// following the §6.1 layout:
//
//	<root>/<release>/<species>/<assembly>/
//	  manifest.json
//	  sequence.fa
//	  sequence.fa.fai
//	  features.gff3
//	  dataset.db
//	  derived/
//	    manifest.lock
//	    qc.json
//	    anomaly.json
//	    catalog_shards.json
func NewArtifactPaths(root string, id DatasetId) ArtifactPaths {
	dir := filepath.Join(root, id.Release, id.Species, id.Assembly)
	derived := filepath.Join(dir, "derived")
	return ArtifactPaths{
		Root:       root,
		DatasetDir: dir,

		SourceArchive:   filepath.Join(dir, "features.gff3"),
		SequenceArchive: filepath.Join(dir, "sequence.fa"),
		SequenceIndex:   filepath.Join(dir, "sequence.fa.fai"),
		EmbeddedDB:      filepath.Join(dir, "dataset.db"),
		ManifestJSON:    filepath.Join(dir, "manifest.json"),

		DerivedDir:    derived,
		ManifestLock:  filepath.Join(derived, "manifest.lock"),
		ShardCatalog:  filepath.Join(derived, "catalog_shards.json"),
		QCReport:      filepath.Join(derived, "qc.json"),
		AnomalyReport: filepath.Join(derived, "anomaly.json"),
	}
}

// ShardPath returns the path of a shard's own embedded DB file, named
// derived/gene_summary.<shard>.db.
func (p ArtifactPaths) ShardPath(shardName string) string {
	return filepath.Join(p.DerivedDir, "gene_summary."+shardName+".db")
}
