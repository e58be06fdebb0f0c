package embedded

// SchemaVersion is the schema version Atlas's query planner is built
// against. The writer records it in the schema_version table; pkg/gate
// does not read that table or compare it against this constant.
const SchemaVersion = 1

// Required index names. pkg/gate checks for the literal presence of each
// of these in sqlite_master before a dataset is admitted.
const (
	IndexGeneID       = "idx_gene_id"
	IndexGeneNameNorm = "idx_gene_name_norm"
	IndexGeneBiotype  = "idx_gene_biotype"
	IndexTranscriptGeneID = "idx_transcript_gene_id"
	IndexTranscriptID     = "idx_transcript_id"

	// SpatialRtreeTable is the virtual table name the region-overlap
	// query plan must reference.
	SpatialRtreeTable = "gene_region_rtree"
)

// schemaDDL is executed, statement by statement, against a freshly created
// database file before any rows are loaded.
var schemaDDL = []string{
	`CREATE TABLE gene_summary (
		gene_id    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		name_norm  TEXT NOT NULL,
		biotype    TEXT NOT NULL,
		seqid      TEXT NOT NULL,
		start      INTEGER NOT NULL,
		end        INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX idx_gene_id ON gene_summary(gene_id)`,
	`CREATE INDEX idx_gene_name_norm ON gene_summary(name_norm)`,
	`CREATE INDEX idx_gene_biotype ON gene_summary(biotype)`,

	`CREATE TABLE seqid_map (
		seqid    TEXT PRIMARY KEY,
		seqid_id INTEGER UNIQUE NOT NULL
	)`,

	`CREATE VIRTUAL TABLE gene_region_rtree USING rtree(
		id,
		min_pos, max_pos,
		+seqid_id INTEGER,
		+gene_id TEXT
	)`,

	`CREATE TABLE transcript_summary (
		transcript_id  TEXT PRIMARY KEY,
		gene_id        TEXT NOT NULL,
		name           TEXT NOT NULL,
		biotype        TEXT NOT NULL,
		seqid          TEXT NOT NULL,
		start          INTEGER NOT NULL,
		end            INTEGER NOT NULL,
		parent_gene_id TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX idx_transcript_id ON transcript_summary(transcript_id)`,
	`CREATE INDEX idx_transcript_gene_id ON transcript_summary(gene_id)`,

	`CREATE TABLE dataset_stats (
		dimension TEXT NOT NULL,
		value     TEXT NOT NULL,
		count     INTEGER NOT NULL,
		PRIMARY KEY (dimension, value)
	)`,

	`CREATE TABLE schema_version (version INTEGER NOT NULL)`,
	`CREATE TABLE atlas_meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
}

// writePragmas are applied to a freshly opened writer connection. They
// favor throughput during bulk load; pkg/cache applies a different,
// read-only profile when mounting the finished file for serving.
var writePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}
