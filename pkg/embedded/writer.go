package embedded

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// GeneRecord is one row the writer inserts into gene_summary.
type GeneRecord struct {
	GeneID  string
	Name    string
	Biotype string
	Seqid   string
	Start   int64
	End     int64
}

// TranscriptRecord is one row the writer inserts into transcript_summary.
type TranscriptRecord struct {
	TranscriptID string
	GeneID       string
	Name         string
	Biotype      string
	Seqid        string
	Start        int64
	End          int64
	ParentGeneID string
}

// NameNorm is the normalization rule recorded as the derived-column
// origin for gene_summary.name_norm: lowercase, trimmed.
func NameNorm(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Writer produces a single embedded-database file satisfying the schema
// and index contract of 4.C.
type Writer struct {
	db   *sql.DB
	path string
}

// Create opens (creating if necessary) a fresh database file at path and
// applies the write-time pragma profile. The caller must not have
// published path yet — Create truncates any existing file, so it must
// only ever be called against a scratch path, never a live dataset.db.
func Create(path string) (*Writer, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("embedded: removing stale file: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("embedded: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range writePragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("embedded: %s: %w", pragma, err)
		}
	}

	return &Writer{db: db, path: path}, nil
}

// Close closes the writer's connection without deleting the file.
func (w *Writer) Close() error {
	return w.db.Close()
}

// BulkLoad creates the schema, inserts every gene and transcript row, and
// derives seqid_map/rtree/dataset_stats/atlas_meta inside one
// transaction; after that transaction commits it runs the plan-probe
// gate. meta carries ingest-time tuning values (e.g.
// "ingest_tool_version") recorded verbatim into atlas_meta.
func (w *Writer) BulkLoad(ctx context.Context, genes []GeneRecord, transcripts []TranscriptRecord, meta map[string]string) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("embedded: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range schemaDDL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("embedded: schema: %w", err)
		}
	}

	seqidIDs, err := insertSeqids(ctx, tx, genes, transcripts)
	if err != nil {
		return err
	}

	if err := insertGenes(ctx, tx, genes, seqidIDs); err != nil {
		return err
	}
	if err := insertTranscripts(ctx, tx, transcripts); err != nil {
		return err
	}
	if err := insertStats(ctx, tx, genes, transcripts); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version(version) VALUES (?)`, SchemaVersion); err != nil {
		return fmt.Errorf("embedded: schema_version: %w", err)
	}

	metaKV := map[string]string{
		"gene_count":       fmt.Sprintf("%d", len(genes)),
		"transcript_count": fmt.Sprintf("%d", len(transcripts)),
	}
	for k, v := range meta {
		metaKV[k] = v
	}
	for k, v := range metaKV {
		if _, err := tx.ExecContext(ctx, `INSERT INTO atlas_meta(key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("embedded: atlas_meta: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("embedded: commit: %w", err)
	}

	return w.probeSpatialPlan(ctx)
}

func insertSeqids(ctx context.Context, tx *sql.Tx, genes []GeneRecord, transcripts []TranscriptRecord) (map[string]int64, error) {
	seen := map[string]struct{}{}
	for _, g := range genes {
		seen[g.Seqid] = struct{}{}
	}
	for _, t := range transcripts {
		seen[t.Seqid] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for s := range seen {
		names = append(names, s)
	}
	sort.Strings(names)

	ids := make(map[string]int64, len(names))
	for i, name := range names {
		id := int64(i + 1)
		if _, err := tx.ExecContext(ctx, `INSERT INTO seqid_map(seqid, seqid_id) VALUES (?, ?)`, name, id); err != nil {
			return nil, fmt.Errorf("embedded: seqid_map: %w", err)
		}
		ids[name] = id
	}
	return ids, nil
}

func insertGenes(ctx context.Context, tx *sql.Tx, genes []GeneRecord, seqidIDs map[string]int64) error {
	for i, g := range genes {
		rowid := int64(i + 1)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gene_summary(rowid, gene_id, name, name_norm, biotype, seqid, start, end) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rowid, g.GeneID, g.Name, NameNorm(g.Name), g.Biotype, g.Seqid, g.Start, g.End,
		); err != nil {
			return fmt.Errorf("embedded: gene_summary: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gene_region_rtree(id, min_pos, max_pos, seqid_id, gene_id) VALUES (?, ?, ?, ?, ?)`,
			rowid, g.Start, g.End, seqidIDs[g.Seqid], g.GeneID,
		); err != nil {
			return fmt.Errorf("embedded: gene_region_rtree: %w", err)
		}
	}
	return nil
}

func insertTranscripts(ctx context.Context, tx *sql.Tx, transcripts []TranscriptRecord) error {
	for _, t := range transcripts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transcript_summary(transcript_id, gene_id, name, biotype, seqid, start, end, parent_gene_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.TranscriptID, t.GeneID, t.Name, t.Biotype, t.Seqid, t.Start, t.End, t.ParentGeneID,
		); err != nil {
			return fmt.Errorf("embedded: transcript_summary: %w", err)
		}
	}
	return nil
}

func insertStats(ctx context.Context, tx *sql.Tx, genes []GeneRecord, transcripts []TranscriptRecord) error {
	biotypes := map[string]int64{}
	seqids := map[string]int64{}
	for _, g := range genes {
		biotypes[g.Biotype]++
		seqids[g.Seqid]++
	}
	for _, t := range transcripts {
		seqids[t.Seqid]++
	}

	insert := func(dimension string, counts map[string]int64) error {
		for value, count := range counts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO dataset_stats(dimension, value, count) VALUES (?, ?, ?)`,
				dimension, value, count,
			); err != nil {
				return fmt.Errorf("embedded: dataset_stats(%s): %w", dimension, err)
			}
		}
		return nil
	}

	if err := insert("biotype", biotypes); err != nil {
		return err
	}
	return insert("seqid", seqids)
}

// probeSpatialPlan runs the same region-overlap query the query planner
// issues at serve time and returns an error unless the plan uses the
// spatial index. It runs after BulkLoad's commit, so a failing probe
// leaves the loaded rows in the file; BulkLoad's error is the signal.
func (w *Writer) probeSpatialPlan(ctx context.Context) error {
	lines, err := Explain(ctx, w.db,
		`SELECT g.gene_id FROM gene_region_rtree r JOIN gene_summary g ON g.rowid = r.id
		 WHERE r.seqid_id = ? AND r.max_pos >= ? AND r.min_pos <= ?`,
		1, 0, 1,
	)
	if err != nil {
		return fmt.Errorf("embedded: plan probe: %w", err)
	}
	if !UsesSpatialIndex(lines) {
		return fmt.Errorf("embedded: plan probe failed: spatial index %s not used, plan: %v", SpatialRtreeTable, SortedDetails(lines))
	}
	return nil
}
