/*
Package embedded implements Atlas's embedded-database writer contract: the
exact schema, index set, and plan-probe gate that every dataset.db (and
every shard database under derived/) must satisfy before pkg/gate will
admit it for publish.

The package is built on modernc.org/sqlite, a pure-Go SQLite — no cgo, so
the same binary that writes a dataset.db at ingest time is the same binary
the cache manager later mounts read-only, with no platform-specific
driver to mismatch.

# Schema

Two summary tables, one stats table, and two metadata tables:

  - gene_summary: one row per gene, with a covering index for gene_id,
    normalized name, and biotype lookups, plus an R-tree virtual table
    (gene_region_rtree) for region overlap queries.
  - transcript_summary: one row per transcript, indexed by gene_id and by
    transcript_id.
  - dataset_stats: the distinct (dimension, value) -> count rows the query
    planner's fast-fail existence checks and the publish gate's QC
    thresholds both read.
  - schema_version, atlas_meta: ingest-time bookkeeping.

# Plan-probe gate

After the bulk load commits, the writer runs EXPLAIN QUERY PLAN against
the same region-overlap query the query planner will later issue, and
BulkLoad returns an error unless the plan shows the R-tree index in use.
The committed rows are not removed from the file when the probe fails. This is the ingest-time guarantee
pkg/query's own plan verification relies on at serve time — if ingest
ever accepted a database without the spatial index, no amount of serve-
time checking would save it.
*/
package embedded
