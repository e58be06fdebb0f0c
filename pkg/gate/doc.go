/*
Package gate implements Atlas's three-layer publish/validate gate (§4.G):

  - Validate (shallow) — the manifest parses and strictly validates, the
    DB file begins with the SQLite magic header, the DB bytes hash to
    checksums.sqlite_sha256, gene_count > 0, the DB's required indexes
    exist, the QC report satisfies configured thresholds, and the shard
    catalog is sorted. The sequence, sequence index, and feature files
    are not part of Artifact, so their checksums are not compared here.
  - Verify (deep) — everything Validate checks, plus the manifest lock
    validates against the manifest and DB bytes and the recomputed
    dataset signature matches manifest.dataset_signature_sha256.
  - PublishGates — the final admission thresholds: gene_count,
    missing_parents, required indexes, and QC thresholds.

Publishing itself — the content-addressed Put that rejects a conflicting
republish — lives in pkg/catalog/store.go, not here: pkg/gate only reads
and validates, it never owns the write path. The dependency always runs
gate -> catalog, never the reverse.
*/
package gate
