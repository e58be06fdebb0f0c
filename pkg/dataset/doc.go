/*
Package dataset defines Atlas's dataset identity and artifact model: the
DatasetId triple, the on-disk artifact layout derived from it, the
publishable manifest, the manifest lock that binds manifest to database
bytes, and the Merkle-based dataset signature.

# Architecture

A dataset is the immutable tuple (release, species, assembly) plus the
frozen set of artifact files an ingest run produced for it:

	┌────────────────────── DATASET IDENTITY ───────────────────────┐
	│                                                                  │
	│  DatasetId{Release, Species, Assembly}                          │
	│       │                                                         │
	│       ▼                                                         │
	│  ArtifactPaths (pure function of root + DatasetId)             │
	│       │                                                         │
	│       ├── sequence.fa / sequence.fa.fai / features.gff3         │
	│       ├── dataset.db            (embedded relational DB)       │
	│       ├── manifest.json         (ArtifactManifest)              │
	│       └── derived/                                              │
	│            ├── manifest.lock    (ManifestLock)                  │
	│            ├── qc.json                                          │
	│            ├── anomaly.json                                    │
	│            └── catalog_shards.json                              │
	└──────────────────────────────────────────────────────────────┘

Nothing in this package performs I/O: ArtifactPaths is computed purely from
a root directory and a DatasetId, and manifest/lock validation operate only
on already-read byte slices and structs. Reading and writing the files
named here is the job of pkg/catalog (the content-addressed store),
pkg/cache, and cmd/atlas-publish; pkg/gate validates bytes its caller
has already read.

# Strict validation

ArtifactManifest.ValidateStrict enforces every field spec.md §4.B names and
collects every failure it finds in one pass, rather than stopping at the
first — ingest tooling that calls this directly wants the full list, not
one failure at a time.

# Dataset signature

DatasetSignature is a Merkle root over canonically-serialized gene and
transcript rows, combined with the row counts, and hashed again. It is the
one digest in the manifest that cannot be recomputed from file bytes
alone — it binds the *semantic content* of the embedded database to the
manifest, independent of incidental encoding differences (page layout,
index order) between two databases that hold the same rows.
*/
package dataset
