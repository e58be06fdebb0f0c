/*
Package atlas is Atlas's public service surface (§4.I): the six entry
points a host (HTTP handler, gRPC service, CLI) calls against, each a
thin, synchronous wrapper over pkg/query plus the suspension points
pkg/cache and pkg/catalog own:

  - query_genes
  - query_gene_by_id_fast
  - classify_query
  - estimate_work_units
  - explain_query_plan
  - query_normalization_hash

ServiceContext is the top-level value a process constructs once at
startup and holds for its lifetime: the cursor secret, the cache
manager, and the federated catalog resolver, per SPEC_FULL.md's
resolution of the §9 Design Note ("model both as values owned by a
top-level service context"). Every entry point is a ServiceContext
method. The three that touch data (query_genes, query_gene_by_id_fast,
explain_query_plan) also take a DatasetId naming which dataset to query;
ServiceContext resolves it to a pooled, read-only connection via
pkg/cache.Manager.OpenDatasetConnection before delegating to pkg/query.
classify_query, estimate_work_units and query_normalization_hash are
pure functions of the request and take no DatasetId.
*/
package atlas
