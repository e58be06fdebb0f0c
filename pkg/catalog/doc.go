/*
Package catalog implements two related views of what datasets exist:

The federated resolver (§4.E) merges an ordered list of RegistrySource
catalogs into one deterministic view, tracking per-source health, ETags,
and which source "owns" (is primary for) each DatasetId so that
per-dataset fetches try the right source first.

The shard index (§4.H) partitions a single dataset's rows into per-contig
or hash-bucketed shard files, each content-hashed and recorded in a
canonical ShardCatalog that is sorted on write and validated as sorted on
read.

Both views end at Store, the content-addressed publish boundary: Put
rejects republishing a DatasetId under different bytes with a Conflict
error rather than silently overwriting a previously published artifact.
*/
package catalog
