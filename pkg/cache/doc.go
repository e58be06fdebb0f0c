/*
Package cache implements Atlas's dataset cache manager (§4.F): the
parallel, cooperatively-scheduled layer between the federated catalog
resolver and the query planner.

Manager.OpenDatasetConnection implements the §4.F.1 open contract: a
cache hit returns a pooled handle immediately; a miss elects a
single-flight leader (golang.org/x/sync/singleflight) that fetches the
manifest and DB bytes from the catalog resolver, validates them,
writes them atomically to disk_root, opens a read-only handle with the
enforced query_only=1/synchronous=0/temp_store=MEMORY profile
(pkg/embedded.OpenReadOnly), and registers the entry; concurrent
callers for the same DatasetId wait on the same leader rather than
each downloading independently.

The connection pool bounds concurrency with two
golang.org/x/sync/semaphore weighted semaphores: one global
(max_total_connections) and one per dataset (max_connections_per_dataset).

Entry bookkeeping — digests, pin state, last-access time — is written
to a go.etcd.io/bbolt metastore when a dataset is mounted or its pin
state changes, and deleted on eviction. NewManager does not read these
records back: a new Manager starts with no mounted entries, no pins and
an empty recency order. Eviction ordering uses
github.com/hashicorp/golang-lru/v2/simplelru as a pure recency
structure; pinned datasets are filtered out of the eviction candidate
list before any pop, so the LRU itself never has to special-case
pinning.

Re-verification (§4.F.3), eviction (§4.F.4), warm-up (§4.F.5), open
timeouts (§4.F.6), and the cache failure taxonomy (§4.F.7, built on
pkg/atlaserr) are implemented exactly as specified.
*/
package cache
