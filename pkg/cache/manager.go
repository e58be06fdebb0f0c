package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/canon"
	"github.com/bijux/atlas/pkg/dataset"
	"github.com/bijux/atlas/pkg/embedded"
	"github.com/bijux/atlas/pkg/log"
)

// lruCapacity bounds simplelru's internal bookkeeping, not the cache
// itself — Manager enforces max_dataset_count/max_disk_bytes on its own
// terms in evictIfOverBudget. The LRU here is consulted purely for
// recency ordering, so its capacity only needs to exceed any realistic
// dataset count.
const lruCapacity = 1 << 20

// DatasetSource is the subset of pkg/catalog.Resolver the cache manager
// depends on: fetching a dataset's manifest and DB bytes by id. Declared
// as an interface here, rather than importing *catalog.Resolver
// directly, so unit tests can substitute a fake without standing up a
// real federated resolver.
type DatasetSource interface {
	FetchManifest(ctx context.Context, id dataset.DatasetId) ([]byte, error)
	FetchDBBytes(ctx context.Context, id dataset.DatasetId) ([]byte, error)
}

// Config holds the cache manager's tunables, all sourced from
// pkg/config's environment loader.
type Config struct {
	DiskRoot                 string
	MaxTotalConnections      int64
	MaxConnectionsPerDataset int64
	MaxDatasetCount          int
	MaxDiskBytes             int64
	DatasetOpenTimeout       time.Duration
	CachedOnlyMode           bool
}

// Manager is Atlas's dataset cache manager (§4.F). One Manager owns one
// disk_root, one metastore, and every currently-mounted dataset
// connection pool.
type Manager struct {
	cfg      Config
	source   DatasetSource
	meta     *Metastore
	recorder Recorder

	mu      sync.Mutex
	entries map[string]*entryState
	lru     *lru.LRU[string, struct{}]

	sf        singleflight.Group
	globalSem *semaphore.Weighted
}

// Recorder receives cache occupancy events as they happen. pkg/metrics
// implements this against its Prometheus counters/histogram; declaring
// it here, rather than importing pkg/metrics directly, keeps pkg/cache
// free of a dependency edge back to the package that already imports it
// for Collector's periodic gauge sampling.
type Recorder interface {
	CacheHit()
	CacheMiss()
	CacheEviction(reason string)
	CacheLoadDuration(d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) CacheHit()                         {}
func (noopRecorder) CacheMiss()                        {}
func (noopRecorder) CacheEviction(reason string)       {}
func (noopRecorder) CacheLoadDuration(d time.Duration) {}

// NewManager constructs a Manager rooted at cfg.DiskRoot, opening (or
// creating) its bbolt metastore.
func NewManager(cfg Config, source DatasetSource) (*Manager, error) {
	if err := os.MkdirAll(cfg.DiskRoot, 0o755); err != nil {
		return nil, atlaserr.Wrap(atlaserr.StoreError, "creating cache disk_root", err)
	}
	meta, err := OpenMetastore(cfg.DiskRoot)
	if err != nil {
		return nil, err
	}
	l, err := lru.NewLRU[string, struct{}](lruCapacity, nil)
	if err != nil {
		meta.Close()
		return nil, atlaserr.Wrap(atlaserr.StoreError, "constructing cache LRU", err)
	}
	return &Manager{
		cfg:       cfg,
		source:    source,
		meta:      meta,
		recorder:  noopRecorder{},
		entries:   map[string]*entryState{},
		lru:       l,
		globalSem: semaphore.NewWeighted(cfg.MaxTotalConnections),
	}, nil
}

// SetRecorder installs r to receive cache occupancy events from this
// point on. Called once at startup by metrics.NewCollector; unset, a Manager
// records nothing and behaves exactly as before.
func (m *Manager) SetRecorder(r Recorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorder = r
}

// Close closes every mounted DB handle and the metastore. It does not
// remove any on-disk file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for _, st := range m.entries {
		if err := st.pool.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.entries = map[string]*entryState{}
	if err := m.meta.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// OpenDatasetConnection implements the §4.F.1 open contract.
func (m *Manager) OpenDatasetConnection(ctx context.Context, id dataset.DatasetId) (*Handle, error) {
	if err := id.Validate(); err != nil {
		return nil, atlaserr.Wrap(atlaserr.Validation, "opening dataset connection", err)
	}

	openCtx := ctx
	if m.cfg.DatasetOpenTimeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, m.cfg.DatasetOpenTimeout)
		defer cancel()
	}

	key := id.String()

	m.mu.Lock()
	st, ok := m.entries[key]
	m.mu.Unlock()
	if ok {
		m.recorder.CacheHit()
		h, err := st.pool.acquire(openCtx)
		if err != nil {
			return nil, classifyOpenError(openCtx, err)
		}
		m.touch(key)
		return h, nil
	}

	m.recorder.CacheMiss()
	if m.cfg.CachedOnlyMode {
		return nil, atlaserr.New(atlaserr.CachedOnlyMiss, "dataset not cached and cached_only_mode is enabled: "+key)
	}

	loadStart := time.Now()
	v, err, _ := m.sf.Do(key, func() (any, error) {
		return m.loadDataset(openCtx, id)
	})
	m.recorder.CacheLoadDuration(time.Since(loadStart))
	if err != nil {
		return nil, classifyOpenError(openCtx, err)
	}
	st = v.(*entryState)

	h, err := st.pool.acquire(openCtx)
	if err != nil {
		return nil, classifyOpenError(openCtx, err)
	}
	m.touch(key)
	return h, nil
}

// classifyOpenError promotes a context-deadline failure to the §4.F.6
// Timeout kind, unless the failure already carries the more specific
// PoolSaturated kind from pool.acquire — a saturated pool and an
// expired open budget are the same underlying ctx.Err() but distinct
// failure modes.
func classifyOpenError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded && !atlaserr.Is(err, atlaserr.PoolSaturated) {
		return atlaserr.WrapRetryable(atlaserr.Timeout, "dataset_open_timeout exceeded", err)
	}
	return err
}

func (m *Manager) touch(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Add(key, struct{}{})
}

// loadDataset is the single-flight leader's body: fetch, validate,
// verify, write atomically, open read-only, register. Exactly one of
// these runs per DatasetId at a time, by construction of singleflight.Group.
func (m *Manager) loadDataset(ctx context.Context, id dataset.DatasetId) (*entryState, error) {
	dlog := log.WithDataset(id.Release, id.Species, id.Assembly)
	dlog.Debug().Msg("cache miss, fetching dataset from source")

	manifestBytes, err := m.source.FetchManifest(ctx, id)
	if err != nil {
		dlog.Error().Err(err).Msg("fetching manifest failed")
		return nil, err
	}
	if len(manifestBytes) == 0 {
		return nil, atlaserr.New(atlaserr.NotFound, "dataset not found in any registry: "+id.String())
	}

	var manifest dataset.ArtifactManifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, atlaserr.Wrap(atlaserr.Validation, "parsing fetched manifest", err)
	}
	if err := manifest.ValidateStrict(id); err != nil {
		return nil, err
	}

	dbBytes, err := m.source.FetchDBBytes(ctx, id)
	if err != nil {
		return nil, err
	}
	gotDigest := canon.SHA256Hex(dbBytes)
	if gotDigest != manifest.Checksums.SqliteSHA256 {
		return nil, atlaserr.New(atlaserr.IntegrityFailure, "fetched database bytes do not match manifest checksums.sqlite_sha256")
	}

	dir := datasetDir(m.cfg.DiskRoot, id)
	manifestPath := filepath.Join(dir, "manifest.json")
	dbPath := filepath.Join(dir, "dataset.db")
	if err := writeAtomic(manifestPath, manifestBytes); err != nil {
		return nil, err
	}
	if err := writeAtomic(dbPath, dbBytes); err != nil {
		return nil, err
	}

	db, err := embedded.OpenReadOnly(dbPath)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.StoreError, "opening newly cached dataset read-only", err)
	}

	st := &entryState{
		id:             id,
		manifest:       &manifest,
		manifestDigest: canon.SHA256Hex(manifestBytes),
		sqliteDigest:   gotDigest,
		sizeBytes:      int64(len(manifestBytes) + len(dbBytes)),
		dir:            dir,
		manifestPath:   manifestPath,
		dbPath:         dbPath,
		pool:           newPool(db, m.globalSem, m.cfg.MaxConnectionsPerDataset),
	}

	m.mu.Lock()
	m.entries[id.String()] = st
	m.lru.Add(id.String(), struct{}{})
	m.mu.Unlock()

	_ = m.meta.Put(id, EntryRecord{
		ManifestSHA256: st.manifestDigest,
		SqliteSHA256:   st.sqliteDigest,
		SizeBytes:      st.sizeBytes,
		LastAccessUnix: time.Now().Unix(),
	})

	m.evictIfOverBudget()
	dlog.Info().Int64("size_bytes", st.sizeBytes).Msg("dataset mounted")

	return st, nil
}

// Stats is a point-in-time snapshot of the cache's occupancy, for
// pkg/metrics' periodic collector.
type Stats struct {
	DatasetsTotal int
	BytesTotal    int64
}

// Stats returns the current dataset count and total on-disk bytes held
// by mounted entries.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	s.DatasetsTotal = len(m.entries)
	for _, st := range m.entries {
		s.BytesTotal += st.sizeBytes
	}
	return s
}

// Pin marks id as pinned, exempting it from eviction until Unpin.
func (m *Manager) Pin(id dataset.DatasetId) error {
	return m.setPinned(id, true)
}

// Unpin clears id's pinned flag, making it eligible for eviction again.
func (m *Manager) Unpin(id dataset.DatasetId) error {
	return m.setPinned(id, false)
}

func (m *Manager) setPinned(id dataset.DatasetId, pinned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.entries[id.String()]
	if !ok {
		return atlaserr.New(atlaserr.NotFound, "dataset not cached: "+id.String())
	}
	st.pinned = pinned
	return m.meta.Put(id, EntryRecord{
		ManifestSHA256: st.manifestDigest,
		SqliteSHA256:   st.sqliteDigest,
		Pinned:         pinned,
		SizeBytes:      st.sizeBytes,
		LastAccessUnix: time.Now().Unix(),
	})
}

// evictIfOverBudget implements §4.F.4: when the dataset-count or
// disk-bytes budget is exceeded, evict unpinned entries
// least-recently-used first until back under budget. Pinned entries are
// filtered out of the candidate list, never popped.
func (m *Manager) evictIfOverBudget() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxDatasetCount <= 0 && m.cfg.MaxDiskBytes <= 0 {
		return
	}

	var total int64
	for _, st := range m.entries {
		total += st.sizeBytes
	}

	for _, key := range m.lru.Keys() {
		overCount := m.cfg.MaxDatasetCount > 0 && len(m.entries) > m.cfg.MaxDatasetCount
		overBytes := m.cfg.MaxDiskBytes > 0 && total > m.cfg.MaxDiskBytes
		if !overCount && !overBytes {
			return
		}
		st, ok := m.entries[key]
		if !ok || st.pinned {
			continue
		}
		total -= st.sizeBytes
		m.evictLocked(key, st, "budget")
	}
}

// evictLocked removes an entry's in-memory state, closes its pool, and
// deletes its on-disk directory. Callers must hold m.mu. reason labels
// the atlas_cache_evictions_total counter ("budget" or "corruption").
func (m *Manager) evictLocked(key string, st *entryState, reason string) {
	delete(m.entries, key)
	m.lru.Remove(key)
	st.pool.close()
	os.RemoveAll(st.dir)
	_ = m.meta.Delete(st.id)
	m.recorder.CacheEviction(reason)
}

// evictEntry is evictLocked for a caller not already holding m.mu.
func (m *Manager) evictEntry(key, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.entries[key]
	if !ok {
		return
	}
	m.evictLocked(key, st, reason)
}

// ReverifyCachedDatasets implements §4.F.3: re-read manifest and DB from
// disk for every cached entry, recompute SHA-256, and compare to the
// digest recorded at registration. A mismatch evicts the entry (all pool
// handles with it); the next open re-fetches from the resolver.
func (m *Manager) ReverifyCachedDatasets(ctx context.Context) []error {
	m.mu.Lock()
	snapshot := make(map[string]*entryState, len(m.entries))
	for k, st := range m.entries {
		snapshot[k] = st
	}
	m.mu.Unlock()

	var errs []error
	for key, st := range snapshot {
		select {
		case <-ctx.Done():
			errs = append(errs, atlaserr.Wrap(atlaserr.Timeout, "reverify_cached_datasets cancelled", ctx.Err()))
			return errs
		default:
		}

		manifestBytes, err := os.ReadFile(st.manifestPath)
		if err != nil {
			errs = append(errs, atlaserr.Wrap(atlaserr.IntegrityFailure, "reverify: reading manifest for "+key, err))
			m.evictEntry(key, "corruption")
			continue
		}
		dbBytes, err := os.ReadFile(st.dbPath)
		if err != nil {
			errs = append(errs, atlaserr.Wrap(atlaserr.IntegrityFailure, "reverify: reading database for "+key, err))
			m.evictEntry(key, "corruption")
			continue
		}

		if canon.SHA256Hex(manifestBytes) != st.manifestDigest || canon.SHA256Hex(dbBytes) != st.sqliteDigest {
			errs = append(errs, atlaserr.New(atlaserr.IntegrityFailure, "reverify: on-disk bytes no longer match recorded digest for "+key))
			m.evictEntry(key, "corruption")
		}
	}
	return errs
}

// WarmupResult records which datasets a startup warm-up pass failed to
// open, keyed by DatasetId string form.
type WarmupResult struct {
	Failed map[string]error
}

// StartupWarmup implements §4.F.5. Every id in ids is opened (and
// immediately released); failures are always recorded per-dataset. If
// failReadinessOnMissing is set and any open failed, the aggregate error
// is also returned so the caller can report itself unready; otherwise
// warm-up always completes best-effort.
func (m *Manager) StartupWarmup(ctx context.Context, ids []dataset.DatasetId, failReadinessOnMissing bool) (WarmupResult, error) {
	result := WarmupResult{Failed: map[string]error{}}
	for _, id := range ids {
		h, err := m.OpenDatasetConnection(ctx, id)
		if err != nil {
			result.Failed[id.String()] = err
			continue
		}
		h.Release()
	}
	if len(result.Failed) > 0 && failReadinessOnMissing {
		return result, atlaserr.New(atlaserr.Upstream, fmt.Sprintf("warm-up failed for %d dataset(s)", len(result.Failed)))
	}
	return result, nil
}
