package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/canon"
	"github.com/bijux/atlas/pkg/dataset"
	"github.com/bijux/atlas/pkg/log"
)

// Resolver merges an ordered list of RegistrySource catalogs into one
// deterministic view, per §4.E. Sources are tried in the order they were
// given to New; that order also determines which source is primary for a
// DatasetId on a collision.
type Resolver struct {
	mu      sync.Mutex
	sources []RegistrySource
	states  map[string]*SourceState

	// primary records, per canonical DatasetId string, the name of the
	// first source that owned it in the most recent merge.
	primary map[string]string
}

// New builds a Resolver over sources, in priority order.
func New(sources []RegistrySource) *Resolver {
	states := make(map[string]*SourceState, len(sources))
	for _, s := range sources {
		states[s.Name()] = &SourceState{
			Name:       s.Name(),
			Priority:   s.Priority(),
			TTLSeconds: int(s.TTL().Seconds()),
		}
	}
	return &Resolver{sources: sources, states: states, primary: map[string]string{}}
}

// FetchCatalog implements §4.E steps 1-5: per-source refresh (respecting
// TTL and ETags), signature pinning, then a deterministic merge.
func (r *Resolver) FetchCatalog(ctx context.Context) (Catalog, error) {
	type sourceCatalog = struct {
		name    string
		entries []CatalogEntry
	}

	var fresh []sourceCatalog
	var lastErrs []string

	for _, src := range r.sources {
		entries, ok := r.refreshSource(ctx, src)
		if !ok {
			continue
		}
		fresh = append(fresh, sourceCatalog{name: src.Name(), entries: entries})
	}

	if len(fresh) == 0 {
		r.mu.Lock()
		for _, st := range r.states {
			if st.LastError != nil {
				lastErrs = append(lastErrs, fmt.Sprintf("%s: %v", st.Name, st.LastError))
			}
		}
		r.mu.Unlock()
		return Catalog{}, atlaserr.New(atlaserr.Upstream,
			fmt.Sprintf("all registries failed to return catalog (%v)", lastErrs))
	}

	merged, primary, shadowCounts := mergeCatalogs(fresh)

	r.mu.Lock()
	r.primary = primary
	for name, st := range r.states {
		st.ShadowedDatasets = shadowCounts[name]
	}
	r.mu.Unlock()

	SortEntries(merged)
	etag, err := canon.StableHashHex(merged)
	if err != nil {
		return Catalog{}, atlaserr.Wrap(atlaserr.Upstream, "hashing merged catalog", err)
	}

	return Catalog{Entries: merged, ETag: etag}, nil
}

// refreshSource implements per-source TTL/ETag/signature handling and
// updates the source's SourceState. It returns ok=false when the source
// could not produce a usable catalog this round.
func (r *Resolver) refreshSource(ctx context.Context, src RegistrySource) ([]CatalogEntry, bool) {
	r.mu.Lock()
	st := r.states[src.Name()]
	withinTTL := !st.lastRefresh.IsZero() && time.Since(st.lastRefresh) < src.TTL()
	cachedETag := st.cachedETag
	cachedEntries := append([]CatalogEntry(nil), st.cachedCatalog.Entries...)
	r.mu.Unlock()

	if withinTTL {
		return cachedEntries, true
	}

	result, err := src.FetchCatalog(ctx, cachedETag)
	if err != nil {
		r.markError(src.Name(), err)
		return cachedEntries, len(cachedEntries) > 0
	}

	switch result.Status {
	case NotModified:
		r.markFresh(src.Name(), cachedEntries, cachedETag)
		return cachedEntries, true
	case Updated:
		entries, err := parseCatalogBytes(result.CatalogBytes)
		if err != nil {
			r.markError(src.Name(), fmt.Errorf("parsing catalog bytes: %w", err))
			return cachedEntries, len(cachedEntries) > 0
		}

		if sig := src.ExpectedSignature(); sig != "" {
			SortEntries(entries)
			got, err := canon.StableHashHex(entries)
			if err != nil {
				r.markError(src.Name(), fmt.Errorf("hashing catalog for signature check: %w", err))
				return cachedEntries, len(cachedEntries) > 0
			}
			if got != sig {
				r.markError(src.Name(), fmt.Errorf("catalog signature mismatch: got %s want %s", got, sig))
				return cachedEntries, len(cachedEntries) > 0
			}
		}

		r.markFresh(src.Name(), entries, result.ETag)
		return entries, true
	default:
		r.markError(src.Name(), fmt.Errorf("unknown fetch status %v", result.Status))
		return cachedEntries, len(cachedEntries) > 0
	}
}

func (r *Resolver) markError(sourceName string, err error) {
	log.WithSource(sourceName).Warn().Err(err).Msg("catalog source refresh failed")

	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.states[sourceName]
	st.Healthy = false
	st.LastError = err
}

func (r *Resolver) markFresh(sourceName string, entries []CatalogEntry, etag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.states[sourceName]
	st.Healthy = true
	st.LastError = nil
	st.cachedCatalog = Catalog{Entries: entries}
	st.cachedETag = etag
	st.lastRefresh = time.Now()
}

// mergeCatalogs implements §4.E step 4: first-source-wins on collision,
// with the losing source's shadow count incremented.
func mergeCatalogs(sources []struct {
	name    string
	entries []CatalogEntry
}) ([]CatalogEntry, map[string]string, map[string]int) {
	owner := map[string]string{}
	shadowed := map[string]int{}
	var merged []CatalogEntry

	for _, sc := range sources {
		for _, e := range sc.entries {
			key := e.DatasetId.String()
			if _, taken := owner[key]; taken {
				shadowed[sc.name]++
				continue
			}
			owner[key] = sc.name
			merged = append(merged, e)
		}
	}

	return merged, owner, shadowed
}

// Health returns the §4.E health surface for every configured source.
func (r *Resolver) Health() []Health {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Health, 0, len(r.sources))
	for _, src := range r.sources {
		st := r.states[src.Name()]
		lastErr := ""
		if st.LastError != nil {
			lastErr = st.LastError.Error()
		}
		out = append(out, Health{
			Name:             st.Name,
			Priority:         st.Priority,
			Healthy:          st.Healthy,
			LastError:        lastErr,
			ShadowedDatasets: st.ShadowedDatasets,
			TTLSeconds:       st.TTLSeconds,
		})
	}
	return out
}

// FetchManifest implements the §4.E per-dataset fetch order: the
// dataset's primary source first, then the remaining sources in
// configured order, accumulating every source's error on total failure.
func (r *Resolver) FetchManifest(ctx context.Context, id dataset.DatasetId) ([]byte, error) {
	return r.fetchPerDataset(ctx, id, func(src RegistrySource) ([]byte, error) {
		return src.FetchManifest(ctx, id)
	})
}

// FetchDBBytes is FetchManifest's counterpart for the embedded DB file.
func (r *Resolver) FetchDBBytes(ctx context.Context, id dataset.DatasetId) ([]byte, error) {
	return r.fetchPerDataset(ctx, id, func(src RegistrySource) ([]byte, error) {
		return src.FetchDBBytes(ctx, id)
	})
}

// FetchAuxiliary is FetchManifest's counterpart for a named auxiliary
// artifact (shard catalog, QC report, anomaly report).
func (r *Resolver) FetchAuxiliary(ctx context.Context, id dataset.DatasetId, name string) ([]byte, error) {
	return r.fetchPerDataset(ctx, id, func(src RegistrySource) ([]byte, error) {
		return src.FetchAuxiliary(ctx, id, name)
	})
}

func (r *Resolver) orderedSources(id dataset.DatasetId) []RegistrySource {
	r.mu.Lock()
	primaryName := r.primary[id.String()]
	r.mu.Unlock()

	if primaryName == "" {
		return r.sources
	}

	ordered := make([]RegistrySource, 0, len(r.sources))
	var primarySrc RegistrySource
	for _, src := range r.sources {
		if src.Name() == primaryName {
			primarySrc = src
			continue
		}
		ordered = append(ordered, src)
	}
	if primarySrc != nil {
		ordered = append([]RegistrySource{primarySrc}, ordered...)
	}
	return ordered
}

func (r *Resolver) fetchPerDataset(ctx context.Context, id dataset.DatasetId, fetch func(RegistrySource) ([]byte, error)) ([]byte, error) {
	var errs []string
	for _, src := range r.orderedSources(id) {
		data, err := fetch(src)
		if err == nil {
			return data, nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v", src.Name(), err))
	}
	return nil, atlaserr.New(atlaserr.Upstream, fmt.Sprintf("all sources failed for %s: %v", id, errs))
}
