package atlas

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/cache"
	"github.com/bijux/atlas/pkg/catalog"
	"github.com/bijux/atlas/pkg/dataset"
	"github.com/bijux/atlas/pkg/log"
	"github.com/bijux/atlas/pkg/metrics"
	"github.com/bijux/atlas/pkg/query"
)

// ServiceContext is the process-lifetime value every entry point in this
// package is a method of: the cursor secret, the dataset cache manager,
// and the federated catalog resolver, held together exactly as
// SPEC_FULL.md's Design Note resolves (a single owning value, not three
// independently threaded globals).
type ServiceContext struct {
	Cache        *cache.Manager
	Resolver     *catalog.Resolver
	Limits       query.QueryLimits
	CursorSecret []byte
}

// NewServiceContext constructs a ServiceContext. cursorSecret must be at
// least 32 bytes — pkg/config enforces this at process startup before
// a ServiceContext is ever built.
func NewServiceContext(cacheManager *cache.Manager, resolver *catalog.Resolver, limits query.QueryLimits, cursorSecret []byte) *ServiceContext {
	return &ServiceContext{
		Cache:        cacheManager,
		Resolver:     resolver,
		Limits:       limits,
		CursorSecret: cursorSecret,
	}
}

// withConnection leases a pooled read-only connection for id, runs fn
// against it, and always releases the handle afterward — regardless of
// whether fn returned an error.
func withConnection[T any](ctx context.Context, sc *ServiceContext, id dataset.DatasetId, fn func(*sql.DB) (T, error)) (T, error) {
	var zero T
	h, err := sc.Cache.OpenDatasetConnection(ctx, id)
	if err != nil {
		return zero, err
	}
	defer h.Release()
	return fn(h.DB)
}

// QueryGenes is the query_genes entry point.
func (sc *ServiceContext) QueryGenes(ctx context.Context, id dataset.DatasetId, req query.GeneQueryRequest) (query.Page, error) {
	class := string(req.Classify())
	qlog := log.WithQuery(queryHashOrUnknown(sc, req))
	timer := metrics.NewTimer()
	page, err := withConnection(ctx, sc, id, func(db *sql.DB) (query.Page, error) {
		stats := query.NewSQLiteStatsLookup(ctx, db)
		return query.Execute(ctx, db, req, sc.Limits, stats, sc.CursorSecret)
	})
	timer.ObserveDurationVec(metrics.QueryDuration, class)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		qlog.Warn().Str("classification", class).Err(err).Msg("query_genes failed")
		if atlaserr.Is(err, atlaserr.Policy) {
			metrics.QueryPolicyRejectionsTotal.WithLabelValues("rejected").Inc()
		}
	} else {
		qlog.Debug().Str("classification", class).Int("rows", len(page.Rows)).Msg("query_genes served")
		metrics.QueryRowsReturned.Observe(float64(len(page.Rows)))
	}
	metrics.QueryRequestsTotal.WithLabelValues(class, outcome).Inc()

	return page, err
}

// queryHashOrUnknown returns req's normalization hash for log
// correlation, or "unknown" if it can't be computed — hashing must never
// itself cause a query_genes call to fail.
func queryHashOrUnknown(sc *ServiceContext, req query.GeneQueryRequest) string {
	hash, err := sc.QueryNormalizationHash(req)
	if err != nil {
		return "unknown"
	}
	return hash
}

type fastLookupResult struct {
	Data  []byte
	Found bool
}

// QueryGeneByIDFast is the query_gene_by_id_fast entry point. It prefers
// the narrow-projection compact-JSON path (pkg/query.GeneByIDCompact)
// and falls back to the general point-lookup path, marshaling the
// resulting row, when the projection isn't narrow enough.
func (sc *ServiceContext) QueryGeneByIDFast(ctx context.Context, id dataset.DatasetId, geneID string, p query.Projection) ([]byte, bool, error) {
	result, err := withConnection(ctx, sc, id, func(db *sql.DB) (fastLookupResult, error) {
		data, found, ok, err := query.GeneByIDCompact(ctx, db, geneID, p)
		if err != nil {
			return fastLookupResult{}, err
		}
		if ok {
			return fastLookupResult{Data: data, Found: found}, nil
		}

		page, err := query.Execute(ctx, db, query.GeneQueryRequest{GeneID: geneID, PageSize: 1, Projection: p},
			sc.Limits, query.NewSQLiteStatsLookup(ctx, db), sc.CursorSecret)
		if err != nil {
			return fastLookupResult{}, err
		}
		if len(page.Rows) == 0 {
			return fastLookupResult{}, nil
		}
		data, err = json.Marshal(page.Rows[0])
		if err != nil {
			return fastLookupResult{}, atlaserr.Wrap(atlaserr.Upstream, "marshaling gene row", err)
		}
		return fastLookupResult{Data: data, Found: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return result.Data, result.Found, nil
}

// ClassifyQuery is the classify_query entry point. It is pure — no
// dataset connection is needed to classify a request's cost tier.
func (sc *ServiceContext) ClassifyQuery(req query.GeneQueryRequest) query.Classification {
	return req.Classify()
}

// EstimateWorkUnits is the estimate_work_units entry point. Like
// ClassifyQuery, it is pure.
func (sc *ServiceContext) EstimateWorkUnits(req query.GeneQueryRequest) int64 {
	return req.EstimatedWorkUnits()
}

// ExplainQueryPlan is the explain_query_plan entry point: it validates
// and builds req exactly as QueryGenes would, but returns the sorted
// EXPLAIN QUERY PLAN lines instead of enforcing the full-scan Policy
// rejection — for operator inspection and snapshot testing.
func (sc *ServiceContext) ExplainQueryPlan(ctx context.Context, id dataset.DatasetId, req query.GeneQueryRequest) ([]string, error) {
	return withConnection(ctx, sc, id, func(db *sql.DB) ([]string, error) {
		stats := query.NewSQLiteStatsLookup(ctx, db)
		if err := req.Validate(sc.Limits, stats); err != nil {
			return nil, err
		}

		var cursorPayload *query.CursorPayload
		if req.Cursor != "" {
			decoded, err := query.DecodeCursor(sc.CursorSecret, req.Cursor, req)
			if err != nil {
				return nil, err
			}
			cursorPayload = &decoded
		}

		stmt := req.Build(cursorPayload)
		return query.ExplainQueryPlan(ctx, db, stmt)
	})
}

// QueryNormalizationHash is the query_normalization_hash entry point: a
// pure function of req, with the cursor field cleared, so two requests
// differing only by cursor token hash identically.
func (sc *ServiceContext) QueryNormalizationHash(req query.GeneQueryRequest) (string, error) {
	return query.QueryHash(req)
}

// CatalogHealth exposes the federated resolver's per-source health
// snapshot (§4.E), for a host's /health or /catalog endpoint.
func (sc *ServiceContext) CatalogHealth() []catalog.Health {
	return sc.Resolver.Health()
}
