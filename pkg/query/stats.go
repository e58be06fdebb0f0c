package query

import (
	"context"
	"database/sql"

	"github.com/bijux/atlas/pkg/atlaserr"
)

// SQLiteStatsLookup answers StatsLookup from a dataset's own
// dataset_stats and gene_summary tables — the same embedded connection
// Execute runs against, never a separate round trip to another store.
type SQLiteStatsLookup struct {
	ctx context.Context
	db  *sql.DB
}

// NewSQLiteStatsLookup binds db for the lifetime of one request's
// Validate call.
func NewSQLiteStatsLookup(ctx context.Context, db *sql.DB) SQLiteStatsLookup {
	return SQLiteStatsLookup{ctx: ctx, db: db}
}

func (s SQLiteStatsLookup) BiotypeExists(biotype string) (bool, error) {
	return s.dimensionExists("biotype", biotype)
}

func (s SQLiteStatsLookup) SeqidExists(seqid string) (bool, error) {
	return s.dimensionExists("seqid", seqid)
}

func (s SQLiteStatsLookup) dimensionExists(dimension, value string) (bool, error) {
	var count int64
	err := s.db.QueryRowContext(s.ctx,
		`SELECT count FROM dataset_stats WHERE dimension = ? AND value = ?`,
		dimension, value,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, atlaserr.Wrap(atlaserr.Upstream, "reading dataset_stats", err)
	}
	return count > 0, nil
}

// PrefixCost counts the gene_summary rows a name_prefix filter would
// match, using the same name_norm LIKE 'prefix%' predicate Build uses at
// execution time. It is an exact COUNT(*), not a dataset_stats lookup.
func (s SQLiteStatsLookup) PrefixCost(prefix string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(s.ctx,
		`SELECT COUNT(*) FROM gene_summary WHERE name_norm LIKE ?`,
		NameNormPrefix(prefix)+"%",
	).Scan(&count)
	if err != nil {
		return 0, atlaserr.Wrap(atlaserr.Upstream, "estimating name_prefix cost", err)
	}
	return count, nil
}
