package query

import (
	"context"
	"database/sql"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/embedded"
)

// VerifyPlan implements §4.D.5: it runs EXPLAIN QUERY PLAN over stmt and
// rejects it as a Policy error — carrying the offending plan lines for
// the caller to log — when the plan resolves to a full scan of
// gene_summary and the request didn't explicitly allow one.
func VerifyPlan(ctx context.Context, db *sql.DB, stmt Statement, allowFullScan bool) ([]embedded.PlanLine, error) {
	lines, err := embedded.Explain(ctx, db, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.Upstream, "running explain query plan", err)
	}

	if !allowFullScan && embedded.IsFullTableScan(lines, "gene_summary") {
		return lines, atlaserr.New(atlaserr.Policy,
			"query plan is a full scan of gene_summary and allow_full_scan is false: "+planSummary(lines))
	}

	return lines, nil
}

func planSummary(lines []embedded.PlanLine) string {
	details := embedded.SortedDetails(lines)
	summary := ""
	for i, d := range details {
		if i > 0 {
			summary += " | "
		}
		summary += d
	}
	return summary
}

// ExplainQueryPlan is the read-only entry point named in §4.D.5: it
// returns plan lines for inspection and snapshot testing without the
// Policy enforcement VerifyPlan applies.
func ExplainQueryPlan(ctx context.Context, db *sql.DB, stmt Statement) ([]string, error) {
	lines, err := embedded.Explain(ctx, db, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.Upstream, "running explain query plan", err)
	}
	return embedded.SortedDetails(lines), nil
}
