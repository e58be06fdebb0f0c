package embedded

import (
	"context"
	"database/sql"
	"sort"
	"strings"
)

// PlanLine is one row of EXPLAIN QUERY PLAN output.
type PlanLine struct {
	ID     int
	Parent int
	Detail string
}

// Explain runs EXPLAIN QUERY PLAN for query/args against db and returns
// the plan lines in the order SQLite produced them.
func Explain(ctx context.Context, db *sql.DB, query string, args ...any) ([]PlanLine, error) {
	rows, err := db.QueryContext(ctx, "EXPLAIN QUERY PLAN "+query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []PlanLine
	for rows.Next() {
		var id, parent, notUsed int
		var detail string
		if err := rows.Scan(&id, &parent, &notUsed, &detail); err != nil {
			return nil, err
		}
		lines = append(lines, PlanLine{ID: id, Parent: parent, Detail: detail})
	}
	return lines, rows.Err()
}

// SortedDetails returns just the Detail strings, sorted, for snapshot
// testing and for the read-only explain_query_plan entry point in 4.I.
func SortedDetails(lines []PlanLine) []string {
	details := make([]string, len(lines))
	for i, l := range lines {
		details[i] = l.Detail
	}
	sort.Strings(details)
	return details
}

// UsesSpatialIndex reports whether any plan line references the region
// R-tree virtual table via an index search rather than a bare scan.
// Preferred (structural) probe: a line naming SpatialRtreeTable together
// with "USING" (SQLite always describes virtual table index usage as
// "... VIRTUAL TABLE INDEX ..." or "USING INDEX ..."). Falls back to a
// plain substring check if the structural shape ever changes underneath
// us, per the design note in spec §9 preferring structural over textual
// but keeping the textual marker as a fallback.
func UsesSpatialIndex(lines []PlanLine) bool {
	for _, l := range lines {
		if strings.Contains(l.Detail, SpatialRtreeTable) && strings.Contains(l.Detail, "USING") {
			return true
		}
	}
	for _, l := range lines {
		if strings.Contains(l.Detail, SpatialRtreeTable) {
			return true
		}
	}
	return false
}

// IsFullTableScan reports whether any plan line is an un-indexed scan of
// table — SQLite renders this as "SCAN <table>" with no "USING INDEX"
// qualifier. This is the textual marker spec §9 flags as fragile; callers
// should prefer a structural check (an index name present, or
// UsesSpatialIndex) wherever the embedded DB exposes one, and use this
// only as the last resort.
func IsFullTableScan(lines []PlanLine, table string) bool {
	scanMarker := "SCAN " + table
	for _, l := range lines {
		if strings.HasPrefix(l.Detail, scanMarker) && !strings.Contains(l.Detail, "USING") {
			return true
		}
	}
	return false
}
