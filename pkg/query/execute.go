package query

import (
	"context"
	"database/sql"

	"github.com/bijux/atlas/pkg/atlaserr"
)

// Execute implements §4.D.6 and §4.D.7: it validates, decodes any cursor,
// verifies the plan, executes with page_size+1, and builds the next
// cursor when a further page exists.
//
// A gene_id point lookup bypasses cursor logic entirely and returns at
// most one row with no NextCursor, per §4.D.7.
func Execute(ctx context.Context, db *sql.DB, r GeneQueryRequest, limits QueryLimits, stats StatsLookup, cursorSecret []byte) (Page, error) {
	if err := r.Validate(limits, stats); err != nil {
		return Page{}, err
	}

	if r.GeneID != "" {
		return executeGeneIDFastPath(ctx, db, r)
	}

	var cursorPayload *CursorPayload
	if r.Cursor != "" {
		decoded, err := DecodeCursor(cursorSecret, r.Cursor, r)
		if err != nil {
			return Page{}, err
		}
		cursorPayload = &decoded
	}

	stmt := r.Build(cursorPayload)

	if _, err := VerifyPlan(ctx, db, stmt, r.AllowFullScan); err != nil {
		return Page{}, err
	}

	rows, err := scanGeneRows(ctx, db, stmt, r.Projection)
	if err != nil {
		return Page{}, atlaserr.Wrap(atlaserr.Upstream, "executing gene query", err)
	}

	page := Page{Rows: rows}
	if len(rows) > r.PageSize {
		page.Rows = rows[:r.PageSize]
		next, err := NextCursor(cursorSecret, r, page.Rows[len(page.Rows)-1])
		if err != nil {
			return Page{}, err
		}
		page.NextCursor = next
	}

	return page, nil
}

func executeGeneIDFastPath(ctx context.Context, db *sql.DB, r GeneQueryRequest) (Page, error) {
	stmt := GeneByIDStatement(r.GeneID, r.Projection)
	rows, err := scanGeneRows(ctx, db, stmt, r.Projection)
	if err != nil {
		return Page{}, atlaserr.Wrap(atlaserr.Upstream, "executing gene_id lookup", err)
	}
	return Page{Rows: rows}, nil
}

// scanGeneRows executes stmt and scans exactly the columns p selects, in
// the same order GeneQueryRequest.columns() emits them.
func scanGeneRows(ctx context.Context, db *sql.DB, stmt Statement, p Projection) ([]GeneRow, error) {
	sqlRows, err := db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	var out []GeneRow
	for sqlRows.Next() {
		var row GeneRow
		dest := []any{&row.GeneID}
		if p.Name {
			dest = append(dest, &row.Name)
		}
		if p.Biotype {
			dest = append(dest, &row.Biotype)
		}
		if p.Seqid {
			dest = append(dest, &row.Seqid)
		}
		if p.Start {
			dest = append(dest, &row.Start)
		}
		if p.End {
			dest = append(dest, &row.End)
		}
		if err := sqlRows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, sqlRows.Err()
}
