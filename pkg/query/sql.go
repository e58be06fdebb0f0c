package query

import (
	"fmt"
	"strings"
)

// Statement is a built SQL query plus its positional arguments, ready for
// both EXPLAIN QUERY PLAN verification and execution.
type Statement struct {
	SQL  string
	Args []any
}

// columns returns the SELECT list implied by the request's projection,
// always including gene_id.
func (r GeneQueryRequest) columns() []string {
	cols := []string{"gene_id"}
	if r.Projection.Name {
		cols = append(cols, "name")
	}
	if r.Projection.Biotype {
		cols = append(cols, "biotype")
	}
	if r.Projection.Seqid {
		cols = append(cols, "seqid")
	}
	if r.Projection.Start {
		cols = append(cols, "start")
	}
	if r.Projection.End {
		cols = append(cols, "end")
	}
	return cols
}

// Build implements §4.D.3 and §4.D.6: it emits the exact ordering the
// spec names and a pagination predicate that strictly advances the scan
// past cursor, executing with page_size+1 rows to detect a further page.
func (r GeneQueryRequest) Build(cursor *CursorPayload) Statement {
	cols := r.columns()
	var where []string
	var args []any

	if r.GeneID != "" {
		where = append(where, "gene_id = ?")
		args = append(args, r.GeneID)
	}
	if r.Name != "" {
		where = append(where, "name = ?")
		args = append(args, r.Name)
	}
	if r.Biotype != "" {
		where = append(where, "biotype = ?")
		args = append(args, r.Biotype)
	}
	if r.NamePrefix != "" {
		where = append(where, "name_norm LIKE ?")
		args = append(args, NameNormPrefix(r.NamePrefix)+"%")
	}
	if r.Region != nil {
		where = append(where, "seqid = ? AND end >= ? AND start <= ?")
		args = append(args, r.Region.Seqid, r.Region.Start, r.Region.End)
	}

	order := r.orderFor()
	if cursor != nil {
		if order == OrderRegion {
			where = append(where, "(seqid, start, gene_id) > (?, ?, ?)")
			args = append(args, cursor.LastSeqid, cursor.LastStart, cursor.LastGeneID)
		} else {
			where = append(where, "gene_id > ?")
			args = append(args, cursor.LastGeneID)
		}
	}

	var orderBy string
	if order == OrderRegion {
		orderBy = "seqid ASC, start ASC, gene_id ASC"
	} else {
		orderBy = "gene_id ASC"
	}

	sql := "SELECT " + strings.Join(cols, ", ") + " FROM gene_summary"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY " + orderBy + fmt.Sprintf(" LIMIT %d", r.PageSize+1)

	return Statement{SQL: sql, Args: args}
}

// NameNormPrefix mirrors pkg/embedded.NameNorm so prefix filters match the
// same normalization the writer stored name_norm under.
func NameNormPrefix(prefix string) string {
	return strings.ToLower(strings.TrimSpace(prefix))
}

// GeneByIDStatement builds the §4.D.7 fast-path point lookup: no cursor
// logic, at most one row.
func GeneByIDStatement(geneID string, p Projection) Statement {
	cols := (GeneQueryRequest{Projection: p}).columns()
	return Statement{
		SQL:  "SELECT " + strings.Join(cols, ", ") + " FROM gene_summary WHERE gene_id = ? LIMIT 1",
		Args: []any{geneID},
	}
}
