package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bijux/atlas/pkg/atlaserr"
)

// narrowProjection reports whether p selects only gene_id and name — the
// one shape §4.D.7 allows materializing directly to JSON bytes, skipping
// the GeneRow intermediate.
func narrowProjection(p Projection) bool {
	return !p.Biotype && !p.Seqid && !p.Start && !p.End
}

// GeneByIDCompact implements the §4.D.7 narrow-projection fast path: for a
// point lookup projecting only gene_id and name, it writes the single
// result directly as a compact JSON object, with no GeneRow allocation in
// between. It reports ok=false when the projection isn't narrow enough,
// so callers fall back to the general Execute path.
func GeneByIDCompact(ctx context.Context, db *sql.DB, geneID string, p Projection) (data []byte, found bool, ok bool, err error) {
	if !narrowProjection(p) {
		return nil, false, false, nil
	}

	var name string
	hasName := p.Name

	var row *sql.Row
	if hasName {
		row = db.QueryRowContext(ctx, "SELECT name FROM gene_summary WHERE gene_id = ? LIMIT 1", geneID)
	} else {
		row = db.QueryRowContext(ctx, "SELECT 1 FROM gene_summary WHERE gene_id = ? LIMIT 1", geneID)
	}

	var scanTarget any = new(int)
	if hasName {
		scanTarget = &name
	}
	if scanErr := row.Scan(scanTarget); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, false, true, nil
		}
		return nil, false, true, atlaserr.Wrap(atlaserr.Upstream, "executing narrow gene_id lookup", scanErr)
	}

	if hasName {
		data = []byte(fmt.Sprintf(`{"gene_id":%s,"name":%s}`, jsonString(geneID), jsonString(name)))
	} else {
		data = []byte(fmt.Sprintf(`{"gene_id":%s}`, jsonString(geneID)))
	}
	return data, true, true, nil
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
