package query

import (
	"math"

	"github.com/bijux/atlas/pkg/atlaserr"
)

// Order is the stable ordering mode a request resolves to.
type Order string

const (
	OrderRegion Order = "region"
	OrderGeneID Order = "gene_id"
)

// Classification is the cost tier a request falls into, used only for
// logging and metrics — it does not itself gate anything; estimated work
// units against QueryLimits.MaxWorkUnits is what gates.
type Classification string

const (
	Cheap  Classification = "cheap"
	Medium Classification = "medium"
	Heavy  Classification = "heavy"
)

// Projection selects which optional columns a response row carries.
type Projection struct {
	Name    bool
	Biotype bool
	Seqid   bool
	Start   bool
	End     bool
}

// RegionFilter restricts results to genes overlapping [Start, End] on Seqid.
type RegionFilter struct {
	Seqid string
	Start int64
	End   int64
}

// GeneQueryRequest is the full set of inputs to a single query.
type GeneQueryRequest struct {
	Projection Projection

	GeneID       string
	Name         string
	Biotype      string
	NamePrefix   string
	Region       *RegionFilter

	PageSize      int
	Cursor        string
	AllowFullScan bool
}

// QueryLimits bounds what a request is allowed to cost.
type QueryLimits struct {
	MaxPageSize      int
	MaxRegionSpan    int64
	MaxPrefixLen     int
	MaxWorkUnits     int64
	MaxResponseBytes int64
	MaxPrefixCost    int64
}

// hasFilter reports whether the request constrains the scan in any way
// beyond ordering — used by the no-filter/allow_full_scan fast-fail.
func (r GeneQueryRequest) hasFilter() bool {
	return r.GeneID != "" || r.Name != "" || r.Biotype != "" || r.NamePrefix != "" || r.Region != nil
}

// Classify implements the §4.D.2 classification rule.
func (r GeneQueryRequest) Classify() Classification {
	switch {
	case r.GeneID != "":
		return Cheap
	case r.Region != nil || r.NamePrefix != "":
		return Heavy
	default:
		return Medium
	}
}

// orderFor implements §4.D.3: region filters order by (seqid, start,
// gene_id); everything else orders by gene_id alone.
func (r GeneQueryRequest) orderFor() Order {
	if r.Region != nil {
		return OrderRegion
	}
	return OrderGeneID
}

// EstimatedWorkUnits implements the §4.D.2 cost formula: a base cost per
// classification, plus page size, plus a per-10kb region-span surcharge.
func (r GeneQueryRequest) EstimatedWorkUnits() int64 {
	var base int64
	switch r.Classify() {
	case Cheap:
		base = 20
	case Medium:
		base = 200
	case Heavy:
		base = 1200
	}
	units := base + int64(r.PageSize)
	if r.Region != nil {
		span := r.Region.End - r.Region.Start + 1
		units += int64(math.Ceil(float64(span) / 10_000))
	}
	return units
}

// StatsLookup answers the existence and cost checks Validate needs
// without Validate itself touching *sql.DB. SQLiteStatsLookup answers the
// biotype and seqid checks from dataset_stats and the prefix cost by
// counting matching gene_summary rows.
type StatsLookup interface {
	BiotypeExists(biotype string) (bool, error)
	SeqidExists(seqid string) (bool, error)
	PrefixCost(prefix string) (int64, error)
}

// Validate implements §4.D.2 in full: the applicable checks run in the
// order the spec lists them, and the first failure is returned without
// running the rest. Validation
// never touches the embedded database directly — stats is the only I/O.
// The existence checks read the small dataset_stats table; the
// name_prefix cost is a count of matching gene_summary rows, not a
// dataset_stats lookup.
func (r GeneQueryRequest) Validate(limits QueryLimits, stats StatsLookup) error {
	if r.PageSize < 1 || r.PageSize > limits.MaxPageSize {
		return atlaserr.New(atlaserr.Validation, "page_size out of range")
	}

	if len(r.NamePrefix) > limits.MaxPrefixLen {
		return atlaserr.New(atlaserr.Validation, "name_prefix exceeds max length")
	}
	if r.NamePrefix != "" {
		cost, err := stats.PrefixCost(r.NamePrefix)
		if err != nil {
			return atlaserr.Wrap(atlaserr.Upstream, "looking up prefix cost", err)
		}
		if cost > limits.MaxPrefixCost {
			return atlaserr.New(atlaserr.Policy, "name_prefix cost exceeds ceiling")
		}
	}

	if r.Region != nil {
		if r.Region.Start < 1 {
			return atlaserr.New(atlaserr.Validation, "region.start must be >= 1")
		}
		if r.Region.End < r.Region.Start {
			return atlaserr.New(atlaserr.Validation, "region.end must be >= region.start")
		}
		span := r.Region.End - r.Region.Start + 1
		if span > limits.MaxRegionSpan {
			return atlaserr.New(atlaserr.Validation, "region span exceeds max_region_span")
		}
	}

	if !r.hasFilter() && !r.AllowFullScan {
		return atlaserr.New(atlaserr.Policy, "no filter set and allow_full_scan is false")
	}

	if r.Biotype != "" {
		exists, err := stats.BiotypeExists(r.Biotype)
		if err != nil {
			return atlaserr.Wrap(atlaserr.Upstream, "looking up biotype existence", err)
		}
		if !exists {
			return atlaserr.New(atlaserr.NotFound, "biotype does not exist")
		}
	}

	if r.Region != nil {
		exists, err := stats.SeqidExists(r.Region.Seqid)
		if err != nil {
			return atlaserr.Wrap(atlaserr.Upstream, "looking up seqid existence", err)
		}
		if !exists {
			return atlaserr.New(atlaserr.NotFound, "region seqid does not exist")
		}
	}

	if r.EstimatedWorkUnits() > limits.MaxWorkUnits {
		return atlaserr.New(atlaserr.Policy, "estimated work units exceed max_work_units")
	}

	return nil
}
