package catalog

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"sort"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/canon"
	"github.com/bijux/atlas/pkg/dataset"
	"github.com/bijux/atlas/pkg/embedded"
)

// ShardEntry is one bucket of a dataset's rows, written to its own
// embedded-DB file under derived/.
type ShardEntry struct {
	Bucket   string   `json:"bucket"`
	Contigs  []string `json:"contigs"`
	FileName string   `json:"file_name"`
	SHA256   string   `json:"sha256"`
}

// ShardCatalog is the canonical, sorted list of a dataset's shards.
type ShardCatalog struct {
	DatasetId dataset.DatasetId `json:"dataset_id"`
	Shards    []ShardEntry      `json:"shards"`
}

// StableBucket implements the §3 bucketing rule: when n <= 0 a contig is
// assigned to its own bucket; when n > 0 it is assigned to bucket index
// stable_hash(contig) mod n, whatever the number of contigs.
func StableBucket(contig string, n int) string {
	if n <= 0 {
		return contig
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(contig))
	return fmt.Sprintf("bucket-%d", h.Sum64()%uint64(n))
}

// WriteShards implements §4.H: it buckets genes by contig (or hashed
// bucket when bucketCount > 0), sorts each bucket by (seqid, start, end,
// gene_id), writes one embedded-DB file per bucket at pathFor(bucket), and
// returns the resulting, already-sorted ShardCatalog. dir is not used to
// build shard paths; pathFor alone decides where each file goes.
//
// It opens each shard's embedded.Writer against id — the dataset the
// shards belong to — propagating it into every shard rather than
// re-deriving a fresh DatasetId per file.
func WriteShards(ctx context.Context, id dataset.DatasetId, dir string, genes []embedded.GeneRecord, bucketCount int, pathFor func(bucket string) string) (ShardCatalog, error) {
	buckets := map[string][]embedded.GeneRecord{}
	for _, g := range genes {
		b := StableBucket(g.Seqid, bucketCount)
		buckets[b] = append(buckets[b], g)
	}

	bucketNames := make([]string, 0, len(buckets))
	for b := range buckets {
		bucketNames = append(bucketNames, b)
	}
	sort.Strings(bucketNames)

	var entries []ShardEntry
	for _, bucket := range bucketNames {
		rows := buckets[bucket]
		sort.Slice(rows, func(i, j int) bool {
			a, b := rows[i], rows[j]
			if a.Seqid != b.Seqid {
				return a.Seqid < b.Seqid
			}
			if a.Start != b.Start {
				return a.Start < b.Start
			}
			if a.End != b.End {
				return a.End < b.End
			}
			return a.GeneID < b.GeneID
		})

		contigSet := map[string]struct{}{}
		for _, g := range rows {
			contigSet[g.Seqid] = struct{}{}
		}
		contigs := make([]string, 0, len(contigSet))
		for c := range contigSet {
			contigs = append(contigs, c)
		}
		sort.Strings(contigs)

		path := pathFor(bucket)
		w, err := embedded.Create(path)
		if err != nil {
			return ShardCatalog{}, atlaserr.Wrap(atlaserr.StoreError, "creating shard file", err)
		}
		if err := w.BulkLoad(ctx, rows, nil, map[string]string{
			"dataset_id": id.String(),
			"shard":      bucket,
		}); err != nil {
			w.Close()
			return ShardCatalog{}, atlaserr.Wrap(atlaserr.StoreError, "bulk-loading shard", err)
		}
		if err := w.Close(); err != nil {
			return ShardCatalog{}, atlaserr.Wrap(atlaserr.StoreError, "closing shard writer", err)
		}

		digest, err := hashFile(path)
		if err != nil {
			return ShardCatalog{}, atlaserr.Wrap(atlaserr.StoreError, "hashing shard file", err)
		}

		entries = append(entries, ShardEntry{
			Bucket:   bucket,
			Contigs:  contigs,
			FileName: path,
			SHA256:   digest,
		})
	}

	SortShardEntries(entries)
	return ShardCatalog{DatasetId: id, Shards: entries}, nil
}

// SortShardEntries sorts shard entries by bucket name — the order both
// the writer emits and the reader validates.
func SortShardEntries(entries []ShardEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Bucket < entries[j].Bucket })
}

// ValidateSorted implements the reader-side half of §4.H: any
// out-of-order entry is an integrity error.
func (c ShardCatalog) ValidateSorted() error {
	for i := 1; i < len(c.Shards); i++ {
		if c.Shards[i-1].Bucket >= c.Shards[i].Bucket {
			return atlaserr.New(atlaserr.IntegrityFailure,
				fmt.Sprintf("shard catalog out of order at index %d: %q >= %q", i, c.Shards[i-1].Bucket, c.Shards[i].Bucket))
		}
	}
	return nil
}

func hashFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return canon.SHA256Hex(raw), nil
}
