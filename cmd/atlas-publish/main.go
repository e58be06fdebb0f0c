package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bijux/atlas/pkg/atlaserr"
	"github.com/bijux/atlas/pkg/catalog"
	"github.com/bijux/atlas/pkg/dataset"
	"github.com/bijux/atlas/pkg/embedded"
	"github.com/bijux/atlas/pkg/gate"
)

var (
	manifestPath      = flag.String("manifest", "", "Path to manifest.json (required)")
	dbPath            = flag.String("db", "", "Path to the embedded SQLite database file (required)")
	lockPath          = flag.String("lock", "", "Path to the manifest lock JSON file (required)")
	shardCatalogPath  = flag.String("shard-catalog", "", "Path to the shard catalog JSON file (required)")
	qcPath            = flag.String("qc", "", "Path to the QC report JSON file (required)")
	rowsPath          = flag.String("rows", "", "Path to a {genes:[...],transcripts:[...]} JSON file of canonical rows, for dataset-signature recomputation (required)")
	thresholdsPath    = flag.String("thresholds", "", "Path to a QC thresholds YAML file (required)")
	storeRoot         = flag.String("store-root", "/var/lib/atlas/store", "Root directory the published artifact is written under")
	minGeneCount      = flag.Int64("min-gene-count", 1, "Publish gate: minimum gene_count")
	maxMissingParents = flag.Int64("max-missing-parents", 0, "Publish gate: maximum allowed missing_parents")
	missingParents    = flag.Int64("missing-parents", 0, "Observed missing_parents count for this run")
	dryRun            = flag.Bool("dry-run", false, "Run every gate but skip the final store write")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := run(); err != nil {
		log.Fatalf("publish failed: %v", err)
	}
}

func run() error {
	for name, v := range map[string]string{
		"manifest": *manifestPath, "db": *dbPath, "lock": *lockPath,
		"shard-catalog": *shardCatalogPath, "qc": *qcPath, "rows": *rowsPath,
		"thresholds": *thresholdsPath,
	} {
		if v == "" {
			return fmt.Errorf("--%s is required", name)
		}
	}

	manifestBytes, err := os.ReadFile(*manifestPath)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	var manifest dataset.ArtifactManifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}
	id := manifest.Dataset.ToDatasetId()

	dbBytes, err := os.ReadFile(*dbPath)
	if err != nil {
		return fmt.Errorf("reading database file: %w", err)
	}

	var lock dataset.ManifestLock
	if err := readJSONFile(*lockPath, &lock); err != nil {
		return fmt.Errorf("reading manifest lock: %w", err)
	}

	var shardCatalog catalog.ShardCatalog
	if err := readJSONFile(*shardCatalogPath, &shardCatalog); err != nil {
		return fmt.Errorf("reading shard catalog: %w", err)
	}

	var qcReport gate.QCReport
	if err := readJSONFile(*qcPath, &qcReport); err != nil {
		return fmt.Errorf("reading QC report: %w", err)
	}

	thresholdsBytes, err := os.ReadFile(*thresholdsPath)
	if err != nil {
		return fmt.Errorf("reading thresholds: %w", err)
	}
	var thresholds gate.Thresholds
	if err := yaml.Unmarshal(thresholdsBytes, &thresholds); err != nil {
		return fmt.Errorf("parsing thresholds: %w", err)
	}

	var rows struct {
		Genes       []any `json:"genes"`
		Transcripts []any `json:"transcripts"`
	}
	if err := readJSONFile(*rowsPath, &rows); err != nil {
		return fmt.Errorf("reading canonical rows: %w", err)
	}

	db, err := embedded.OpenReadOnly(*dbPath)
	if err != nil {
		return fmt.Errorf("opening database read-only: %w", err)
	}
	defer db.Close()

	artifact := gate.Artifact{
		ManifestBytes:  manifestBytes,
		DBBytes:        dbBytes,
		DB:             db,
		Manifest:       &manifest,
		Lock:           lock,
		ShardCatalog:   shardCatalog,
		QCReport:       qcReport,
		GeneRows:       rows.Genes,
		TranscriptRows: rows.Transcripts,
	}

	ctx := context.Background()
	log.Printf("running publish gates for %s", id)
	cfg := gate.PublishGatesConfig{
		MinGeneCount:      *minGeneCount,
		MaxMissingParents: *maxMissingParents,
		MissingParents:    *missingParents,
	}
	if err := gate.PublishGates(ctx, artifact, id, thresholds, cfg); err != nil {
		if atlaserr.Is(err, atlaserr.Policy) {
			return fmt.Errorf("publish rejected by policy gate: %w", err)
		}
		return fmt.Errorf("publish gate failed: %w", err)
	}
	log.Printf("✓ all publish gates passed for %s", id)

	if *dryRun {
		log.Println("dry run: skipping store write")
		return nil
	}

	store := catalog.NewStore(*storeRoot)
	if err := store.Put(id, manifestBytes, dbBytes); err != nil {
		if atlaserr.Is(err, atlaserr.Conflict) {
			return fmt.Errorf("%s is already published under different content: %w", id, err)
		}
		return fmt.Errorf("writing to store: %w", err)
	}

	log.Printf("✓ published %s to %s", id, *storeRoot)
	return nil
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
