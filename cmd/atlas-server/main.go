package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bijux/atlas/pkg/atlas"
	"github.com/bijux/atlas/pkg/cache"
	"github.com/bijux/atlas/pkg/catalog"
	"github.com/bijux/atlas/pkg/config"
	"github.com/bijux/atlas/pkg/dataset"
	"github.com/bijux/atlas/pkg/log"
	"github.com/bijux/atlas/pkg/metrics"
	"github.com/bijux/atlas/pkg/query"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "atlas-server",
	Short:   "Atlas dataset catalog and query core",
	Long:    `Atlas is a read-only catalog and query engine for immutable, versioned genomic dataset artifacts, served behind an out-of-process HTTP layer.`,
	Version: Version,
	RunE:    runServer,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("atlas-server version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address for the metrics/health HTTP endpoints")
	rootCmd.Flags().String("catalog-root", "./atlas-data", "Root directory for the local-filesystem catalog source")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func runServer(cmd *cobra.Command, args []string) error {
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	catalogRoot, _ := cmd.Flags().GetString("catalog-root")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	instanceID := uuid.New().String()
	log.WithComponent("startup").Info().Str("instance_id", instanceID).Msg("atlas-server starting")

	source := catalog.NewLocalFSSource("local", 0, catalogRoot, "catalog.json", time.Minute)
	resolver := catalog.New([]catalog.RegistrySource{source})

	cacheManager, err := cache.NewManager(cfg.Cache, resolver)
	if err != nil {
		return fmt.Errorf("creating cache manager: %w", err)
	}
	defer cacheManager.Close()

	sc := atlas.NewServiceContext(cacheManager, resolver, query.QueryLimits{
		MaxPageSize:      500,
		MaxWorkUnits:     1_000_000,
		MaxRegionSpan:    250_000_000,
		MaxPrefixLen:     256,
		MaxResponseBytes: 16 << 20,
		MaxPrefixCost:    100_000,
	}, cfg.CursorSecret)
	metricsCollector := metrics.NewCollector(cacheManager, resolver)
	metricsCollector.Start()
	defer metricsCollector.Stop()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("cache", true, "ready")
	metrics.RegisterComponent("catalog", true, "ready")
	metrics.RegisterComponent("api", true, "ready")

	failOnMissingWarmup, err := config.FailReadinessOnMissingWarmup()
	if err != nil {
		return fmt.Errorf("reading warm-up policy: %w", err)
	}
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()
	cat, err := resolver.FetchCatalog(startupCtx)
	if err != nil {
		log.Errorf("initial catalog fetch failed, starting with an empty warm-up set", err)
	} else {
		ids := make([]dataset.DatasetId, 0, len(cat.Entries))
		for _, entry := range cat.Entries {
			ids = append(ids, entry.DatasetId)
		}
		if _, err := cacheManager.StartupWarmup(startupCtx, ids, failOnMissingWarmup); err != nil {
			log.Errorf("startup warm-up reported unready datasets", err)
			metrics.RegisterComponent("cache", false, err.Error())
		}
	}

	for _, h := range sc.CatalogHealth() {
		if !h.Healthy {
			log.Error(fmt.Sprintf("catalog source %q unhealthy at startup: %s", h.Name, h.LastError))
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	httpServer := &http.Server{Addr: metricsAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
	fmt.Printf("atlas-server listening on http://%s (health/ready/live/metrics)\n", metricsAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
