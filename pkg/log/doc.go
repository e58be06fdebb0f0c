/*
Package log provides structured logging for Atlas using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

Atlas's logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("atlas")                   │          │
	│  │  - WithDataset(release, species, assembly)  │          │
	│  │  - WithQuery(queryHash)                     │          │
	│  │  - WithSource(sourceName)                   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "atlas",                    │          │
	│  │    "time": "2026-07-30T10:30:00Z",          │          │
	│  │    "message": "dataset connection opened"   │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  2026-07-30T10:30:00Z INF dataset connection opened     │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all Atlas packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithDataset: Add release/species/assembly context
  - WithQuery: Add query normalization hash context
  - WithSource: Add federated catalog source context

# Log Levels

Debug Level:
  - Purpose: Detailed debugging information
  - Usage: Development and troubleshooting
  - Performance: Verbose, may impact production
  - Example: "Evaluating EXPLAIN QUERY PLAN for candidate index"

Info Level:
  - Purpose: General informational messages
  - Usage: Default production level
  - Performance: Moderate volume
  - Example: "Dataset mounted: 110/homo_sapiens/GRCh38"

Warn Level:
  - Purpose: Potential issues or unexpected conditions
  - Usage: Situations that may require attention
  - Performance: Low volume
  - Example: "Catalog source stale, serving last-known-good snapshot"

Error Level:
  - Purpose: Operation failures that need investigation
  - Usage: Failed operations, exceptions
  - Performance: Low volume
  - Example: "Dataset checksum mismatch, evicting from cache"

Fatal Level:
  - Purpose: Critical errors causing process termination
  - Usage: Unrecoverable errors only
  - Behavior: Logs message and exits process (os.Exit(1))
  - Example: "CURSOR_SECRET shorter than 32 bytes, refusing to start"

# Usage

Initializing the Logger:

	import "github.com/bijux/atlas/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

	// Custom output (file)
	file, _ := os.OpenFile("/var/log/atlas.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     file,
	})

Simple Logging:

	log.Info("atlas-server starting")
	log.Debug("checking warm-up dataset list")
	log.Warn("cache approaching MaxDiskBytes budget")
	log.Error("failed to fetch manifest from federated source")
	log.Fatal("cannot start without a valid cursor secret") // Exits process

Structured Logging:

	log.Logger.Info().
		Str("release", "110").
		Str("species", "homo_sapiens").
		Int("gene_count", 60675).
		Msg("dataset loaded into cache")

	log.Logger.Error().
		Err(err).
		Str("source", "ensembl-primary").
		Msg("federated source health check failed")

Component Loggers:

	// Create component-specific logger
	cacheLog := log.WithComponent("cache")
	cacheLog.Info().Msg("starting eviction sweep")
	cacheLog.Debug().Int("candidates", 3).Msg("evaluating unpinned entries")

	// Multiple context fields
	queryLog := log.WithComponent("query").
		With().Str("query_hash", "a3f1...").
		Str("dataset", "110/homo_sapiens/GRCh38").Logger()
	queryLog.Info().Msg("serving page")
	queryLog.Error().Err(err).Msg("query execution failed")

Context Logger Helpers:

	// Dataset-specific logs
	dsLog := log.WithDataset("110", "homo_sapiens", "GRCh38")
	dsLog.Info().Msg("dataset connection opened")

	// Query-specific logs
	qLog := log.WithQuery("a3f1c9...")
	qLog.Info().Msg("page served")

	// Source-specific logs
	srcLog := log.WithSource("ensembl-primary")
	srcLog.Warn().Msg("ETag unchanged, serving cached catalog snapshot")

Complete Example:

	package main

	import (
		"errors"
		"os"
		"github.com/bijux/atlas/pkg/log"
	)

	func main() {
		// Initialize logger
		log.Init(log.Config{
			Level:      log.InfoLevel,
			JSONOutput: true,
			Output:     os.Stdout,
		})

		log.Info("atlas-server starting")

		// Component-specific logging
		cacheLog := log.WithComponent("cache")
		cacheLog.Info().
			Str("dataset", "110/homo_sapiens/GRCh38").
			Int("open_connections", 5).
			Msg("dataset mounted")

		// Error logging
		err := errors.New("checksum mismatch")
		log.Logger.Error().
			Err(err).
			Str("component", "cache").
			Msg("failed to reverify cached dataset")

		log.Info("atlas-server stopped")
	}

# Integration Points

This package integrates with:

  - pkg/atlas: Logs query_genes failures (warn) and served pages (debug), keyed by query hash
  - pkg/cache: Logs cache misses, manifest fetch failures, and dataset mounts
  - pkg/catalog: Logs federated source refresh failures
  - cmd/atlas-server: Logs startup and catalog sources unhealthy at startup

pkg/query and pkg/gate do not log; they return errors to their callers.

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"cache","release":"110","species":"homo_sapiens","time":"2026-07-30T10:30:00Z","message":"dataset mounted"}
	{"level":"info","component":"query","query_hash":"a3f1c9...","time":"2026-07-30T10:30:01Z","message":"page served"}
	{"level":"error","component":"cache","source":"ensembl-primary","time":"2026-07-30T10:30:02Z","message":"checksum mismatch, evicting"}

Console Format (Development):

	2026-07-30T10:30:00Z INF dataset mounted component=cache release=110 species=homo_sapiens
	2026-07-30T10:30:01Z INF page served component=query query_hash=a3f1c9...
	2026-07-30T10:30:02Z ERR checksum mismatch, evicting component=cache source=ensembl-primary

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs
  - Avoids repetitive field specification

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Enables log aggregation and querying
  - Better than string concatenation
  - Parseable by log analysis tools

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Preserves the atlaserr.Kind via %v formatting
  - Enables error tracking and alerting
  - Consistent error format across codebase

# Performance Characteristics

Logging Overhead:
  - Disabled level: 0ns (compile-time optimization)
  - JSON encode: ~500ns per log line
  - Console format: ~1µs per log line
  - String field: +50ns per field
  - Int field: +30ns per field

Memory Allocation:
  - Zero allocation for disabled levels
  - ~100 bytes per log line (JSON)
  - ~200 bytes per log line (console)
  - Amortized by buffer pooling

Throughput:
  - JSON: ~2M log lines per second
  - Console: ~1M log lines per second
  - Bottleneck: I/O write speed
  - Async writes recommended for high volume

Log Level Impact:
  - Debug: High volume, use in development only
  - Info: Moderate volume, suitable for production
  - Warn/Error: Low volume, minimal impact
  - Recommendation: Info level in production

# Troubleshooting

Common Issues:

No Log Output:
  - Symptom: No logs appearing
  - Check: log.Init() called before logging
  - Check: Log level set appropriately (Debug < Info < Warn < Error)
  - Solution: Initialize logger in main() before any logging

Excessive Log Volume:
  - Symptom: Disk space fills quickly
  - Cause: Debug level in production
  - Check: Log level configuration
  - Solution: Use Info level in production, rotate logs

Missing Context Fields:
  - Symptom: Logs missing dataset or query fields
  - Cause: Using global Logger instead of context logger
  - Solution: Use WithDataset()/WithQuery()/WithSource()

Log Parsing Fails:
  - Symptom: Cannot parse JSON logs
  - Cause: Invalid JSON in message field
  - Check: Embedded quotes or control characters
  - Solution: Use .Str() instead of string interpolation

Performance Degradation:
  - Symptom: Slow application performance
  - Cause: Excessive logging in hot path
  - Check: Log statements inside query row loops
  - Solution: Reduce log frequency, log once per page not per row

# Log Rotation

File-Based Logging:

Atlas doesn't include built-in log rotation. Use external tools:

Logrotate (Linux):
	# /etc/logrotate.d/atlas
	/var/log/atlas/*.log {
	    daily
	    rotate 7
	    compress
	    delaycompress
	    missingok
	    notifempty
	    copytruncate
	}

Systemd Journal:
	# Automatic rotation by systemd
	journalctl -u atlas-server -f

Docker/Kubernetes:
	# Use container runtime log drivers
	# JSON logs to stdout (already implemented)

# Log Aggregation

Recommended Tools:

Elasticsearch + Filebeat:
  - Filebeat ships logs to Elasticsearch
  - Kibana for visualization and search
  - Query: component:"cache" AND level:"error"

Loki + Promtail:
  - Lightweight log aggregation
  - Grafana integration
  - Query: {component="query"} |= "policy"

CloudWatch Logs:
  - AWS native log aggregation
  - Metric filters for alerting
  - Query: fields @message | filter component = "cache"

Datadog:
  - Full-stack observability
  - APM and log correlation
  - Query: service:atlas component:cache status:error

# Monitoring

Log-Based Alerts:

High Error Rate:
  - Query: rate(log entries with level="error"[5m]) > 10
  - Description: More than 10 errors per second
  - Action: Check recent errors, investigate root cause

No Logs:
  - Query: absent(log entries[1m])
  - Description: No logs received in 1 minute
  - Action: Check atlas-server process, log pipeline

Specific Error Pattern:
  - Query: log entries containing "checksum mismatch"
  - Description: Dataset integrity failures
  - Action: Check catalog source, re-publish the affected dataset

# Security

Log Content:
  - Never log the cursor secret or manifest signing material
  - Redact tokens, credentials, API keys
  - Use log scrubbing for compliance (GDPR, PCI)
  - Review logs before sharing externally

Log Access:
  - Restrict log file permissions (0640)
  - Limit log aggregation access (RBAC)
  - Audit log access in production
  - Encrypt logs at rest and in transit

Log Injection:
  - Use structured logging (prevents injection)
  - Never concatenate gene IDs or free-text query params into log messages
  - Use typed fields (.Str, .Int) for request data
  - Validate/sanitize before logging if necessary

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Log errors with .Err() for cause chains
  - Include context (release/species/assembly, query hash, source)

Don't:
  - Log the cursor secret or raw manifest bytes
  - Use Debug level in production
  - Log once per row inside a query loop (use sampling or per-page logging)
  - Concatenate strings (use .Str, .Int)
  - Block on log writes (use buffered output)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - Structured logging: https://www.thoughtworks.com/radar/techniques/structured-logging
  - 12-Factor App Logs: https://12factor.net/logs
  - Log aggregation: https://www.elastic.co/what-is/log-aggregation
*/
package log
