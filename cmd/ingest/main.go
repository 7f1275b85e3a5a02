// Package main runs the live ingestion service: a WebSocket event feed
// drained through the aggregation pipeline into PostgreSQL, with
// ClickHouse archiving and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dex-hook-stats/internal/config"
	"dex-hook-stats/internal/ingestion"
	"dex-hook-stats/internal/observability"
	"dex-hook-stats/internal/oracle/poolstate"
	"dex-hook-stats/internal/pipeline"
	"dex-hook-stats/internal/storage"
	"dex-hook-stats/internal/storage/clickhouse"
	"dex-hook-stats/internal/storage/migrations"
	pgstore "dex-hook-stats/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down", sig)
		cancel()
	}()

	metrics := observability.NewMetrics("")
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("Connect postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Postgres migrations: %v", err)
	}
	store := pgstore.NewEntityStore(pool)

	var archive storage.SnapshotArchive
	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			logger.Fatalf("Clickhouse migrations: %v", err)
		}
		defer conn.Close()
		archive = clickhouse.NewArchive(conn, metrics)
	}

	source := ingestion.NewWSEventSource(cfg.WSEndpoint, ingestion.DefaultWSSourceConfig(), metrics)
	go func() {
		if err := source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("Event source stopped: %v", err)
			cancel()
		}
	}()

	proc := pipeline.New(pipeline.Options{
		Store:   store,
		Archive: archive,
		Oracle:  poolstate.New(store, cfg.OraclePricing()),
		Metrics: metrics,
		Pricing: cfg.OraclePricing(),
	})

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Source:    source,
		Processor: proc,
		Metrics:   metrics,
	})

	logger.Printf("Ingesting from %s", cfg.WSEndpoint)
	result, err := runner.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Runner: %v", err)
	}
	logger.Printf("Stopped: processed=%d skipped=%d", result.Processed, result.Skipped)

	// Give in-flight metric scrapes a moment before exit.
	time.Sleep(100 * time.Millisecond)
}
