// Package main provides the scoring worker: it loads the frozen model
// artifacts, consumes scoring requests from RabbitMQ under a prefetch bound
// and publishes correlated responses. Optional Redis caches scores across
// redeliveries; optional ClickHouse records per-score analytics events.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fraudscore/internal/artifacts"
	"fraudscore/internal/cache"
	"fraudscore/internal/mq"
	mqamqp "fraudscore/internal/mq/amqp"
	"fraudscore/internal/observability"
	"fraudscore/internal/scoring"
	"fraudscore/internal/storage"
	chstore "fraudscore/internal/storage/clickhouse"
	"fraudscore/internal/storage/migrations"
)

const (
	brokerAttempts = 10
	brokerDelay    = 3 * time.Second
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	amqpURL := flag.String("amqp-url", os.Getenv("AMQP_URL"), "RabbitMQ connection URL")
	artifactsDir := flag.String("artifacts-dir", os.Getenv("ARTIFACTS_DIR"), "Model artifacts directory")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for the score cache (optional)")
	prefetch := flag.Int("prefetch", 16, "Broker prefetch limit")
	concurrency := flag.Int("concurrency", 8, "Concurrent scoring goroutines")
	metricsAddr := flag.String("metrics-addr", ":9091", "Prometheus metrics HTTP address")

	flag.Parse()

	logger := log.New(os.Stdout, "[scorer] ", log.LstdFlags|log.Lshortfile)

	if *amqpURL == "" {
		logger.Fatal("--amqp-url is required")
	}
	if *artifactsDir == "" {
		logger.Fatal("--artifacts-dir is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A worker must not consume without a complete, validated bundle.
	bundle, err := artifacts.Load(*artifactsDir)
	if err != nil {
		logger.Fatalf("Failed to load artifacts: %v", err)
	}
	logger.Printf("Loaded artifacts from %s (%d known entities, embedding dim %d)",
		*artifactsDir, bundle.Embeddings.Size(), bundle.Embeddings.Dim())

	scoreCache, closeCache, err := createCache(ctx, *redisAddr, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to redis: %v", err)
	}
	defer closeCache()

	events, closeEvents, err := createEventStore(ctx, *clickhouseDSN, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to clickhouse: %v", err)
	}
	defer closeEvents()

	scorer, err := scoring.NewScorer(bundle, scoreCache, events, nil)
	if err != nil {
		logger.Fatalf("Failed to create scorer: %v", err)
	}

	conn, err := mqamqp.DialWithRetry(*amqpURL, brokerAttempts, brokerDelay, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to broker: %v", err)
	}
	defer conn.Close()

	transport, err := mqamqp.NewWorkerTransport(conn, *prefetch)
	if err != nil {
		logger.Fatalf("Failed to open worker transport: %v", err)
	}
	defer transport.Close()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Prometheus metrics
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
			logger.Printf("Metrics server error: %v", err)
		}
	}()

	worker := mq.NewWorker(transport, scoring.NewHandler(scorer), *concurrency, logger)
	logger.Printf("Consuming %s (prefetch %d, concurrency %d)", mq.RequestQueue, *prefetch, *concurrency)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Worker error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createCache connects the Redis score cache, or a no-op cache when no
// address is configured.
func createCache(ctx context.Context, addr string, logger *log.Logger) (cache.ScoreCache, func(), error) {
	if addr == "" {
		logger.Println("No redis address configured, score caching disabled")
		return cache.Noop{}, func() {}, nil
	}
	r, err := cache.NewRedis(ctx, addr, 0)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { r.Close() }, nil
}

// createEventStore connects ClickHouse and applies its migrations, or
// returns nil when no DSN is configured.
func createEventStore(ctx context.Context, dsn string, logger *log.Logger) (storage.ScoreEventStore, func(), error) {
	if dsn == "" {
		logger.Println("No clickhouse DSN configured, score events disabled")
		return nil, func() {}, nil
	}
	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunClickhouse(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return chstore.NewScoreEventStore(conn), func() { conn.Close() }, nil
}

// loadEnvFile loads .env into the environment without overriding set vars.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
