// Package main provides the producer-side service: the transaction API,
// the websocket score feed and the scoring client publishing to the broker.
// With -use-memory the whole pipeline runs in one process against in-memory
// storage and an in-process broker, which needs -artifacts-dir.
package main

import (
	"context"
	"flag"
	"fmt"
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
	mqmemory "fraudscore/internal/mq/memory"
	"fraudscore/internal/scoring"
	"fraudscore/internal/server"
	"fraudscore/internal/service"
	"fraudscore/internal/storage"
	"fraudscore/internal/storage/memory"
	"fraudscore/internal/storage/migrations"
	pgstore "fraudscore/internal/storage/postgres"
)

// brokerAttempts and brokerDelay govern the startup connect retry; the
// broker is commonly still starting when the services come up.
const (
	brokerAttempts = 10
	brokerDelay    = 3 * time.Second
)

// stores holds the producer-side storage implementations.
type stores struct {
	users        storage.UserStore
	merchants    storage.MerchantStore
	transactions storage.TransactionStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "HTTP listen address")
	amqpURL := flag.String("amqp-url", os.Getenv("AMQP_URL"), "RabbitMQ connection URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	artifactsDir := flag.String("artifacts-dir", os.Getenv("ARTIFACTS_DIR"), "Model artifacts directory (only with -use-memory)")
	callTimeout := flag.Duration("call-timeout", 30*time.Second, "Scoring call timeout")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage and an in-process scoring worker")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
		}
		if *amqpURL == "" {
			logger.Fatal("--amqp-url is required (use --use-memory for an in-process broker)")
		}
	} else if *artifactsDir == "" {
		logger.Fatal("--artifacts-dir is required with --use-memory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	client, closeTransport, err := createScoringClient(ctx, *amqpURL, *artifactsDir, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create scoring client: %v", err)
	}
	defer closeTransport()

	hub := server.NewHub(nil)
	svc := service.NewTransactionService(
		st.users, st.merchants, st.transactions, client, hub, *callTimeout, nil)
	api := server.New(svc, hub, nil)

	httpServer := &http.Server{Addr: *httpAddr, Handler: api.Routes()}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *httpAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores creates the producer-side stores and runs migrations.
func createStores(ctx context.Context, postgresDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		st := &stores{
			users:        memory.NewUserStore(),
			merchants:    memory.NewMerchantStore(),
			transactions: memory.NewTransactionStore(),
		}
		return st, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	st := &stores{
		users:        pgstore.NewUserStore(pool),
		merchants:    pgstore.NewMerchantStore(pool),
		transactions: pgstore.NewTransactionStore(pool),
	}
	return st, pool.Close, nil
}

// createScoringClient connects the correlation client to RabbitMQ, or with
// useMemory spins up an in-process broker plus scoring worker.
func createScoringClient(ctx context.Context, amqpURL, artifactsDir string, useMemory bool, logger *log.Logger) (*mq.Client, func(), error) {
	if useMemory {
		bundle, err := artifacts.Load(artifactsDir)
		if err != nil {
			return nil, nil, fmt.Errorf("load artifacts: %w", err)
		}
		scorer, err := scoring.NewScorer(bundle, cache.NewMemory(), nil, nil)
		if err != nil {
			return nil, nil, err
		}

		broker := mqmemory.NewBroker()
		worker := mq.NewWorker(mqmemory.NewWorkerTransport(broker), scoring.NewHandler(scorer), 4, nil)
		go func() { _ = worker.Run(ctx) }()

		client := mq.NewClient(mqmemory.NewClientTransport(broker), nil)
		return client, func() { client.Close(); broker.Close() }, nil
	}

	conn, err := mqamqp.DialWithRetry(amqpURL, brokerAttempts, brokerDelay, logger)
	if err != nil {
		return nil, nil, err
	}
	transport, err := mqamqp.NewClientTransport(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	client := mq.NewClient(transport, nil)
	return client, func() { client.Close(); conn.Close() }, nil
}

// envOr returns the environment value or a default.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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
