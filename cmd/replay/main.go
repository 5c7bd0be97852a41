// Package main replays a captured transaction feed through the scoring
// pipeline. Input is JSON lines, one transaction per line, in the upstream
// feed schema. Replay is idempotent: transactions already stored are only
// re-scored when their probability is still unset.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fraudscore/internal/domain"
	"fraudscore/internal/mq"
	mqamqp "fraudscore/internal/mq/amqp"
	"fraudscore/internal/service"
	"fraudscore/internal/storage/migrations"
	pgstore "fraudscore/internal/storage/postgres"
)

const (
	brokerAttempts = 10
	brokerDelay    = 3 * time.Second
)

// maxLineSize accommodates the widest feed rows.
const maxLineSize = 1 << 20

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	input := flag.String("input", "", "Path to the JSONL transaction feed")
	amqpURL := flag.String("amqp-url", os.Getenv("AMQP_URL"), "RabbitMQ connection URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	callTimeout := flag.Duration("call-timeout", 30*time.Second, "Scoring call timeout")
	limit := flag.Int("limit", 0, "Stop after this many transactions (0 = all)")
	delay := flag.Duration("delay", 0, "Pause between transactions")

	flag.Parse()

	logger := log.New(os.Stdout, "[replay] ", log.LstdFlags)

	if *input == "" {
		logger.Fatal("--input is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	if *amqpURL == "" {
		logger.Fatal("--amqp-url is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, stopping...", sig)
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgres(ctx, pool); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	conn, err := mqamqp.DialWithRetry(*amqpURL, brokerAttempts, brokerDelay, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to broker: %v", err)
	}
	defer conn.Close()
	transport, err := mqamqp.NewClientTransport(conn)
	if err != nil {
		logger.Fatalf("Failed to open client transport: %v", err)
	}
	client := mq.NewClient(transport, nil)
	defer client.Close()

	svc := service.NewTransactionService(
		pgstore.NewUserStore(pool), pgstore.NewMerchantStore(pool),
		pgstore.NewTransactionStore(pool), client, nil, *callTimeout, nil)

	file, err := os.Open(*input)
	if err != nil {
		logger.Fatalf("Failed to open input: %v", err)
	}
	defer file.Close()

	var sent, scored, failed int
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var in domain.TransactionInput
		if err := json.Unmarshal([]byte(line), &in); err != nil {
			logger.Printf("Skipping undecodable line: %v", err)
			failed++
			continue
		}

		tx, err := svc.Replay(ctx, &in)
		if err != nil {
			logger.Printf("Replay %s: %v", in.TransNum, err)
			failed++
		} else {
			sent++
			if tx.FraudProb != nil {
				scored++
			}
		}

		if sent%100 == 0 && sent > 0 {
			logger.Printf("Progress: %d sent, %d scored, %d failed", sent, scored, failed)
		}
		if *limit > 0 && sent >= *limit {
			break
		}
		if *delay > 0 {
			time.Sleep(*delay)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Fatalf("Read input: %v", err)
	}

	logger.Printf("Done: %d sent, %d scored, %d failed", sent, scored, failed)
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
