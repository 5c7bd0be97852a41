package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL keeps a score around long enough to cover broker redeliveries
// without letting the keyspace grow unbounded.
const DefaultTTL = 24 * time.Hour

// Redis implements ScoreCache on a Redis instance.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// Compile-time interface check.
var _ ScoreCache = (*Redis)(nil)

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func key(txID string) string {
	return "score:" + txID
}

// Get returns the cached probability for a transaction.
func (r *Redis) Get(ctx context.Context, txID string) (float64, bool, error) {
	val, err := r.client.Get(ctx, key(txID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get score %s: %w", txID, err)
	}
	prob, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached score %s: %w", txID, err)
	}
	return prob, true, nil
}

// Set stores the probability with the configured TTL.
func (r *Redis) Set(ctx context.Context, txID string, prob float64) error {
	val := strconv.FormatFloat(prob, 'f', -1, 64)
	if err := r.client.Set(ctx, key(txID), val, r.ttl).Err(); err != nil {
		return fmt.Errorf("set score %s: %w", txID, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
