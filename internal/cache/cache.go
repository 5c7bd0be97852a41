// Package cache caches fraud probabilities by transaction id. The worker
// consults it before scoring so redelivered requests reuse the earlier
// result instead of re-running the ensemble.
package cache

import "context"

// ScoreCache stores computed fraud probabilities keyed by transaction id.
type ScoreCache interface {
	// Get returns the cached probability and whether it was present.
	Get(ctx context.Context, txID string) (float64, bool, error)
	// Set stores a probability. Entries may expire.
	Set(ctx context.Context, txID string, prob float64) error
}

// Noop is a ScoreCache that caches nothing.
type Noop struct{}

// Compile-time interface check.
var _ ScoreCache = Noop{}

func (Noop) Get(context.Context, string) (float64, bool, error) { return 0, false, nil }
func (Noop) Set(context.Context, string, float64) error         { return nil }
