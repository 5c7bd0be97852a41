package cache

import (
	"context"
	"sync"
)

// Memory implements ScoreCache with a map. Used in tests and -use-memory
// mode; entries never expire.
type Memory struct {
	mu     sync.RWMutex
	scores map[string]float64
}

// Compile-time interface check.
var _ ScoreCache = (*Memory)(nil)

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{scores: make(map[string]float64)}
}

func (m *Memory) Get(_ context.Context, txID string) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prob, ok := m.scores[txID]
	return prob, ok, nil
}

func (m *Memory) Set(_ context.Context, txID string, prob float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[txID] = prob
	return nil
}
