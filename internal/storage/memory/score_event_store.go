package memory

import (
	"context"
	"sync"

	"fraudscore/internal/domain"
	"fraudscore/internal/storage"
)

// ScoreEventStore is an in-memory implementation of storage.ScoreEventStore.
type ScoreEventStore struct {
	mu     sync.RWMutex
	events []*domain.ScoreEvent
}

// NewScoreEventStore creates a new in-memory score event store.
func NewScoreEventStore() *ScoreEventStore {
	return &ScoreEventStore{}
}

// Compile-time interface check.
var _ storage.ScoreEventStore = (*ScoreEventStore)(nil)

// Insert appends a score event.
func (s *ScoreEventStore) Insert(_ context.Context, e *domain.ScoreEvent) error {
	if e == nil || e.TransactionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *e
	s.events = append(s.events, &copy)
	return nil
}

// Events returns a snapshot of all recorded events, in insertion order.
func (s *ScoreEventStore) Events() []*domain.ScoreEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ScoreEvent, len(s.events))
	for i, e := range s.events {
		copy := *e
		out[i] = &copy
	}
	return out
}
