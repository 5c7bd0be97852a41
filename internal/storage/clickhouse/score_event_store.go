package clickhouse

import (
	"context"
	"fmt"

	"fraudscore/internal/domain"
	"fraudscore/internal/storage"
)

// ScoreEventStore implements storage.ScoreEventStore using ClickHouse.
// Score events are append-only; duplicates from at-least-once redelivery are
// tolerated and collapse in downstream aggregation.
type ScoreEventStore struct {
	conn *Conn
}

// NewScoreEventStore creates a new ScoreEventStore.
func NewScoreEventStore(conn *Conn) *ScoreEventStore {
	return &ScoreEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoreEventStore = (*ScoreEventStore)(nil)

// Insert appends a score event.
func (s *ScoreEventStore) Insert(ctx context.Context, e *domain.ScoreEvent) error {
	if e == nil || e.TransactionID == "" {
		return storage.ErrInvalidInput
	}

	err := s.conn.Exec(ctx, `
		INSERT INTO score_events (
			transaction_id, cc_num, p_graph, p_tree, p_final, duration_ms, scored_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		e.TransactionID, e.CCNum, e.PGraph, e.PTree, e.PFinal, e.DurationMs, e.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("insert score event: %w", err)
	}
	return nil
}
