// Package scoring evaluates the fraud ensemble for one transaction: feature
// assembly, embedding lookup, the three model stages, plus the score cache
// and the analytics sink around them.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"fraudscore/internal/artifacts"
	"fraudscore/internal/cache"
	"fraudscore/internal/domain"
	"fraudscore/internal/features"
	"fraudscore/internal/model"
	"fraudscore/internal/observability"
	"fraudscore/internal/storage"
)

// Scorer scores requests against a frozen artifact bundle. Immutable after
// construction and safe for concurrent use.
type Scorer struct {
	assembler *features.Assembler
	bundle    *artifacts.Bundle
	ensemble  *model.Ensemble
	cache     cache.ScoreCache
	events    storage.ScoreEventStore
	logger    *log.Logger
}

// NewScorer wires a scorer from a validated bundle. events may be nil when
// no analytics sink is configured.
func NewScorer(b *artifacts.Bundle, scoreCache cache.ScoreCache, events storage.ScoreEventStore, logger *log.Logger) (*Scorer, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("artifact bundle: %w", err)
	}
	asm, err := features.NewAssembler(b.NodeScaler, b.EdgeScaler, b.OneHot, b.Target)
	if err != nil {
		return nil, err
	}
	if scoreCache == nil {
		scoreCache = cache.Noop{}
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[scorer] ", log.LstdFlags)
	}
	return &Scorer{
		assembler: asm,
		bundle:    b,
		ensemble:  &model.Ensemble{Graph: b.Graph, Trees: b.Trees, Stacker: b.Stacker},
		cache:     scoreCache,
		events:    events,
		logger:    logger,
	}, nil
}

// Score evaluates one request. A non-nil error is always a deterministic
// scoring fault; transient infrastructure failures around the cache and the
// analytics sink are logged and swallowed, they never fail a score.
func (s *Scorer) Score(ctx context.Context, req *domain.ScoreRequest) (float64, error) {
	if prob, ok, err := s.cache.Get(ctx, req.TransactionID); err != nil {
		s.logger.Printf("score cache get %s: %v", req.TransactionID, err)
	} else if ok {
		observability.RecordCacheHit()
		return prob, nil
	}

	start := time.Now()
	scores, err := s.evaluate(req)
	elapsed := time.Since(start)
	if err != nil {
		observability.RecordScore("fault", elapsed.Seconds())
		return 0, err
	}
	observability.RecordScore("ok", elapsed.Seconds())

	s.logger.Printf("Tx %s | graph %.4f | tree %.4f | final %.4f | %.2f ms",
		req.TransactionID, scores.PGraph, scores.PTree, scores.PFinal,
		float64(elapsed.Microseconds())/1000.0)

	if err := s.cache.Set(ctx, req.TransactionID, scores.PFinal); err != nil {
		s.logger.Printf("score cache set %s: %v", req.TransactionID, err)
	}
	if s.events != nil {
		event := &domain.ScoreEvent{
			TransactionID: req.TransactionID,
			CCNum:         req.CCNum,
			PGraph:        scores.PGraph,
			PTree:         scores.PTree,
			PFinal:        scores.PFinal,
			DurationMs:    float64(elapsed.Microseconds()) / 1000.0,
			ScoredAt:      time.Now().UTC(),
		}
		if err := s.events.Insert(ctx, event); err != nil {
			s.logger.Printf("score event %s: %v", req.TransactionID, err)
		}
	}
	return scores.PFinal, nil
}

// evaluate runs the pure part of scoring: vector assembly, embedding lookup
// and the three model stages.
func (s *Scorer) evaluate(req *domain.ScoreRequest) (model.Scores, error) {
	full, err := s.assembler.Assemble(req)
	if err != nil {
		return model.Scores{}, fmt.Errorf("%w: %v", model.ErrScoringFault, err)
	}
	if err := model.CheckVector(full); err != nil {
		return model.Scores{}, err
	}
	emb := s.bundle.Embeddings.Lookup(req.CCNum)
	edge := s.assembler.Columns().EdgeSlice(full)
	scores, err := s.ensemble.Score(emb, edge, full)
	if err != nil && !errors.Is(err, model.ErrScoringFault) {
		// Shapes were validated at startup, so any remaining model error is
		// deterministic for this request.
		err = fmt.Errorf("%w: %v", model.ErrScoringFault, err)
	}
	return scores, err
}

// IsFault reports whether an error is a deterministic scoring fault.
func IsFault(err error) bool {
	return errors.Is(err, model.ErrScoringFault)
}
