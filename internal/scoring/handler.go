package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"fraudscore/internal/domain"
	"fraudscore/internal/mq"
)

// Handler adapts a Scorer to the worker protocol. It classifies failures:
// undecodable or incomplete requests are malformed (dead-lettered by the
// worker), scoring faults become an error response body (published and
// acknowledged, a retry would fail identically), and only transient errors
// surface to trigger redelivery.
type Handler struct {
	scorer *Scorer
}

// Compile-time interface check.
var _ mq.Handler = (*Handler)(nil)

// NewHandler wraps a scorer.
func NewHandler(s *Scorer) *Handler {
	return &Handler{scorer: s}
}

// Handle implements mq.Handler.
func (h *Handler) Handle(ctx context.Context, body []byte) ([]byte, error) {
	var req domain.ScoreRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", mq.ErrMalformedMessage, err)
	}
	if req.TransactionID == "" {
		return nil, fmt.Errorf("%w: missing transaction_id", mq.ErrMalformedMessage)
	}

	resp := domain.ScoreResponse{TransactionID: req.TransactionID}
	prob, err := h.scorer.Score(ctx, &req)
	switch {
	case err == nil:
		resp.Probability = prob
	case IsFault(err):
		resp.Error = err.Error()
	default:
		return nil, err
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode score response: %w", err)
	}
	return out, nil
}
