package scoring

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"fraudscore/internal/artifacts"
	"fraudscore/internal/cache"
	"fraudscore/internal/domain"
	"fraudscore/internal/mq"
	"fraudscore/internal/storage"
	"fraudscore/internal/storage/memory"
)

func validRequest() *domain.ScoreRequest {
	return &domain.ScoreRequest{
		TransactionID:      "tx-1",
		TransDateTransTime: "2024-03-15 14:30:00",
		CCNum:              artifacts.FixtureKnownEntity,
		Merchant:           "fraud_Kirlin and Sons",
		Category:           "grocery_pos",
		Amt:                42.5,
		Gender:             "F",
		State:              "NY",
		Lat:                40.71,
		Long:               -74.0,
		CityPop:            100000,
		Job:                "Engineer",
		DOB:                "1985-06-15",
		MerchLat:           40.82,
		MerchLong:          -74.15,
		HistoryFeatures: domain.HistoryFeatures{
			PrevAmount:    30.0,
			AmountDiff:    12.5,
			AmountRatio:   42.5 / 30.0,
			RollMeanAmt5:  35.0,
			RollStdAmt5:   8.0,
			TimeDiffHours: 12.0,
		},
	}
}

func newTestScorer(t *testing.T, c cache.ScoreCache, events storage.ScoreEventStore) *Scorer {
	t.Helper()
	s, err := NewScorer(artifacts.NewTestBundle(), c, events, nil)
	require.NoError(t, err)
	return s
}

func TestScoreProducesBoundedProbability(t *testing.T) {
	events := memory.NewScoreEventStore()
	s := newTestScorer(t, cache.NewMemory(), events)

	prob, err := s.Score(context.Background(), validRequest())
	require.NoError(t, err)
	require.GreaterOrEqual(t, prob, 0.0)
	require.LessOrEqual(t, prob, 1.0)

	recorded := events.Events()
	require.Len(t, recorded, 1)
	require.Equal(t, "tx-1", recorded[0].TransactionID)
	require.Equal(t, prob, recorded[0].PFinal)
}

func TestScoreIsDeterministic(t *testing.T) {
	s := newTestScorer(t, cache.Noop{}, nil)

	first, err := s.Score(context.Background(), validRequest())
	require.NoError(t, err)
	second, err := s.Score(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestScoreUnknownEntityUsesFallbackEmbedding(t *testing.T) {
	s := newTestScorer(t, cache.Noop{}, nil)

	req := validRequest()
	req.CCNum = "cc-never-seen"
	prob, err := s.Score(context.Background(), req)
	require.NoError(t, err)
	require.GreaterOrEqual(t, prob, 0.0)
	require.LessOrEqual(t, prob, 1.0)
}

func TestScoreCacheShortCircuitsRescoring(t *testing.T) {
	c := cache.NewMemory()
	events := memory.NewScoreEventStore()
	s := newTestScorer(t, c, events)

	first, err := s.Score(context.Background(), validRequest())
	require.NoError(t, err)
	second, err := s.Score(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, first, second)

	// The second call was served from the cache, so only one event exists.
	require.Len(t, events.Events(), 1)
}

func TestScoreNonFiniteVectorIsFault(t *testing.T) {
	s := newTestScorer(t, cache.Noop{}, nil)

	req := validRequest()
	req.Lat = math.NaN()
	_, err := s.Score(context.Background(), req)
	require.Error(t, err)
	require.True(t, IsFault(err))
}

func TestScoreUnparsableTimestampIsFault(t *testing.T) {
	s := newTestScorer(t, cache.Noop{}, nil)

	req := validRequest()
	req.TransDateTransTime = "yesterday"
	_, err := s.Score(context.Background(), req)
	require.Error(t, err)
	require.True(t, IsFault(err))
}

func TestHandlerRoundTrip(t *testing.T) {
	h := NewHandler(newTestScorer(t, cache.Noop{}, nil))

	body, err := json.Marshal(validRequest())
	require.NoError(t, err)

	out, err := h.Handle(context.Background(), body)
	require.NoError(t, err)

	var resp domain.ScoreResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Equal(t, "tx-1", resp.TransactionID)
	require.Empty(t, resp.Error)
	require.GreaterOrEqual(t, resp.Probability, 0.0)
	require.LessOrEqual(t, resp.Probability, 1.0)
}

func TestHandlerMalformedBody(t *testing.T) {
	h := NewHandler(newTestScorer(t, cache.Noop{}, nil))

	_, err := h.Handle(context.Background(), []byte("not json"))
	require.ErrorIs(t, err, mq.ErrMalformedMessage)

	_, err = h.Handle(context.Background(), []byte(`{"amt": 12.0}`))
	require.ErrorIs(t, err, mq.ErrMalformedMessage)
}

func TestHandlerFaultBecomesErrorResponse(t *testing.T) {
	h := NewHandler(newTestScorer(t, cache.Noop{}, nil))

	req := validRequest()
	req.DOB = "not-a-date"
	body, err := json.Marshal(req)
	require.NoError(t, err)

	out, err := h.Handle(context.Background(), body)
	require.NoError(t, err, "faults must be answered, not retried")

	var resp domain.ScoreResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Equal(t, "tx-1", resp.TransactionID)
	require.NotEmpty(t, resp.Error)
}