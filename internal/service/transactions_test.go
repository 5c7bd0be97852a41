package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fraudscore/internal/artifacts"
	"fraudscore/internal/cache"
	"fraudscore/internal/domain"
	"fraudscore/internal/mq"
	mqmemory "fraudscore/internal/mq/memory"
	"fraudscore/internal/scoring"
	"fraudscore/internal/service"
	"fraudscore/internal/storage"
	"fraudscore/internal/storage/memory"
)

// pipeline is a full in-process deployment: memory stores, memory broker, a
// scoring worker over the fixture bundle and the transaction service.
type pipeline struct {
	svc          *service.TransactionService
	transactions *memory.TransactionStore
	cancel       context.CancelFunc
}

type recordingNotifier struct {
	mu  sync.Mutex
	txs []*domain.Transaction
}

func (n *recordingNotifier) NotifyScore(tx *domain.Transaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.txs = append(n.txs, tx)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.txs)
}

func newPipeline(t *testing.T, notifier service.Notifier) *pipeline {
	t.Helper()

	broker := mqmemory.NewBroker()
	t.Cleanup(broker.Close)

	scorer, err := scoring.NewScorer(artifacts.NewTestBundle(), cache.NewMemory(), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	worker := mq.NewWorker(mqmemory.NewWorkerTransport(broker), scoring.NewHandler(scorer), 2, nil)
	go func() { _ = worker.Run(ctx) }()

	client := mq.NewClient(mqmemory.NewClientTransport(broker), nil)
	t.Cleanup(func() { _ = client.Close() })

	transactions := memory.NewTransactionStore()
	svc := service.NewTransactionService(
		memory.NewUserStore(), memory.NewMerchantStore(), transactions,
		client, notifier, 5*time.Second, nil,
	)
	t.Cleanup(cancel)
	return &pipeline{svc: svc, transactions: transactions, cancel: cancel}
}

func input(transNum string, amt float64, at string) *domain.TransactionInput {
	return &domain.TransactionInput{
		TransDateTransTime: at,
		CCNum:              artifacts.FixtureKnownEntity,
		Merchant:           "fraud_Kirlin and Sons",
		Category:           "grocery_pos",
		Amt:                amt,
		First:              "Ann",
		Last:               "Doe",
		Gender:             "F",
		Street:             "1 Main St",
		City:               "Albany",
		State:              "NY",
		Zip:                12203,
		Lat:                42.65,
		Long:               -73.75,
		CityPop:            98000,
		Job:                "Engineer",
		DOB:                "1985-06-15",
		TransNum:           transNum,
		UnixTime:           1710512400,
		MerchLat:           42.7,
		MerchLong:          -73.8,
	}
}

func TestCreateScoresAndPersistsProbability(t *testing.T) {
	notifier := &recordingNotifier{}
	p := newPipeline(t, notifier)

	tx, err := p.svc.Create(context.Background(), input("tx-0001", 42.5, "2024-03-15 14:30:00"))
	require.NoError(t, err)
	require.NotZero(t, tx.ID)
	require.NotNil(t, tx.FraudProb)
	require.GreaterOrEqual(t, *tx.FraudProb, 0.0)
	require.LessOrEqual(t, *tx.FraudProb, 1.0)

	stored, err := p.svc.Get(context.Background(), tx.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FraudProb)
	require.Equal(t, *tx.FraudProb, *stored.FraudProb)

	require.Equal(t, 1, notifier.count())
}

func TestCreateBuildsHistoryAcrossTransactions(t *testing.T) {
	p := newPipeline(t, nil)

	// Same card, increasing timestamps: the later scores see real history.
	times := []string{
		"2024-03-15 09:00:00",
		"2024-03-15 13:00:00",
		"2024-03-16 10:30:00",
	}
	for i, at := range times {
		tx, err := p.svc.Create(context.Background(), input(
			"tx-hist-"+at[11:13], 10.0*float64(i+1), at))
		require.NoError(t, err)
		require.NotNil(t, tx.FraudProb)
	}
}

func TestCreateRejectsDuplicateTransNum(t *testing.T) {
	p := newPipeline(t, nil)

	_, err := p.svc.Create(context.Background(), input("tx-dup", 20.0, "2024-03-15 14:30:00"))
	require.NoError(t, err)

	_, err = p.svc.Create(context.Background(), input("tx-dup", 20.0, "2024-03-15 14:30:00"))
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	p := newPipeline(t, nil)

	bad := input("tx-bad", 20.0, "2024-03-15 14:30:00")
	bad.CCNum = ""
	_, err := p.svc.Create(context.Background(), bad)
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	bad = input("tx-bad-2", -5.0, "2024-03-15 14:30:00")
	_, err = p.svc.Create(context.Background(), bad)
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	bad = input("tx-bad-3", 20.0, "not a timestamp")
	_, err = p.svc.Create(context.Background(), bad)
	require.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestReplayScoresUnscoredTransaction(t *testing.T) {
	p := newPipeline(t, nil)

	in := input("tx-replay", 33.0, "2024-03-15 14:30:00")

	first, err := p.svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, first.FraudProb)

	// Simulate a crash between insert and score write-back.
	require.NoError(t, p.transactions.ClearFraudProbability(context.Background(), first.ID))

	replayed, err := p.svc.Replay(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, first.ID, replayed.ID)
	require.NotNil(t, replayed.FraudProb)
}

func TestReplaySkipsScoredTransaction(t *testing.T) {
	p := newPipeline(t, nil)

	in := input("tx-replay-done", 33.0, "2024-03-15 14:30:00")
	first, err := p.svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, first.FraudProb)

	replayed, err := p.svc.Replay(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, *first.FraudProb, *replayed.FraudProb)
}
