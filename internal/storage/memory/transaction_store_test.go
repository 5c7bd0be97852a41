package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"fraudscore/internal/domain"
	"fraudscore/internal/storage"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func insertTx(t *testing.T, s *TransactionStore, transNum string, userID int64, merchantID int64, amt float64, at time.Time) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{
		TransNum:   transNum,
		UserID:     userID,
		MerchantID: merchantID,
		Amount:     amt,
		Time:       at,
	}
	if err := s.Insert(context.Background(), tx); err != nil {
		t.Fatalf("insert %s: %v", transNum, err)
	}
	return tx
}

func TestTransactionStore_InsertDuplicate(t *testing.T) {
	s := NewTransactionStore()
	insertTx(t, s, "t1", 1, 1, 10, ts("2024-01-01T00:00:00Z"))

	err := s.Insert(context.Background(), &domain.Transaction{
		TransNum: "t1", UserID: 1, MerchantID: 1, Amount: 20, Time: ts("2024-01-02T00:00:00Z"),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestTransactionStore_PriorTransactions_StrictlyBefore(t *testing.T) {
	s := NewTransactionStore()
	cur := ts("2024-06-15T12:00:00Z")

	insertTx(t, s, "past1", 7, 1, 10, cur.Add(-2*time.Hour))
	insertTx(t, s, "past2", 7, 2, 20, cur.Add(-1*time.Hour))
	insertTx(t, s, "exact", 7, 3, 30, cur)               // not strictly before
	insertTx(t, s, "future", 7, 4, 40, cur.Add(time.Hour)) // must never be seen
	insertTx(t, s, "other", 8, 5, 50, cur.Add(-time.Hour)) // different user

	prior, err := s.PriorTransactions(context.Background(), 7, cur, 100)
	if err != nil {
		t.Fatalf("PriorTransactions: %v", err)
	}

	if len(prior) != 2 {
		t.Fatalf("expected 2 prior transactions, got %d", len(prior))
	}
	// Most recent first
	if prior[0].Amount != 20 || prior[1].Amount != 10 {
		t.Errorf("expected amounts [20 10], got [%v %v]", prior[0].Amount, prior[1].Amount)
	}
}

func TestTransactionStore_PriorTransactions_Limit(t *testing.T) {
	s := NewTransactionStore()
	cur := ts("2024-06-15T12:00:00Z")
	for i := 0; i < 5; i++ {
		insertTx(t, s, "t"+string(rune('a'+i)), 1, 1, float64(i), cur.Add(-time.Duration(i+1)*time.Minute))
	}

	prior, err := s.PriorTransactions(context.Background(), 1, cur, 3)
	if err != nil {
		t.Fatalf("PriorTransactions: %v", err)
	}
	if len(prior) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(prior))
	}
	// Newest three: offsets -1m, -2m, -3m -> amounts 0, 1, 2
	if prior[0].Amount != 0 || prior[2].Amount != 2 {
		t.Errorf("unexpected ordering: %v, %v", prior[0].Amount, prior[2].Amount)
	}
}

func TestTransactionStore_SetFraudProbability(t *testing.T) {
	s := NewTransactionStore()
	tx := insertTx(t, s, "t1", 1, 1, 10, ts("2024-01-01T00:00:00Z"))

	if err := s.SetFraudProbability(context.Background(), tx.ID, 0.42); err != nil {
		t.Fatalf("SetFraudProbability: %v", err)
	}

	got, err := s.GetByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FraudProb == nil || *got.FraudProb != 0.42 {
		t.Errorf("expected fraud prob 0.42, got %v", got.FraudProb)
	}

	if err := s.SetFraudProbability(context.Background(), 999, 0.1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
