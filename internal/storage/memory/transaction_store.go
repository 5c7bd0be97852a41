package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fraudscore/internal/domain"
	"fraudscore/internal/storage"
)

// TransactionStore is an in-memory implementation of storage.TransactionStore.
// Rows become visible to readers only once fully written; the mutex gives the
// same read consistency the SQL implementation gets from MVCC.
type TransactionStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*domain.Transaction
	byTrans map[string]int64
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		byID:    make(map[int64]*domain.Transaction),
		byTrans: make(map[string]int64),
	}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a new transaction. Returns ErrDuplicateKey if trans_num exists.
func (s *TransactionStore) Insert(_ context.Context, t *domain.Transaction) error {
	if t == nil || t.TransNum == "" || t.UserID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byTrans[t.TransNum]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	t.ID = s.nextID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	copy := *t
	s.byID[t.ID] = &copy
	s.byTrans[t.TransNum] = t.ID
	return nil
}

// GetByID retrieves a transaction by its ID.
func (s *TransactionStore) GetByID(_ context.Context, id int64) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *t
	return &copy, nil
}

// GetByTransNum retrieves a transaction by its external transaction number.
func (s *TransactionStore) GetByTransNum(_ context.Context, transNum string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTrans[transNum]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *s.byID[id]
	return &copy, nil
}

// PriorTransactions retrieves up to limit transactions for a user strictly
// before the given timestamp, most recent first.
func (s *TransactionStore) PriorTransactions(_ context.Context, userID int64, before time.Time, limit int) ([]*domain.PriorTransaction, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var prior []*domain.PriorTransaction
	for _, t := range s.byID {
		if t.UserID != userID || !t.Time.Before(before) {
			continue
		}
		prior = append(prior, &domain.PriorTransaction{
			Amount:     t.Amount,
			MerchantID: t.MerchantID,
			Time:       t.Time,
		})
	}

	sort.Slice(prior, func(i, j int) bool {
		return prior[i].Time.After(prior[j].Time)
	})

	if len(prior) > limit {
		prior = prior[:limit]
	}
	return prior, nil
}

// SetFraudProbability writes the scored probability back to a transaction.
func (s *TransactionStore) SetFraudProbability(_ context.Context, id int64, prob float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	t.FraudProb = &prob
	return nil
}

// ClearFraudProbability resets a probability to unset. Test helper for
// exercising replay of interrupted scoring.
func (s *TransactionStore) ClearFraudProbability(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	t.FraudProb = nil
	return nil
}
