package postgres

import (
	"context"
	"fmt"
	"time"

	"fraudscore/internal/domain"
	"fraudscore/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a new transaction. Returns ErrDuplicateKey if trans_num exists.
func (s *TransactionStore) Insert(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			trans_num, user_id, merchant_id, amt, trans_time, unix_time
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		t.TransNum, t.UserID, t.MerchantID, t.Amount, t.Time, t.UnixTime,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by its ID. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `
		SELECT id, trans_num, user_id, merchant_id, amt, trans_time, unix_time,
		       fraud_prob, created_at
		FROM transactions
		WHERE id = $1
	`

	var t domain.Transaction
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.TransNum, &t.UserID, &t.MerchantID, &t.Amount, &t.Time, &t.UnixTime,
		&t.FraudProb, &t.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return &t, nil
}

// GetByTransNum retrieves a transaction by its external transaction number.
// Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByTransNum(ctx context.Context, transNum string) (*domain.Transaction, error) {
	query := `
		SELECT id, trans_num, user_id, merchant_id, amt, trans_time, unix_time,
		       fraud_prob, created_at
		FROM transactions
		WHERE trans_num = $1
	`

	var t domain.Transaction
	err := s.pool.QueryRow(ctx, query, transNum).Scan(
		&t.ID, &t.TransNum, &t.UserID, &t.MerchantID, &t.Amount, &t.Time, &t.UnixTime,
		&t.FraudProb, &t.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by trans_num: %w", err)
	}
	return &t, nil
}

// PriorTransactions retrieves up to limit transactions for a user strictly
// before the given timestamp, most recent first. MVCC guarantees readers
// never see a partially written row.
func (s *TransactionStore) PriorTransactions(ctx context.Context, userID int64, before time.Time, limit int) ([]*domain.PriorTransaction, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT amt, merchant_id, trans_time
		FROM transactions
		WHERE user_id = $1 AND trans_time < $2
		ORDER BY trans_time DESC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, userID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("query prior transactions: %w", err)
	}
	defer rows.Close()

	var prior []*domain.PriorTransaction
	for rows.Next() {
		var p domain.PriorTransaction
		if err := rows.Scan(&p.Amount, &p.MerchantID, &p.Time); err != nil {
			return nil, fmt.Errorf("scan prior transaction: %w", err)
		}
		prior = append(prior, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prior transactions: %w", err)
	}
	return prior, nil
}

// SetFraudProbability writes the scored probability back to a transaction.
func (s *TransactionStore) SetFraudProbability(ctx context.Context, id int64, prob float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE transactions SET fraud_prob = $2 WHERE id = $1`, id, prob)
	if err != nil {
		return fmt.Errorf("set fraud probability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
