package storage

import (
	"context"
	"time"

	"fraudscore/internal/domain"
)

// UserStore provides access to users storage.
type UserStore interface {
	// Insert adds a new user and fills in the generated ID.
	// Returns ErrDuplicateKey if cc_num exists.
	Insert(ctx context.Context, u *domain.User) error

	// GetByCCNum retrieves a user by card number. Returns ErrNotFound if not exists.
	GetByCCNum(ctx context.Context, ccNum string) (*domain.User, error)
}

// MerchantStore provides access to merchants storage.
type MerchantStore interface {
	// Insert adds a new merchant and fills in the generated ID.
	// Returns ErrDuplicateKey if name exists.
	Insert(ctx context.Context, m *domain.Merchant) error

	// GetByName retrieves a merchant by name. Returns ErrNotFound if not exists.
	GetByName(ctx context.Context, name string) (*domain.Merchant, error)
}

// TransactionStore provides access to transactions storage.
type TransactionStore interface {
	// Insert adds a new transaction and fills in the generated ID.
	// Returns ErrDuplicateKey if trans_num exists.
	Insert(ctx context.Context, t *domain.Transaction) error

	// GetByID retrieves a transaction by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)

	// GetByTransNum retrieves a transaction by its external transaction
	// number. Returns ErrNotFound if not exists.
	GetByTransNum(ctx context.Context, transNum string) (*domain.Transaction, error)

	// PriorTransactions retrieves up to limit transactions for a user strictly
	// before the given timestamp, most recent first. A read must never observe
	// a partially written row.
	PriorTransactions(ctx context.Context, userID int64, before time.Time, limit int) ([]*domain.PriorTransaction, error)

	// SetFraudProbability writes the scored probability back to a transaction.
	// Returns ErrNotFound if the transaction does not exist.
	SetFraudProbability(ctx context.Context, id int64, prob float64) error
}

// ScoreEventStore provides access to score_events analytics storage.
type ScoreEventStore interface {
	// Insert appends a score event.
	Insert(ctx context.Context, e *domain.ScoreEvent) error
}
