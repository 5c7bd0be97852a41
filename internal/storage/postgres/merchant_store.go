package postgres

import (
	"context"
	"fmt"

	"fraudscore/internal/domain"
	"fraudscore/internal/storage"
)

// MerchantStore implements storage.MerchantStore using PostgreSQL.
type MerchantStore struct {
	pool *Pool
}

// NewMerchantStore creates a new MerchantStore.
func NewMerchantStore(pool *Pool) *MerchantStore {
	return &MerchantStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MerchantStore = (*MerchantStore)(nil)

// Insert adds a new merchant. Returns ErrDuplicateKey if name exists.
func (s *MerchantStore) Insert(ctx context.Context, m *domain.Merchant) error {
	query := `
		INSERT INTO merchants (name, category, merch_lat, merch_long)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		m.Name, m.Category, m.Lat, m.Long,
	).Scan(&m.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert merchant: %w", err)
	}
	return nil
}

// GetByName retrieves a merchant by name. Returns ErrNotFound if not exists.
func (s *MerchantStore) GetByName(ctx context.Context, name string) (*domain.Merchant, error) {
	query := `
		SELECT id, name, category, merch_lat, merch_long
		FROM merchants
		WHERE name = $1
	`

	var m domain.Merchant
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&m.ID, &m.Name, &m.Category, &m.Lat, &m.Long,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get merchant by name: %w", err)
	}
	return &m, nil
}
