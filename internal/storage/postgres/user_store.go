package postgres

import (
	"context"
	"fmt"

	"fraudscore/internal/domain"
	"fraudscore/internal/storage"
)

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	pool *Pool
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

// Insert adds a new user. Returns ErrDuplicateKey if cc_num exists.
func (s *UserStore) Insert(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (
			cc_num, first, last, gender, street, city, state, zip,
			lat, long, city_pop, job, dob
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13
		)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		u.CCNum, u.First, u.Last, u.Gender, u.Street, u.City, u.State, u.Zip,
		u.Lat, u.Long, u.CityPop, u.Job, u.DOB,
	).Scan(&u.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByCCNum retrieves a user by card number. Returns ErrNotFound if not exists.
func (s *UserStore) GetByCCNum(ctx context.Context, ccNum string) (*domain.User, error) {
	query := `
		SELECT id, cc_num, first, last, gender, street, city, state, zip,
		       lat, long, city_pop, job, dob
		FROM users
		WHERE cc_num = $1
	`

	var u domain.User
	err := s.pool.QueryRow(ctx, query, ccNum).Scan(
		&u.ID, &u.CCNum, &u.First, &u.Last, &u.Gender, &u.Street, &u.City, &u.State, &u.Zip,
		&u.Lat, &u.Long, &u.CityPop, &u.Job, &u.DOB,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user by cc_num: %w", err)
	}
	return &u, nil
}
