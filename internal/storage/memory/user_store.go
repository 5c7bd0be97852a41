package memory

import (
	"context"
	"sync"

	"fraudscore/internal/domain"
	"fraudscore/internal/storage"
)

// UserStore is an in-memory implementation of storage.UserStore.
type UserStore struct {
	mu     sync.RWMutex
	nextID int64
	byCC   map[string]*domain.User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{byCC: make(map[string]*domain.User)}
}

// Compile-time interface check.
var _ storage.UserStore = (*UserStore)(nil)

// Insert adds a new user. Returns ErrDuplicateKey if cc_num exists.
func (s *UserStore) Insert(_ context.Context, u *domain.User) error {
	if u == nil || u.CCNum == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCC[u.CCNum]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	u.ID = s.nextID
	copy := *u
	s.byCC[u.CCNum] = &copy
	return nil
}

// GetByCCNum retrieves a user by card number.
func (s *UserStore) GetByCCNum(_ context.Context, ccNum string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byCC[ccNum]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *u
	return &copy, nil
}
