package memory

import (
	"context"
	"sync"

	"fraudscore/internal/domain"
	"fraudscore/internal/storage"
)

// MerchantStore is an in-memory implementation of storage.MerchantStore.
type MerchantStore struct {
	mu     sync.RWMutex
	nextID int64
	byName map[string]*domain.Merchant
}

// NewMerchantStore creates a new in-memory merchant store.
func NewMerchantStore() *MerchantStore {
	return &MerchantStore{byName: make(map[string]*domain.Merchant)}
}

// Compile-time interface check.
var _ storage.MerchantStore = (*MerchantStore)(nil)

// Insert adds a new merchant. Returns ErrDuplicateKey if name exists.
func (s *MerchantStore) Insert(_ context.Context, m *domain.Merchant) error {
	if m == nil || m.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[m.Name]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	m.ID = s.nextID
	copy := *m
	s.byName[m.Name] = &copy
	return nil
}

// GetByName retrieves a merchant by name.
func (s *MerchantStore) GetByName(_ context.Context, name string) (*domain.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.byName[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *m
	return &copy, nil
}
