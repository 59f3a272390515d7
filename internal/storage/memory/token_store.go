package memory

import (
	"context"
	"sort"
	"sync"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu     sync.RWMutex
	byMint map[string]*domain.TokenRecord
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		byMint: make(map[string]*domain.TokenRecord),
	}
}

// Upsert inserts or replaces the record for MintAddress.
// Nil metadata fields keep the previously stored value.
func (s *TokenStore) Upsert(_ context.Context, t *domain.TokenRecord) error {
	if t == nil || t.MintAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := copyToken(t)
	if prev, ok := s.byMint[t.MintAddress]; ok {
		if c.Name == nil {
			c.Name = prev.Name
		}
		if c.Symbol == nil {
			c.Symbol = prev.Symbol
		}
		if c.URI == nil {
			c.URI = prev.URI
		}
	}
	s.byMint[t.MintAddress] = c
	return nil
}

// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byMint[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyToken(t), nil
}

// ListMints returns all tracked mint addresses, ordered by mint ASC.
func (s *TokenStore) ListMints(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mints := make([]string, 0, len(s.byMint))
	for mint := range s.byMint {
		mints = append(mints, mint)
	}
	sort.Strings(mints)
	return mints, nil
}

func copyToken(t *domain.TokenRecord) *domain.TokenRecord {
	c := *t
	c.Warnings = append([]string(nil), t.Warnings...)
	return &c
}

var _ storage.TokenStore = (*TokenStore)(nil)
