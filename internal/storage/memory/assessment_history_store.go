package memory

import (
	"context"
	"sync"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

// AssessmentHistoryStore is an in-memory implementation of storage.AssessmentHistoryStore.
type AssessmentHistoryStore struct {
	mu     sync.RWMutex
	byMint map[string][]*domain.AssessmentRecord // append order
}

// NewAssessmentHistoryStore creates a new in-memory assessment history store.
func NewAssessmentHistoryStore() *AssessmentHistoryStore {
	return &AssessmentHistoryStore{
		byMint: make(map[string][]*domain.AssessmentRecord),
	}
}

// Append adds an assessment snapshot.
func (s *AssessmentHistoryStore) Append(_ context.Context, a *domain.AssessmentRecord) error {
	if a == nil || a.MintAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recCopy := *a
	recCopy.Warnings = append([]string(nil), a.Warnings...)
	s.byMint[a.MintAddress] = append(s.byMint[a.MintAddress], &recCopy)
	return nil
}

// GetByMint retrieves up to limit snapshots for a mint, newest first.
func (s *AssessmentHistoryStore) GetByMint(_ context.Context, mint string, limit int) ([]*domain.AssessmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.byMint[mint]
	result := make([]*domain.AssessmentRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		recCopy := *records[i]
		result = append(result, &recCopy)
	}
	return result, nil
}

var _ storage.AssessmentHistoryStore = (*AssessmentHistoryStore)(nil)
