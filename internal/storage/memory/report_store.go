package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

// ReportStore is an in-memory implementation of storage.ReportStore.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]*domain.Report // keyed by id
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]*domain.Report),
	}
}

// Insert adds a new report. Returns ErrDuplicateKey if id exists.
func (s *ReportStore) Insert(_ context.Context, r *domain.Report) error {
	if r == nil || r.ID == "" || r.MintAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[r.ID]; exists {
		return storage.ErrDuplicateKey
	}
	reportCopy := *r
	s.reports[r.ID] = &reportCopy
	return nil
}

// GetByMint retrieves all reports for a mint, ordered by created_at ASC.
func (s *ReportStore) GetByMint(_ context.Context, mint string) ([]*domain.Report, error) {
	return s.filter(func(r *domain.Report) bool { return r.MintAddress == mint }), nil
}

// GetByReporterSince retrieves a reporter's reports created at or after since.
func (s *ReportStore) GetByReporterSince(_ context.Context, reporter string, since time.Time) ([]*domain.Report, error) {
	return s.filter(func(r *domain.Report) bool {
		return r.ReporterIdentity == reporter && !r.CreatedAt.Before(since)
	}), nil
}

// CountPending counts pending reports for a mint.
func (s *ReportStore) CountPending(_ context.Context, mint string) (int, error) {
	return len(s.filter(func(r *domain.Report) bool {
		return r.MintAddress == mint && r.Status == domain.ReportPending
	})), nil
}

// MarkReviewed transitions every pending report for a mint to reviewed.
func (s *ReportStore) MarkReviewed(_ context.Context, mint string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.reports {
		if r.MintAddress == mint && r.Status == domain.ReportPending {
			r.Status = domain.ReportReviewed
			n++
		}
	}
	return n, nil
}

func (s *ReportStore) filter(keep func(*domain.Report) bool) []*domain.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Report
	for _, r := range s.reports {
		if keep(r) {
			reportCopy := *r
			result = append(result, &reportCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

var _ storage.ReportStore = (*ReportStore)(nil)
