package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

func newReport(id, mint, reporter string, createdAt time.Time) *domain.Report {
	return &domain.Report{
		ID:               id,
		MintAddress:      mint,
		ReporterIdentity: reporter,
		Reason:           "looks like a rug",
		Category:         domain.CategorySuspicious,
		Status:           domain.ReportPending,
		CreatedAt:        createdAt,
	}
}

func TestReportStore_InsertDuplicate(t *testing.T) {
	store := NewReportStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Insert(ctx, newReport("r1", "mint1", "alice", now)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := store.Insert(ctx, newReport("r1", "mint1", "alice", now))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestReportStore_GetByReporterSince(t *testing.T) {
	store := NewReportStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	store.Insert(ctx, newReport("r1", "mint1", "alice", base.Add(-2*time.Hour)))
	store.Insert(ctx, newReport("r2", "mint2", "alice", base.Add(-30*time.Minute)))
	store.Insert(ctx, newReport("r3", "mint1", "alice", base.Add(-10*time.Minute)))
	store.Insert(ctx, newReport("r4", "mint1", "bob", base.Add(-5*time.Minute)))

	got, err := store.GetByReporterSince(ctx, "alice", base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetByReporterSince failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(got))
	}
	if got[0].ID != "r2" || got[1].ID != "r3" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestReportStore_PendingAndMarkReviewed(t *testing.T) {
	store := NewReportStore()
	ctx := context.Background()
	now := time.Now()

	store.Insert(ctx, newReport("r1", "mint1", "a", now))
	store.Insert(ctx, newReport("r2", "mint1", "b", now))
	store.Insert(ctx, newReport("r3", "mint2", "c", now))

	count, _ := store.CountPending(ctx, "mint1")
	if count != 2 {
		t.Fatalf("expected 2 pending, got %d", count)
	}

	n, err := store.MarkReviewed(ctx, "mint1")
	if err != nil {
		t.Fatalf("MarkReviewed failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 updated, got %d", n)
	}

	count, _ = store.CountPending(ctx, "mint1")
	if count != 0 {
		t.Errorf("expected 0 pending after review, got %d", count)
	}
	count, _ = store.CountPending(ctx, "mint2")
	if count != 1 {
		t.Errorf("other mint should be untouched, got %d pending", count)
	}

	reports, _ := store.GetByMint(ctx, "mint1")
	for _, r := range reports {
		if r.Status != domain.ReportReviewed {
			t.Errorf("report %s status = %s, want reviewed", r.ID, r.Status)
		}
	}
}
