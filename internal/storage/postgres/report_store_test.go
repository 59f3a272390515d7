package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

var reportBase = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleReport(id, mint, reporter string, offset time.Duration) *domain.Report {
	return &domain.Report{
		ID:               id,
		MintAddress:      mint,
		ReporterIdentity: reporter,
		Reason:           "looks like a rug",
		Category:         domain.CategoryRugPull,
		Status:           domain.ReportPending,
		CreatedAt:        reportBase.Add(offset),
	}
}

func TestReportStore_InsertAndGetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReportStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleReport("r2", "MintA", "alice", time.Minute)))
	require.NoError(t, store.Insert(ctx, sampleReport("r1", "MintA", "bob", 0)))
	require.NoError(t, store.Insert(ctx, sampleReport("r3", "MintB", "alice", 0)))

	reports, err := store.GetByMint(ctx, "MintA")
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "r1", reports[0].ID)
	assert.Equal(t, "r2", reports[1].ID)
	assert.Equal(t, domain.CategoryRugPull, reports[0].Category)
	assert.Equal(t, domain.ReportPending, reports[0].Status)
	assert.Equal(t, "bob", reports[0].ReporterIdentity)
}

func TestReportStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReportStore(pool)
	ctx := context.Background()

	report := sampleReport("dup", "MintA", "alice", 0)
	require.NoError(t, store.Insert(ctx, report))

	err := store.Insert(ctx, report)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestReportStore_GetByReporterSince(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReportStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleReport("old", "MintA", "alice", -2*time.Hour)))
	require.NoError(t, store.Insert(ctx, sampleReport("new1", "MintA", "alice", 0)))
	require.NoError(t, store.Insert(ctx, sampleReport("new2", "MintB", "alice", 10*time.Minute)))
	require.NoError(t, store.Insert(ctx, sampleReport("other", "MintA", "bob", 0)))

	reports, err := store.GetByReporterSince(ctx, "alice", reportBase.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "new1", reports[0].ID)
	assert.Equal(t, "new2", reports[1].ID)
}

func TestReportStore_CountPendingAndMarkReviewed(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewReportStore(pool)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Insert(ctx, sampleReport(id, "MintA", id, time.Duration(i)*time.Second)))
	}
	require.NoError(t, store.Insert(ctx, sampleReport("d", "MintB", "d", 0)))

	count, err := store.CountPending(ctx, "MintA")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	n, err := store.MarkReviewed(ctx, "MintA")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err = store.CountPending(ctx, "MintA")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Other mints are untouched.
	count, err = store.CountPending(ctx, "MintB")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n, err = store.MarkReviewed(ctx, "MintA")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
