package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

func sampleRecord(mint string, score int, at time.Time) *domain.AssessmentRecord {
	confidence := 85
	return &domain.AssessmentRecord{
		MintAddress:     mint,
		Network:         "x1-mainnet",
		RiskScore:       score,
		Status:          domain.StatusForScore(score),
		Warnings:        []string{"Liquidity is not locked"},
		BuyTax:          2.5,
		SellTax:         2.5,
		TaxType:         domain.TaxFixed,
		LiquidityStatus: domain.LiquidityPresent,
		Confidence:      &confidence,
		LPStatus:        domain.LPUnlocked,
		Trigger:         domain.TriggerRequest,
		VerifiedAt:      at,
	}
}

func TestAssessmentHistoryStore_AppendAndGetByMint(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAssessmentHistoryStore(conn)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, sampleRecord("MintA", 15, base)))
	require.NoError(t, store.Append(ctx, sampleRecord("MintA", 55, base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, sampleRecord("MintB", 90, base)))

	records, err := store.GetByMint(ctx, "MintA", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	latest := records[0]
	assert.Equal(t, 55, latest.RiskScore)
	assert.Equal(t, domain.StatusRisky, latest.Status)
	assert.Equal(t, []string{"Liquidity is not locked"}, latest.Warnings)
	assert.Equal(t, 2.5, latest.BuyTax)
	assert.Equal(t, domain.TaxFixed, latest.TaxType)
	assert.Equal(t, domain.LiquidityPresent, latest.LiquidityStatus)
	require.NotNil(t, latest.Confidence)
	assert.Equal(t, 85, *latest.Confidence)
	assert.Equal(t, domain.LPUnlocked, latest.LPStatus)
	assert.Equal(t, domain.TriggerRequest, latest.Trigger)
	assert.True(t, base.Add(time.Minute).Equal(latest.VerifiedAt))

	assert.Equal(t, 15, records[1].RiskScore)
}

func TestAssessmentHistoryStore_Limit(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAssessmentHistoryStore(conn)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, sampleRecord("MintA", i*10, base.Add(time.Duration(i)*time.Second))))
	}

	records, err := store.GetByMint(ctx, "MintA", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 40, records[0].RiskScore)
	assert.Equal(t, 30, records[1].RiskScore)
}

func TestAssessmentHistoryStore_NullConfidence(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAssessmentHistoryStore(conn)
	ctx := context.Background()

	rec := sampleRecord("MintA", 25, time.Now().UTC())
	rec.Confidence = nil
	rec.LiquidityStatus = domain.LiquidityUnknown
	rec.LPStatus = domain.LPUnknown
	rec.Warnings = nil
	require.NoError(t, store.Append(ctx, rec))

	records, err := store.GetByMint(ctx, "MintA", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Confidence)
	assert.Empty(t, records[0].Warnings)
	assert.Equal(t, domain.LiquidityUnknown, records[0].LiquidityStatus)
}

func TestAssessmentHistoryStore_AppendRejectsEmptyMint(t *testing.T) {
	store := NewAssessmentHistoryStore(nil)
	err := store.Append(context.Background(), &domain.AssessmentRecord{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestAssessmentHistoryStore_Empty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	records, err := NewAssessmentHistoryStore(conn).GetByMint(context.Background(), "none", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
