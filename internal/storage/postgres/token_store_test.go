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

func sampleToken(mint string) *domain.TokenRecord {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.TokenRecord{
		MintAddress:            mint,
		Network:                "x1-mainnet",
		ProgramType:            domain.ProgramSPL,
		Name:                   ptr("Test Token"),
		Symbol:                 ptr("TEST"),
		Decimals:               9,
		Supply:                 "1000000000000",
		MintAuthorityRevoked:   true,
		FreezeAuthorityRevoked: false,
		RiskScore:              15,
		Warnings:               []string{"Freeze authority is still active"},
		Status:                 domain.StatusAutoVerified,
		VerifiedAt:             at,
		UpdatedAt:              at,
	}
}

func TestTokenStore_UpsertAndGetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	token := sampleToken("MintAddress111")
	require.NoError(t, store.Upsert(ctx, token))

	retrieved, err := store.GetByMint(ctx, "MintAddress111")
	require.NoError(t, err)

	assert.Equal(t, token.MintAddress, retrieved.MintAddress)
	assert.Equal(t, token.Network, retrieved.Network)
	assert.Equal(t, token.ProgramType, retrieved.ProgramType)
	assert.Equal(t, *token.Name, *retrieved.Name)
	assert.Equal(t, *token.Symbol, *retrieved.Symbol)
	assert.Nil(t, retrieved.URI)
	assert.Equal(t, token.Decimals, retrieved.Decimals)
	assert.Equal(t, token.Supply, retrieved.Supply)
	assert.True(t, retrieved.MintAuthorityRevoked)
	assert.False(t, retrieved.FreezeAuthorityRevoked)
	assert.Equal(t, token.RiskScore, retrieved.RiskScore)
	assert.Equal(t, token.Warnings, retrieved.Warnings)
	assert.Equal(t, token.Status, retrieved.Status)
	assert.True(t, token.VerifiedAt.Equal(retrieved.VerifiedAt))
}

func TestTokenStore_UpsertReplaces(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	token := sampleToken("MintAddress222")
	require.NoError(t, store.Upsert(ctx, token))

	updated := sampleToken("MintAddress222")
	updated.Name = nil
	updated.RiskScore = 85
	updated.Status = domain.StatusFlagged
	updated.Warnings = nil
	updated.UpdatedAt = updated.UpdatedAt.Add(time.Hour)
	require.NoError(t, store.Upsert(ctx, updated))

	retrieved, err := store.GetByMint(ctx, "MintAddress222")
	require.NoError(t, err)

	assert.Equal(t, 85, retrieved.RiskScore)
	assert.Equal(t, domain.StatusFlagged, retrieved.Status)
	assert.Empty(t, retrieved.Warnings)
	// Missing metadata keeps the previously known value.
	require.NotNil(t, retrieved.Name)
	assert.Equal(t, "Test Token", *retrieved.Name)
}

func TestTokenStore_GetByMintNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)

	_, err := store.GetByMint(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_UpsertRejectsEmptyMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)

	err := store.Upsert(context.Background(), &domain.TokenRecord{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestTokenStore_ListMints(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	for _, mint := range []string{"MintC", "MintA", "MintB"} {
		require.NoError(t, store.Upsert(ctx, sampleToken(mint)))
	}

	mints, err := store.ListMints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"MintA", "MintB", "MintC"}, mints)
}
