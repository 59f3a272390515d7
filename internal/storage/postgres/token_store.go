package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `mint_address, network, program_type, name, symbol, uri, decimals, supply,
	mint_authority_revoked, freeze_authority_revoked, risk_score, warnings, status, verified_at, updated_at`

// Upsert inserts the record or replaces the existing one for mint_address.
func (s *TokenStore) Upsert(ctx context.Context, t *domain.TokenRecord) error {
	if t == nil || t.MintAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO verified_tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (mint_address) DO UPDATE SET
			network = EXCLUDED.network,
			program_type = EXCLUDED.program_type,
			name = COALESCE(EXCLUDED.name, verified_tokens.name),
			symbol = COALESCE(EXCLUDED.symbol, verified_tokens.symbol),
			uri = COALESCE(EXCLUDED.uri, verified_tokens.uri),
			decimals = EXCLUDED.decimals,
			supply = EXCLUDED.supply,
			mint_authority_revoked = EXCLUDED.mint_authority_revoked,
			freeze_authority_revoked = EXCLUDED.freeze_authority_revoked,
			risk_score = EXCLUDED.risk_score,
			warnings = EXCLUDED.warnings,
			status = EXCLUDED.status,
			verified_at = EXCLUDED.verified_at,
			updated_at = EXCLUDED.updated_at
	`

	warnings := t.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	_, err := s.pool.Exec(ctx, query,
		t.MintAddress,
		t.Network,
		string(t.ProgramType),
		t.Name,
		t.Symbol,
		t.URI,
		t.Decimals,
		t.Supply,
		t.MintAuthorityRevoked,
		t.FreezeAuthorityRevoked,
		t.RiskScore,
		warnings,
		string(t.Status),
		t.VerifiedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM verified_tokens WHERE mint_address = $1`

	t, err := scanToken(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		return nil, translate("get token by mint", err)
	}
	return t, nil
}

// ListMints returns all tracked mint addresses, ordered by mint ASC.
func (s *TokenStore) ListMints(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT mint_address FROM verified_tokens ORDER BY mint_address ASC`)
	if err != nil {
		return nil, fmt.Errorf("list mints: %w", err)
	}

	mints, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan mint rows: %w", err)
	}
	return mints, nil
}

// scanToken scans a single row into a TokenRecord.
func scanToken(row pgx.Row) (*domain.TokenRecord, error) {
	var t domain.TokenRecord
	var programType, status string

	err := row.Scan(
		&t.MintAddress,
		&t.Network,
		&programType,
		&t.Name,
		&t.Symbol,
		&t.URI,
		&t.Decimals,
		&t.Supply,
		&t.MintAuthorityRevoked,
		&t.FreezeAuthorityRevoked,
		&t.RiskScore,
		&t.Warnings,
		&status,
		&t.VerifiedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ProgramType = domain.ProgramType(programType)
	t.Status = domain.VerificationStatus(status)
	return &t, nil
}
