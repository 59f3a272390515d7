package storage

import (
	"context"
	"time"

	"x1-token-verifier/internal/domain"
)

// TokenStore provides access to verified_tokens storage.
type TokenStore interface {
	// Upsert inserts the record or replaces the existing one for MintAddress.
	// Nil Name, Symbol or URI keep the previously stored values.
	Upsert(ctx context.Context, t *domain.TokenRecord) error

	// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenRecord, error)

	// ListMints returns all tracked mint addresses, ordered by mint ASC.
	ListMints(ctx context.Context) ([]string, error)
}

// ReportStore provides access to token_reports storage.
type ReportStore interface {
	// Insert adds a new report. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, r *domain.Report) error

	// GetByMint retrieves all reports for a mint, ordered by created_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Report, error)

	// GetByReporterSince retrieves a reporter's reports created at or after since,
	// across all mints, ordered by created_at ASC.
	GetByReporterSince(ctx context.Context, reporter string, since time.Time) ([]*domain.Report, error)

	// CountPending counts reports for a mint with status pending.
	CountPending(ctx context.Context, mint string) (int, error)

	// MarkReviewed transitions every pending report for a mint to reviewed.
	// Returns the number of reports updated.
	MarkReviewed(ctx context.Context, mint string) (int, error)
}

// AssessmentHistoryStore provides access to the append-only assessment_history table.
type AssessmentHistoryStore interface {
	// Append adds an assessment snapshot.
	Append(ctx context.Context, a *domain.AssessmentRecord) error

	// GetByMint retrieves up to limit snapshots for a mint, newest first.
	// A non-positive limit returns all snapshots.
	GetByMint(ctx context.Context, mint string, limit int) ([]*domain.AssessmentRecord, error)
}

// Locker serializes work on a key across goroutines or processes.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
