package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

// ReportStore implements storage.ReportStore using PostgreSQL.
type ReportStore struct {
	pool *Pool
}

// NewReportStore creates a new ReportStore.
func NewReportStore(pool *Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

const reportColumns = `id, mint_address, reporter_identity, reason, category, status, created_at`

// Insert adds a new report. Returns ErrDuplicateKey if id exists.
func (s *ReportStore) Insert(ctx context.Context, r *domain.Report) error {
	query := `
		INSERT INTO token_reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID,
		r.MintAddress,
		r.ReporterIdentity,
		r.Reason,
		string(r.Category),
		string(r.Status),
		r.CreatedAt,
	)
	if err != nil {
		return translate("insert report", err)
	}
	return nil
}

// GetByMint retrieves all reports for a mint, ordered by created_at ASC.
func (s *ReportStore) GetByMint(ctx context.Context, mint string) ([]*domain.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM token_reports
		WHERE mint_address = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get reports by mint: %w", err)
	}
	defer rows.Close()

	return scanReports(rows)
}

// GetByReporterSince retrieves a reporter's reports created at or after since.
func (s *ReportStore) GetByReporterSince(ctx context.Context, reporter string, since time.Time) ([]*domain.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM token_reports
		WHERE reporter_identity = $1 AND created_at >= $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, reporter, since)
	if err != nil {
		return nil, fmt.Errorf("get reports by reporter: %w", err)
	}
	defer rows.Close()

	return scanReports(rows)
}

// CountPending counts pending reports for a mint.
func (s *ReportStore) CountPending(ctx context.Context, mint string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM token_reports WHERE mint_address = $1 AND status = $2`,
		mint, string(domain.ReportPending),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending reports: %w", err)
	}
	return count, nil
}

// MarkReviewed transitions every pending report for a mint to reviewed.
func (s *ReportStore) MarkReviewed(ctx context.Context, mint string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE token_reports SET status = $1 WHERE mint_address = $2 AND status = $3`,
		string(domain.ReportReviewed), mint, string(domain.ReportPending),
	)
	if err != nil {
		return 0, fmt.Errorf("mark reports reviewed: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// scanReports scans multiple rows into a slice of Report.
func scanReports(rows pgx.Rows) ([]*domain.Report, error) {
	var reports []*domain.Report

	for rows.Next() {
		var r domain.Report
		var category, status string

		err := rows.Scan(
			&r.ID,
			&r.MintAddress,
			&r.ReporterIdentity,
			&r.Reason,
			&category,
			&status,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}

		r.Category = domain.ReportCategory(category)
		r.Status = domain.ReportStatus(status)
		reports = append(reports, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}

	return reports, nil
}
