package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

// AssessmentHistoryStore implements storage.AssessmentHistoryStore using ClickHouse.
type AssessmentHistoryStore struct {
	conn *Conn
}

// NewAssessmentHistoryStore creates a new AssessmentHistoryStore.
func NewAssessmentHistoryStore(conn *Conn) *AssessmentHistoryStore {
	return &AssessmentHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AssessmentHistoryStore = (*AssessmentHistoryStore)(nil)

const historyColumns = `mint_address, network, risk_score, status, warnings, buy_tax, sell_tax,
	tax_type, liquidity_status, confidence, lp_status, trigger_source, verified_at`

// Append adds an assessment snapshot.
func (s *AssessmentHistoryStore) Append(ctx context.Context, a *domain.AssessmentRecord) error {
	if a == nil || a.MintAddress == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO assessment_history (`+historyColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	var confidence *int32
	if a.Confidence != nil {
		c := int32(*a.Confidence)
		confidence = &c
	}
	warnings := a.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	err = batch.Append(
		a.MintAddress,
		a.Network,
		uint8(a.RiskScore),
		string(a.Status),
		warnings,
		a.BuyTax,
		a.SellTax,
		string(a.TaxType),
		string(a.LiquidityStatus),
		confidence,
		string(a.LPStatus),
		a.Trigger,
		a.VerifiedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByMint retrieves up to limit snapshots for a mint, newest first.
func (s *AssessmentHistoryStore) GetByMint(ctx context.Context, mint string, limit int) ([]*domain.AssessmentRecord, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM assessment_history
		WHERE mint_address = ?
		ORDER BY verified_at DESC
	`
	args := []interface{}{mint}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history by mint: %w", err)
	}
	defer rows.Close()

	return scanAssessmentHistory(rows)
}

func scanAssessmentHistory(rows driver.Rows) ([]*domain.AssessmentRecord, error) {
	var records []*domain.AssessmentRecord

	for rows.Next() {
		var (
			r                                    domain.AssessmentRecord
			score                                uint8
			status, taxType, liqStatus, lpStatus string
			confidence                           *int32
			verifiedAt                           time.Time
		)

		err := rows.Scan(
			&r.MintAddress,
			&r.Network,
			&score,
			&status,
			&r.Warnings,
			&r.BuyTax,
			&r.SellTax,
			&taxType,
			&liqStatus,
			&confidence,
			&lpStatus,
			&r.Trigger,
			&verifiedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		r.RiskScore = int(score)
		r.Status = domain.VerificationStatus(status)
		r.TaxType = domain.TaxType(taxType)
		r.LiquidityStatus = domain.LiquidityStatus(liqStatus)
		r.LPStatus = domain.LPStatus(lpStatus)
		if confidence != nil {
			c := int(*confidence)
			r.Confidence = &c
		}
		r.VerifiedAt = verifiedAt.UTC()
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return records, nil
}
