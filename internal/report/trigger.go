// Package report accepts abuse reports and re-scores mints that accumulate enough of them.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"x1-token-verifier/internal/address"
	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

// Reanalyzer re-scores a mint.
type Reanalyzer interface {
	Reanalyze(ctx context.Context, mint string) (*domain.RiskAssessment, error)
}

// Config holds trigger parameters.
type Config struct {
	MaxReportsPerUser int
	AbuseWindow       time.Duration
	Threshold         int
	Logger            logrus.FieldLogger
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		MaxReportsPerUser: domain.MaxReportsPerUser,
		AbuseWindow:       domain.AbuseWindow,
		Threshold:         domain.ReportThreshold,
		Logger:            logrus.StandardLogger(),
	}
}

// Input is a report submission.
type Input struct {
	MintAddress      string
	ReporterIdentity string
	Reason           string
	Category         domain.ReportCategory // defaults to suspicious
}

// Result describes the outcome of an accepted submission.
type Result struct {
	Accepted         bool   `json:"accepted"`
	ReportID         string `json:"reportId"`
	ReportsCount     int    `json:"reportsCount"`
	Threshold        int    `json:"threshold"`
	ThresholdReached bool   `json:"thresholdReached"`
	ShouldReanalyze  bool   `json:"shouldReanalyze"`
}

// Trigger records reports and invokes reanalysis at the threshold.
type Trigger struct {
	reports    storage.ReportStore
	locker     storage.Locker
	reanalyzer Reanalyzer
	config     Config
	now        func() time.Time
}

// NewTrigger creates a report trigger.
func NewTrigger(config Config, reports storage.ReportStore, locker storage.Locker, reanalyzer Reanalyzer) *Trigger {
	def := DefaultConfig()
	if config.MaxReportsPerUser <= 0 {
		config.MaxReportsPerUser = def.MaxReportsPerUser
	}
	if config.AbuseWindow <= 0 {
		config.AbuseWindow = def.AbuseWindow
	}
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.Logger == nil {
		config.Logger = def.Logger
	}
	return &Trigger{
		reports:    reports,
		locker:     locker,
		reanalyzer: reanalyzer,
		config:     config,
		now:        time.Now,
	}
}

// SubmitReport validates and stores a report.
//
// A reporter with MaxReportsPerUser reports inside AbuseWindow, across all
// mints, is rejected with *domain.RateLimitError. When the mint's pending
// count reaches Threshold the mint is reanalyzed and all its pending reports
// become reviewed. Reanalysis failures are logged and do not fail the call.
//
// Work is serialized per reporter and per mint, always in that order.
func (t *Trigger) SubmitReport(ctx context.Context, in Input) (*Result, error) {
	in.MintAddress = strings.TrimSpace(in.MintAddress)
	in.Reason = strings.TrimSpace(in.Reason)
	in.ReporterIdentity = strings.TrimSpace(in.ReporterIdentity)

	if err := validate(&in); err != nil {
		return nil, err
	}

	unlockReporter, err := t.locker.Lock(ctx, "reporter:"+in.ReporterIdentity)
	if err != nil {
		return nil, fmt.Errorf("lock reporter: %w", err)
	}
	defer unlockReporter()

	unlockMint, err := t.locker.Lock(ctx, "mint:"+in.MintAddress)
	if err != nil {
		return nil, fmt.Errorf("lock mint: %w", err)
	}
	defer unlockMint()

	now := t.now().UTC()
	if err := t.checkRateLimit(ctx, in.ReporterIdentity, now); err != nil {
		return nil, err
	}

	r := &domain.Report{
		ID:               uuid.NewString(),
		MintAddress:      in.MintAddress,
		ReporterIdentity: in.ReporterIdentity,
		Reason:           in.Reason,
		Category:         in.Category,
		Status:           domain.ReportPending,
		CreatedAt:        now,
	}
	if err := t.reports.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}

	pending, err := t.reports.CountPending(ctx, in.MintAddress)
	if err != nil {
		return nil, fmt.Errorf("count pending reports: %w", err)
	}

	result := &Result{
		Accepted:     true,
		ReportID:     r.ID,
		ReportsCount: pending,
		Threshold:    t.config.Threshold,
	}
	if pending < t.config.Threshold {
		return result, nil
	}

	result.ThresholdReached = true
	result.ShouldReanalyze = true
	t.reanalyze(ctx, in.MintAddress, pending)
	return result, nil
}

func (t *Trigger) checkRateLimit(ctx context.Context, reporter string, now time.Time) error {
	recent, err := t.reports.GetByReporterSince(ctx, reporter, now.Add(-t.config.AbuseWindow))
	if err != nil {
		return fmt.Errorf("load reporter history: %w", err)
	}
	if len(recent) < t.config.MaxReportsPerUser {
		return nil
	}

	// The window frees a slot when the oldest report in it expires.
	retryAfter := recent[0].CreatedAt.Add(t.config.AbuseWindow).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &domain.RateLimitError{
		Limit:      t.config.MaxReportsPerUser,
		Window:     t.config.AbuseWindow,
		RetryAfter: retryAfter,
	}
}

func (t *Trigger) reanalyze(ctx context.Context, mint string, pending int) {
	log := t.config.Logger.WithFields(logrus.Fields{"mint": mint, "pending": pending})
	log.Info("[report] threshold reached, reanalyzing")

	if _, err := t.reanalyzer.Reanalyze(ctx, mint); err != nil {
		log.Errorf("[report] reanalysis failed: %v", err)
	}

	n, err := t.reports.MarkReviewed(ctx, mint)
	if err != nil {
		log.Errorf("[report] mark reviewed failed: %v", err)
		return
	}
	log.Infof("[report] marked %d reports reviewed", n)
}

func validate(in *Input) error {
	if in.MintAddress == "" {
		return domain.InvalidInput("mintAddress is required")
	}
	if err := address.Validate(in.MintAddress); err != nil {
		return domain.InvalidInput("mintAddress: %v", err)
	}
	if in.Reason == "" {
		return domain.InvalidInput("reason is required")
	}
	if in.ReporterIdentity == "" {
		return domain.InvalidInput("reporter identity is required")
	}
	if in.Category == "" {
		in.Category = domain.CategorySuspicious
	}
	if !in.Category.IsValid() {
		return domain.InvalidInput("unknown category %q", in.Category)
	}
	return nil
}
