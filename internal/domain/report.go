package domain

import "time"

// Abuse and reanalysis limits for user reports.
const (
	MaxReportsPerUser = 3
	AbuseWindow       = time.Hour
	ReportThreshold   = 5
)

// ReportCategory classifies a user report.
type ReportCategory string

const (
	CategorySuspicious    ReportCategory = "suspicious"
	CategoryScam          ReportCategory = "scam"
	CategoryRugPull       ReportCategory = "rug_pull"
	CategoryHoneypot      ReportCategory = "honeypot"
	CategoryImpersonation ReportCategory = "impersonation"
	CategoryOther         ReportCategory = "other"
)

// IsValid checks if the category is a known value.
func (c ReportCategory) IsValid() bool {
	switch c {
	case CategorySuspicious, CategoryScam, CategoryRugPull, CategoryHoneypot, CategoryImpersonation, CategoryOther:
		return true
	}
	return false
}

// ReportStatus is the review state of a report.
type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportReviewed ReportStatus = "reviewed"
)

// Report is one user complaint against a mint.
// Corresponds to token_reports table in PostgreSQL.
type Report struct {
	ID               string         `json:"id" bson:"_id"`
	MintAddress      string         `json:"mintAddress" bson:"mint_address"`
	ReporterIdentity string         `json:"reporterIdentity" bson:"reporter_identity"`
	Reason           string         `json:"reason" bson:"reason"`
	Category         ReportCategory `json:"category" bson:"category"`
	Status           ReportStatus   `json:"status" bson:"status"`
	CreatedAt        time.Time      `json:"createdAt" bson:"created_at"`
}
