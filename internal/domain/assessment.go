package domain

import "time"

// VerificationStatus is the discrete classification of a risk score.
type VerificationStatus string

const (
	StatusAutoVerified VerificationStatus = "auto_verified"
	StatusRisky        VerificationStatus = "risky"
	StatusFlagged      VerificationStatus = "flagged"
)

// Status thresholds (inclusive upper bounds).
const (
	MaxScore           = 100
	AutoVerifiedCutoff = 50
	RiskyCutoff        = 80
)

// StatusForScore maps a capped score onto a VerificationStatus.
func StatusForScore(score int) VerificationStatus {
	switch {
	case score <= AutoVerifiedCutoff:
		return StatusAutoVerified
	case score <= RiskyCutoff:
		return StatusRisky
	default:
		return StatusFlagged
	}
}

// RiskAssessment is the scoring engine output for a mint.
type RiskAssessment struct {
	MintAddress string             `json:"mintAddress"`
	RiskScore   int                `json:"riskScore"`
	Warnings    []string           `json:"warnings"`
	Status      VerificationStatus `json:"status"`
	VerifiedAt  time.Time          `json:"verifiedAt"`
}

// Assessment triggers recorded in history.
const (
	TriggerRequest    = "request"
	TriggerReanalysis = "reanalysis"
)

// AssessmentRecord is one row of assessment history.
// Corresponds to assessment_history table in ClickHouse.
type AssessmentRecord struct {
	MintAddress     string             `json:"mintAddress"`
	Network         string             `json:"network"`
	RiskScore       int                `json:"riskScore"`
	Status          VerificationStatus `json:"status"`
	Warnings        []string           `json:"warnings"`
	BuyTax          float64            `json:"buyTax"`
	SellTax         float64            `json:"sellTax"`
	TaxType         TaxType            `json:"taxType"`
	LiquidityStatus LiquidityStatus    `json:"liquidityStatus"`
	Confidence      *int               `json:"confidence"`
	LPStatus        LPStatus           `json:"lpStatus"`
	Trigger         string             `json:"trigger"`
	VerifiedAt      time.Time          `json:"verifiedAt"`
}
