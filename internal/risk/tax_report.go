package risk

import (
	"context"
	"strings"
	"time"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/tax"
)

// RiskLevel is the coarse severity of a tax report.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// VerificationAction is the recommended handling of a tax report.
type VerificationAction string

const (
	ActionAutoVerify   VerificationAction = "auto_verify"
	ActionManualReview VerificationAction = "manual_review"
	ActionFlag         VerificationAction = "flag"
)

// TaxReport is the AnalyzeTax result.
type TaxReport struct {
	MintAddress        string                 `json:"mintAddress"`
	ProgramType        domain.ProgramType     `json:"programType"`
	Tax                domain.TaxStructure    `json:"taxStructure"`
	HasLiquidity       bool                   `json:"hasLiquidity"`
	LiquidityStatus    domain.LiquidityStatus `json:"liquidityStatus"`
	LPStatus           domain.LPStatus        `json:"lpStatus"`
	BuybackDetected    bool                   `json:"buybackDetected"`
	BuyTier            domain.TaxTier         `json:"buyTier"`
	SellTier           domain.TaxTier         `json:"sellTier"`
	RiskLevel          RiskLevel              `json:"riskLevel"`
	VerificationAction VerificationAction     `json:"verificationAction"`
	AnalyzedAt         time.Time              `json:"analyzedAt"`
}

// ParseTokenType maps a caller-supplied token type onto a ProgramType.
// An empty string returns "" meaning "use the on-chain program".
func ParseTokenType(s string) (domain.ProgramType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "spl", "spl-token":
		return domain.ProgramSPL, nil
	case "token2022", "token-2022", "spl-token-2022":
		return domain.ProgramToken2022, nil
	}
	return "", domain.InvalidInput("unsupported tokenType %q", s)
}

// AnalyzeTax inspects the tax structure of mint and classifies its severity.
// tokenType, when set, selects the tier table row instead of the on-chain program.
func (s *Service) AnalyzeTax(ctx context.Context, mint, tokenType string) (*TaxReport, error) {
	if mint == "" {
		return nil, domain.InvalidInput("mintAddress is required")
	}
	override, err := ParseTokenType(tokenType)
	if err != nil {
		return nil, err
	}

	facts, err := s.introspector.GetMintFacts(ctx, mint)
	if err != nil {
		return nil, err
	}
	liquidity := s.detector.DetectLiquidity(ctx, mint)
	ts := s.analyzer.Analyze(ctx, facts, liquidity)

	program := facts.ProgramType
	if override != "" {
		program = override
	}

	report := &TaxReport{
		MintAddress:     mint,
		ProgramType:     program,
		Tax:             ts,
		HasLiquidity:    liquidity.HasLiquidity,
		LiquidityStatus: liquidity.Status,
		LPStatus:        liquidity.LPStatus,
		BuybackDetected: ts.BuybackDetected,
		BuyTier:         tax.Classify(program, tax.Buy, ts.BuyTax),
		SellTier:        tax.Classify(program, tax.Sell, ts.SellTax),
		AnalyzedAt:      s.now().UTC(),
	}
	report.RiskLevel = riskLevel(report.BuyTier, report.SellTier, ts.TaxType)
	report.VerificationAction = actionFor(report.RiskLevel)
	return report, nil
}

// riskLevel takes the worse tier; a dynamic tax is never low.
func riskLevel(buy, sell domain.TaxTier, taxType domain.TaxType) RiskLevel {
	worst := buy
	if sell.Rank() > worst.Rank() {
		worst = sell
	}

	level := RiskLow
	switch worst {
	case domain.TierHigh:
		level = RiskHigh
	case domain.TierMedium:
		level = RiskMedium
	}
	if taxType == domain.TaxDynamic && level == RiskLow {
		level = RiskMedium
	}
	return level
}

func actionFor(level RiskLevel) VerificationAction {
	switch level {
	case RiskHigh:
		return ActionFlag
	case RiskMedium:
		return ActionManualReview
	default:
		return ActionAutoVerify
	}
}
