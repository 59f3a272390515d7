// Package risk reduces mint facts, tax and liquidity signals into a scored assessment.
package risk

import (
	"time"

	"x1-token-verifier/internal/domain"
)

// Engine evaluates rules in registration order.
type Engine struct {
	rules []Rule
	now   func() time.Time
}

// NewEngine creates an engine with the given rules.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules, now: time.Now}
}

// DefaultEngine returns the engine with the standard rule order.
// Warning order in assessments follows this order.
func DefaultEngine() *Engine {
	return NewEngine(
		&MintAuthorityRule{},
		&FreezeAuthorityRule{},
		&BuyTaxRule{},
		&SellTaxRule{},
		&MintableSupplyRule{},
		&NoLiquidityRule{},
		&UnlockedLiquidityRule{},
	)
}

// WithClock overrides the timestamp source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Register appends a rule.
func (e *Engine) Register(r Rule) {
	e.rules = append(e.rules, r)
}

// Evaluate returns the deductions of every firing rule, in rule order.
func (e *Engine) Evaluate(in *Input) []Deduction {
	var out []Deduction
	for _, r := range e.rules {
		if d := r.Evaluate(in); d != nil {
			out = append(out, *d)
		}
	}
	return out
}

// Score computes the capped risk score, warnings and status.
// For identical inputs the score and warning order are identical.
func (e *Engine) Score(facts *domain.MintFacts, tax domain.TaxStructure, liquidity domain.LiquidityProfile) domain.RiskAssessment {
	deductions := e.Evaluate(&Input{Facts: facts, Tax: tax, Liquidity: liquidity})

	score := 0
	warnings := make([]string, 0, len(deductions))
	for _, d := range deductions {
		score += d.Points
		warnings = append(warnings, d.Warning)
	}
	if score > domain.MaxScore {
		score = domain.MaxScore
	}

	var mint string
	if facts != nil {
		mint = facts.MintAddress
	}

	return domain.RiskAssessment{
		MintAddress: mint,
		RiskScore:   score,
		Warnings:    warnings,
		Status:      domain.StatusForScore(score),
		VerifiedAt:  e.now().UTC(),
	}
}
