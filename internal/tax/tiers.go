package tax

import (
	"github.com/shopspring/decimal"

	"x1-token-verifier/internal/domain"
)

// Side is the trade direction a tax applies to.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// bounds are inclusive upper limits in percent.
type bounds struct {
	acceptable decimal.Decimal
	risky      decimal.Decimal
}

var tierTable = map[domain.ProgramType]map[Side]bounds{
	domain.ProgramSPL: {
		Buy:  {acceptable: decimal.NewFromInt(3), risky: decimal.NewFromInt(6)},
		Sell: {acceptable: decimal.NewFromInt(6), risky: decimal.NewFromInt(10)},
	},
	domain.ProgramToken2022: {
		Buy:  {acceptable: decimal.NewFromInt(5), risky: decimal.NewFromInt(8)},
		Sell: {acceptable: decimal.NewFromInt(8), risky: decimal.NewFromInt(12)},
	},
}

// Classify maps a tax percentage to its severity tier for the program type.
// Unknown program types use the stricter SPL row.
func Classify(programType domain.ProgramType, side Side, percent float64) domain.TaxTier {
	row, ok := tierTable[programType]
	if !ok {
		row = tierTable[domain.ProgramSPL]
	}
	b := row[side]

	p := decimal.NewFromFloat(percent)
	switch {
	case p.LessThanOrEqual(b.acceptable):
		return domain.TierAcceptable
	case p.LessThanOrEqual(b.risky):
		return domain.TierMedium
	default:
		return domain.TierHigh
	}
}

// BasisPointsToPercent converts fee basis points to a percentage.
func BasisPointsToPercent(bps uint16) float64 {
	f, _ := decimal.NewFromInt(int64(bps)).Div(decimal.NewFromInt(100)).Float64()
	return f
}
