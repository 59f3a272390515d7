package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x1-token-verifier/internal/domain"
)

func strPtr(s string) *string { return &s }

func fixedClock() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func cleanFacts() *domain.MintFacts {
	return &domain.MintFacts{MintAddress: "mint", ProgramType: domain.ProgramSPL, Extensions: domain.ExtensionSet{}}
}

func lockedLiquidity() domain.LiquidityProfile {
	return domain.LiquidityProfile{Status: domain.LiquidityPresent, HasLiquidity: true, LPStatus: domain.LPLocked}
}

func TestScore_CleanTokenIsZero(t *testing.T) {
	e := DefaultEngine().WithClock(fixedClock)

	a := e.Score(cleanFacts(), domain.NoTax(), lockedLiquidity())

	assert.Equal(t, 0, a.RiskScore)
	assert.Equal(t, domain.StatusAutoVerified, a.Status)
	assert.Empty(t, a.Warnings)
	assert.NotNil(t, a.Warnings)
	assert.Equal(t, fixedClock(), a.VerifiedAt)
}

func TestScore_WorstCaseIsCapped(t *testing.T) {
	facts := cleanFacts()
	facts.MintAuthority = strPtr("authority")
	facts.FreezeAuthority = strPtr("authority")
	ts := domain.TaxStructure{BuyTax: 7, SellTax: 7, TaxType: domain.TaxFixed}

	a := DefaultEngine().Score(facts, ts, domain.LiquidityProfile{HasLiquidity: false})

	assert.Equal(t, 100, a.RiskScore)
	assert.Equal(t, domain.StatusFlagged, a.Status)
	assert.Equal(t, []string{
		WarnMintAuthority,
		WarnFreezeAuthority,
		"High buy tax: 7%",
		"High sell tax: 7%",
		WarnMintable,
		WarnNoLiquidity,
	}, a.Warnings)
}

func TestScore_OverflowIsCapped(t *testing.T) {
	facts := cleanFacts()
	facts.MintAuthority = strPtr("authority")
	facts.FreezeAuthority = strPtr("authority")
	ts := domain.TaxStructure{BuyTax: 9.5, SellTax: 12}

	a := DefaultEngine().Score(facts, ts, domain.UnknownLiquidity("rpc down"))

	assert.Equal(t, domain.MaxScore, a.RiskScore)
	assert.Contains(t, a.Warnings, WarnUnknownLiquidity)
	assert.NotContains(t, a.Warnings, WarnNoLiquidity)
	assert.Contains(t, a.Warnings, "High buy tax: 9.5%")
}

func TestScore_MintAuthorityFloor(t *testing.T) {
	facts := cleanFacts()
	facts.MintAuthority = strPtr("authority")

	a := DefaultEngine().Score(facts, domain.NoTax(), lockedLiquidity())

	assert.GreaterOrEqual(t, a.RiskScore, 30)
	assert.Equal(t, PointsMintAuthority+PointsMintable, a.RiskScore)
	assert.Equal(t, []string{WarnMintAuthority, WarnMintable}, a.Warnings)
}

func TestScore_TaxAtThresholdIsNotPenalized(t *testing.T) {
	ts := domain.TaxStructure{BuyTax: 5, SellTax: 5}

	a := DefaultEngine().Score(cleanFacts(), ts, lockedLiquidity())
	assert.Equal(t, 0, a.RiskScore)
}

func TestScore_UnlockedLiquidity(t *testing.T) {
	liq := domain.LiquidityProfile{Status: domain.LiquidityPresent, HasLiquidity: true, LPStatus: domain.LPUnlocked}

	a := DefaultEngine().Score(cleanFacts(), domain.NoTax(), liq)
	assert.Equal(t, PointsUnlockedLP, a.RiskScore)
	assert.Equal(t, []string{WarnUnlockedLP}, a.Warnings)
}

func TestScore_NoLiquidityAndUnlockedAreExclusive(t *testing.T) {
	liq := domain.LiquidityProfile{Status: domain.LiquidityAbsent, HasLiquidity: false, LPStatus: domain.LPUnlocked}

	a := DefaultEngine().Score(cleanFacts(), domain.NoTax(), liq)
	assert.Equal(t, PointsNoLiquidity, a.RiskScore)
	assert.Equal(t, []string{WarnNoLiquidity}, a.Warnings)
}

func TestScore_Idempotent(t *testing.T) {
	facts := cleanFacts()
	facts.FreezeAuthority = strPtr("authority")
	ts := domain.TaxStructure{BuyTax: 6, SellTax: 2}
	liq := domain.LiquidityProfile{Status: domain.LiquidityPresent, HasLiquidity: true, LPStatus: domain.LPUnlocked}

	e := DefaultEngine()
	first := e.Score(facts, ts, liq)
	second := e.Score(facts, ts, liq)

	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Equal(t, first.Warnings, second.Warnings)
	assert.Equal(t, first.Status, second.Status)
}

// TestScore_StatusMatchesBands checks every rule combination.
func TestScore_StatusMatchesBands(t *testing.T) {
	e := DefaultEngine()

	for mask := 0; mask < 1<<5; mask++ {
		facts := cleanFacts()
		ts := domain.NoTax()
		liq := lockedLiquidity()

		if mask&1 != 0 {
			facts.MintAuthority = strPtr("a")
		}
		if mask&2 != 0 {
			facts.FreezeAuthority = strPtr("f")
		}
		if mask&4 != 0 {
			ts.BuyTax = 10
		}
		if mask&8 != 0 {
			ts.SellTax = 10
		}
		if mask&16 != 0 {
			liq = domain.LiquidityProfile{Status: domain.LiquidityAbsent}
		}

		a := e.Score(facts, ts, liq)
		require.GreaterOrEqual(t, a.RiskScore, 0)
		require.LessOrEqual(t, a.RiskScore, 100)

		switch {
		case a.RiskScore <= 50:
			assert.Equal(t, domain.StatusAutoVerified, a.Status, "mask %d", mask)
		case a.RiskScore <= 80:
			assert.Equal(t, domain.StatusRisky, a.Status, "mask %d", mask)
		default:
			assert.Equal(t, domain.StatusFlagged, a.Status, "mask %d", mask)
		}
		if mask&1 != 0 {
			assert.GreaterOrEqual(t, a.RiskScore, 30)
		}
	}
}

func TestStatusForScore_Boundaries(t *testing.T) {
	assert.Equal(t, domain.StatusAutoVerified, domain.StatusForScore(0))
	assert.Equal(t, domain.StatusAutoVerified, domain.StatusForScore(50))
	assert.Equal(t, domain.StatusRisky, domain.StatusForScore(51))
	assert.Equal(t, domain.StatusRisky, domain.StatusForScore(80))
	assert.Equal(t, domain.StatusFlagged, domain.StatusForScore(81))
	assert.Equal(t, domain.StatusFlagged, domain.StatusForScore(100))
}

type fixedRule struct{}

func (fixedRule) Name() string { return "fixed" }

func (fixedRule) Evaluate(*Input) *Deduction {
	return &Deduction{Rule: "fixed", Points: 60, Warning: "custom"}
}

func TestEngine_Register(t *testing.T) {
	e := NewEngine()
	e.Register(fixedRule{})

	a := e.Score(cleanFacts(), domain.NoTax(), lockedLiquidity())
	assert.Equal(t, 60, a.RiskScore)
	assert.Equal(t, domain.StatusRisky, a.Status)
	assert.Equal(t, []string{"custom"}, a.Warnings)
}
