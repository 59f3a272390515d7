package risk

import (
	"fmt"
	"strconv"

	"x1-token-verifier/internal/domain"
)

// Rule point values.
const (
	PointsMintAuthority   = 30
	PointsFreezeAuthority = 15
	PointsBuyTax          = 10
	PointsSellTax         = 10
	PointsMintable        = 10
	PointsNoLiquidity     = 25
	PointsUnlockedLP      = 15

	// TaxWarningThreshold is the percent above which buy/sell tax is penalized.
	TaxWarningThreshold = 5.0
)

// Warning texts.
const (
	WarnMintAuthority    = "Mint authority is still active - new tokens can be minted at any time"
	WarnFreezeAuthority  = "Freeze authority is active - token accounts can be frozen"
	WarnMintable         = "Token supply can still be increased"
	WarnNoLiquidity      = "No liquidity pool detected"
	WarnUnknownLiquidity = "Liquidity could not be verified - RPC lookup failed"
	WarnUnlockedLP       = "Liquidity is not locked"
)

// Input is everything a rule may inspect.
type Input struct {
	Facts     *domain.MintFacts
	Tax       domain.TaxStructure
	Liquidity domain.LiquidityProfile
}

// Deduction is the contribution of one triggered rule.
type Deduction struct {
	Rule    string
	Points  int
	Warning string
}

// Rule evaluates one risk signal. Evaluate returns nil when the rule does not fire.
type Rule interface {
	Name() string
	Evaluate(in *Input) *Deduction
}

// MintAuthorityRule fires while the mint authority is still set.
type MintAuthorityRule struct{}

func (r *MintAuthorityRule) Name() string { return "mint-authority" }

func (r *MintAuthorityRule) Evaluate(in *Input) *Deduction {
	if in.Facts == nil || in.Facts.MintAuthorityRevoked() {
		return nil
	}
	return &Deduction{Rule: r.Name(), Points: PointsMintAuthority, Warning: WarnMintAuthority}
}

// FreezeAuthorityRule fires while a freeze authority can still freeze holder accounts.
type FreezeAuthorityRule struct{}

func (r *FreezeAuthorityRule) Name() string { return "freeze-authority" }

func (r *FreezeAuthorityRule) Evaluate(in *Input) *Deduction {
	if in.Facts == nil || in.Facts.FreezeAuthorityRevoked() {
		return nil
	}
	return &Deduction{Rule: r.Name(), Points: PointsFreezeAuthority, Warning: WarnFreezeAuthority}
}

// BuyTaxRule fires when the buy tax exceeds TaxWarningThreshold.
type BuyTaxRule struct{}

func (r *BuyTaxRule) Name() string { return "buy-tax" }

func (r *BuyTaxRule) Evaluate(in *Input) *Deduction {
	if in.Tax.BuyTax <= TaxWarningThreshold {
		return nil
	}
	return &Deduction{
		Rule:    r.Name(),
		Points:  PointsBuyTax,
		Warning: fmt.Sprintf("High buy tax: %s%%", formatPercent(in.Tax.BuyTax)),
	}
}

// SellTaxRule is the sell-side counterpart of BuyTaxRule.
type SellTaxRule struct{}

func (r *SellTaxRule) Name() string { return "sell-tax" }

func (r *SellTaxRule) Evaluate(in *Input) *Deduction {
	if in.Tax.SellTax <= TaxWarningThreshold {
		return nil
	}
	return &Deduction{
		Rule:    r.Name(),
		Points:  PointsSellTax,
		Warning: fmt.Sprintf("High sell tax: %s%%", formatPercent(in.Tax.SellTax)),
	}
}

// MintableSupplyRule fires on the same condition as MintAuthorityRule.
// Both deductions are kept deliberately: one scores the authority, the
// other the open-ended supply.
type MintableSupplyRule struct{}

func (r *MintableSupplyRule) Name() string { return "mintable-supply" }

func (r *MintableSupplyRule) Evaluate(in *Input) *Deduction {
	if in.Facts == nil || in.Facts.MintAuthorityRevoked() {
		return nil
	}
	return &Deduction{Rule: r.Name(), Points: PointsMintable, Warning: WarnMintable}
}

// NoLiquidityRule penalizes absent liquidity, and unknown liquidity under a
// separate warning so the two cases stay distinguishable.
type NoLiquidityRule struct{}

func (r *NoLiquidityRule) Name() string { return "no-liquidity" }

func (r *NoLiquidityRule) Evaluate(in *Input) *Deduction {
	switch {
	case in.Liquidity.Status == domain.LiquidityUnknown:
		return &Deduction{Rule: r.Name(), Points: PointsNoLiquidity, Warning: WarnUnknownLiquidity}
	case !in.Liquidity.HasLiquidity:
		return &Deduction{Rule: r.Name(), Points: PointsNoLiquidity, Warning: WarnNoLiquidity}
	}
	return nil
}

// UnlockedLiquidityRule fires when pool LP tokens are held outside any known locker.
type UnlockedLiquidityRule struct{}

func (r *UnlockedLiquidityRule) Name() string { return "unlocked-liquidity" }

func (r *UnlockedLiquidityRule) Evaluate(in *Input) *Deduction {
	if !in.Liquidity.HasLiquidity || in.Liquidity.LPStatus != domain.LPUnlocked {
		return nil
	}
	return &Deduction{Rule: r.Name(), Points: PointsUnlockedLP, Warning: WarnUnlockedLP}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
