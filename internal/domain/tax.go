package domain

// TaxType describes whether tax rates can change without a new mint.
type TaxType string

const (
	TaxFixed   TaxType = "fixed"
	TaxDynamic TaxType = "dynamic"
)

// TaxStructure is derived from Token-2022 fee and hook extensions.
// HookUpgradeable implies TaxType == TaxDynamic.
type TaxStructure struct {
	BuyTax          float64  `json:"buyTax"`  // percent, [0, 100]
	SellTax         float64  `json:"sellTax"` // percent, [0, 100]
	TaxType         TaxType  `json:"taxType"`
	TaxAuthority    *string  `json:"taxAuthority"`
	TaxWallets      []string `json:"taxWallets"`
	HookProgram     *string  `json:"hookProgram,omitempty"`
	HookUpgradeable bool     `json:"hookUpgradeable"`
	BuybackDetected bool     `json:"buybackDetected"`
}

// NoTax returns the structure used for mints without fee or hook extensions.
func NoTax() TaxStructure {
	return TaxStructure{
		TaxType:    TaxFixed,
		TaxWallets: []string{},
	}
}

// TaxTier is the severity band of a tax percentage.
type TaxTier string

const (
	TierAcceptable TaxTier = "acceptable"
	TierMedium     TaxTier = "medium"
	TierHigh       TaxTier = "high"
)

// Rank orders tiers by severity.
func (t TaxTier) Rank() int {
	switch t {
	case TierHigh:
		return 2
	case TierMedium:
		return 1
	default:
		return 0
	}
}
