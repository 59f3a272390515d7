package domain

// Heuristic liquidity confidence values. These are indicators, not probabilities.
const (
	ConfidenceLiquidityFound = 85
	ConfidenceNoEvidence     = 50
)

// ConfidenceKind labels the confidence field in API output.
const ConfidenceKind = "heuristic"

// MaxPoolInteractions caps the evidence kept in a LiquidityProfile.
const MaxPoolInteractions = 5

// LiquidityStatus separates "checked and found nothing" from "could not check".
type LiquidityStatus string

const (
	LiquidityUnknown LiquidityStatus = "unknown"
	LiquidityAbsent  LiquidityStatus = "absent"
	LiquidityPresent LiquidityStatus = "present"
)

// LPStatus is the lock state of detected liquidity.
type LPStatus string

const (
	LPUnknown  LPStatus = "unknown"
	LPLocked   LPStatus = "locked"
	LPUnlocked LPStatus = "unlocked"
)

// PoolInteraction is one transaction that touched a known DEX program.
type PoolInteraction struct {
	Signature     string   `json:"signature"`
	Timestamp     *int64   `json:"timestamp"` // unix seconds, nil when the node has no block time
	DEXIdentified bool     `json:"dexIdentified"`
	DEXProgram    string   `json:"dexProgram,omitempty"`
	AccountKeys   []string `json:"-"`
}

// LiquidityProfile is the Liquidity Detector output.
type LiquidityProfile struct {
	Status         LiquidityStatus   `json:"status"`
	HasLiquidity   bool              `json:"hasLiquidity"`
	Pools          []PoolInteraction `json:"pools"`
	Confidence     *int              `json:"confidence"` // nil when status is unknown
	ConfidenceKind string            `json:"confidenceKind"`
	LPStatus       LPStatus          `json:"lpStatus"`
	TotalSupply    *uint64           `json:"totalSupply"`
	Error          string            `json:"error,omitempty"`
}

// UnknownLiquidity builds the profile returned when the chain could not be queried.
func UnknownLiquidity(reason string) LiquidityProfile {
	return LiquidityProfile{
		Status:         LiquidityUnknown,
		Pools:          []PoolInteraction{},
		ConfidenceKind: ConfidenceKind,
		LPStatus:       LPUnknown,
		Error:          reason,
	}
}
