package domain

// ProgramType identifies the token program that owns a mint.
type ProgramType string

const (
	ProgramSPL       ProgramType = "SPL"
	ProgramToken2022 ProgramType = "TOKEN2022"
)

// String returns the string representation of ProgramType.
func (p ProgramType) String() string {
	return string(p)
}

// IsValid checks if the program type is a valid value.
func (p ProgramType) IsValid() bool {
	return p == ProgramSPL || p == ProgramToken2022
}

// Extension is a Token-2022 mint extension name as reported by jsonParsed RPC encoding.
type Extension string

// Known Token-2022 mint extensions.
const (
	ExtTransferFeeConfig     Extension = "transferFeeConfig"
	ExtTransferHook          Extension = "transferHook"
	ExtPermanentDelegate     Extension = "permanentDelegate"
	ExtNonTransferable       Extension = "nonTransferable"
	ExtMintCloseAuthority    Extension = "mintCloseAuthority"
	ExtDefaultAccountState   Extension = "defaultAccountState"
	ExtInterestBearingConfig Extension = "interestBearingConfig"
	ExtMetadataPointer       Extension = "metadataPointer"
	ExtTokenMetadata         Extension = "tokenMetadata"
	ExtConfidentialTransfer  Extension = "confidentialTransferMint"
	ExtGroupPointer          Extension = "groupPointer"
	ExtGroupMemberPointer    Extension = "groupMemberPointer"
	ExtScaledUIAmountConfig  Extension = "scaledUiAmountConfig"
	ExtPausableConfig        Extension = "pausableConfig"
)

// ExtensionSet is the set of extensions present on a mint.
type ExtensionSet map[Extension]struct{}

// Has reports whether ext is present.
func (s ExtensionSet) Has(ext Extension) bool {
	_, ok := s[ext]
	return ok
}

// Add inserts ext into the set.
func (s ExtensionSet) Add(ext Extension) {
	s[ext] = struct{}{}
}

// TransferFeeConfig is the decoded transferFeeConfig extension.
type TransferFeeConfig struct {
	ConfigAuthority   *string // transferFeeConfigAuthority (nullable)
	WithdrawAuthority *string // withdrawWithheldAuthority (nullable)
	WithheldAmount    uint64
	OlderBasisPoints  uint16
	OlderMaximumFee   uint64
	NewerBasisPoints  uint16
	NewerMaximumFee   uint64
	NewerEpoch        uint64
}

// TransferHookConfig is the decoded transferHook extension.
type TransferHookConfig struct {
	Authority *string // may update the hook program id (nullable)
	ProgramID *string // hook program invoked on transfer (nullable when unset)
}

// TokenMetadata holds display metadata for a mint.
type TokenMetadata struct {
	Name   string
	Symbol string
	URI    string
	Source string // "token2022" | "metaplex"
}

// MintFacts is a snapshot of on-chain mint state taken at analysis time.
// It is built fresh on every analysis and never mutated afterwards.
type MintFacts struct {
	MintAddress       string
	ProgramType       ProgramType
	MintAuthority     *string // nil when permanently revoked
	FreezeAuthority   *string // nil when revoked
	Supply            uint64  // raw units
	Decimals          uint8
	Extensions        ExtensionSet // empty for SPL
	TransferFee       *TransferFeeConfig
	TransferHook      *TransferHookConfig
	PermanentDelegate *string
	Metadata          *TokenMetadata
}

// MintAuthorityRevoked reports whether the mint authority is absent.
func (m *MintFacts) MintAuthorityRevoked() bool {
	return m.MintAuthority == nil
}

// FreezeAuthorityRevoked reports whether the freeze authority is absent.
func (m *MintFacts) FreezeAuthorityRevoked() bool {
	return m.FreezeAuthority == nil
}
