package introspection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"x1-token-verifier/internal/domain"
)

// errNotMint marks account data that does not describe a mint.
var errNotMint = errors.New("not a mint account")

// parsedMintInfo is value.data.parsed.info for a mint in jsonParsed encoding.
type parsedMintInfo struct {
	Decimals        uint8             `json:"decimals"`
	FreezeAuthority *string           `json:"freezeAuthority"`
	MintAuthority   *string           `json:"mintAuthority"`
	Supply          string            `json:"supply"`
	IsInitialized   bool              `json:"isInitialized"`
	Extensions      []parsedExtension `json:"extensions"`
}

type parsedExtension struct {
	Extension string          `json:"extension"`
	State     json.RawMessage `json:"state"`
}

type parsedTransferFee struct {
	Epoch                  uint64 `json:"epoch"`
	MaximumFee             uint64 `json:"maximumFee"`
	TransferFeeBasisPoints uint16 `json:"transferFeeBasisPoints"`
}

type parsedTransferFeeConfig struct {
	NewerTransferFee           parsedTransferFee `json:"newerTransferFee"`
	OlderTransferFee           parsedTransferFee `json:"olderTransferFee"`
	TransferFeeConfigAuthority *string           `json:"transferFeeConfigAuthority"`
	WithdrawWithheldAuthority  *string           `json:"withdrawWithheldAuthority"`
	WithheldAmount             uint64            `json:"withheldAmount"`
}

type parsedTransferHook struct {
	Authority *string `json:"authority"`
	ProgramID *string `json:"programId"`
}

type parsedPermanentDelegate struct {
	Delegate *string `json:"delegate"`
}

type parsedTokenMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}

// parseMintInfo converts parsed.info into MintFacts.
// The program type is TOKEN2022 iff the info carries an extensions key.
func parseMintInfo(mint string, raw json.RawMessage) (*domain.MintFacts, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("unmarshal mint info: %w", err)
	}
	if _, ok := keys["decimals"]; !ok {
		return nil, errNotMint
	}

	var info parsedMintInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("unmarshal mint info: %w", err)
	}

	supply, err := parseAmount(info.Supply)
	if err != nil {
		return nil, fmt.Errorf("parse supply: %w", err)
	}

	facts := &domain.MintFacts{
		MintAddress:     mint,
		ProgramType:     domain.ProgramSPL,
		MintAuthority:   nonEmpty(info.MintAuthority),
		FreezeAuthority: nonEmpty(info.FreezeAuthority),
		Supply:          supply,
		Decimals:        info.Decimals,
		Extensions:      domain.ExtensionSet{},
	}

	if _, ok := keys["extensions"]; !ok {
		return facts, nil
	}
	facts.ProgramType = domain.ProgramToken2022

	for _, ext := range info.Extensions {
		facts.Extensions.Add(domain.Extension(ext.Extension))
		if err := applyExtension(facts, ext); err != nil {
			return nil, fmt.Errorf("extension %s: %w", ext.Extension, err)
		}
	}
	return facts, nil
}

func applyExtension(facts *domain.MintFacts, ext parsedExtension) error {
	if len(ext.State) == 0 {
		return nil
	}

	switch domain.Extension(ext.Extension) {
	case domain.ExtTransferFeeConfig:
		var s parsedTransferFeeConfig
		if err := json.Unmarshal(ext.State, &s); err != nil {
			return err
		}
		facts.TransferFee = &domain.TransferFeeConfig{
			ConfigAuthority:   nonEmpty(s.TransferFeeConfigAuthority),
			WithdrawAuthority: nonEmpty(s.WithdrawWithheldAuthority),
			WithheldAmount:    s.WithheldAmount,
			OlderBasisPoints:  s.OlderTransferFee.TransferFeeBasisPoints,
			OlderMaximumFee:   s.OlderTransferFee.MaximumFee,
			NewerBasisPoints:  s.NewerTransferFee.TransferFeeBasisPoints,
			NewerMaximumFee:   s.NewerTransferFee.MaximumFee,
			NewerEpoch:        s.NewerTransferFee.Epoch,
		}

	case domain.ExtTransferHook:
		var s parsedTransferHook
		if err := json.Unmarshal(ext.State, &s); err != nil {
			return err
		}
		facts.TransferHook = &domain.TransferHookConfig{
			Authority: nonEmpty(s.Authority),
			ProgramID: nonEmpty(s.ProgramID),
		}

	case domain.ExtPermanentDelegate:
		var s parsedPermanentDelegate
		if err := json.Unmarshal(ext.State, &s); err != nil {
			return err
		}
		facts.PermanentDelegate = nonEmpty(s.Delegate)

	case domain.ExtTokenMetadata:
		var s parsedTokenMetadata
		if err := json.Unmarshal(ext.State, &s); err != nil {
			return err
		}
		facts.Metadata = &domain.TokenMetadata{
			Name:   s.Name,
			Symbol: s.Symbol,
			URI:    s.URI,
			Source: "token2022",
		}
	}
	return nil
}

func parseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// nonEmpty treats empty strings like null authorities.
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
