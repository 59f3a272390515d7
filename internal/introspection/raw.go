package introspection

import (
	"encoding/binary"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go/programs/token"

	"x1-token-verifier/internal/address"
	"x1-token-verifier/internal/domain"
)

// Token account layout sizes. Token-2022 pads mints to the token account
// size so the account type byte sits at the same offset for both kinds.
const (
	mintSize           = 82
	accountTypeOffset  = 165
	accountTypeMint    = 1
	tlvHeaderSize      = 4
	transferFeeSize    = 18
	transferFeeCfgSize = 64 + 8 + 2*transferFeeSize
)

// Token-2022 TLV extension type discriminators.
var extensionTypes = map[uint16]domain.Extension{
	1:  domain.ExtTransferFeeConfig,
	3:  domain.ExtMintCloseAuthority,
	4:  domain.ExtConfidentialTransfer,
	6:  domain.ExtDefaultAccountState,
	9:  domain.ExtNonTransferable,
	10: domain.ExtInterestBearingConfig,
	12: domain.ExtPermanentDelegate,
	14: domain.ExtTransferHook,
	18: domain.ExtMetadataPointer,
	19: domain.ExtTokenMetadata,
	20: domain.ExtGroupPointer,
	22: domain.ExtGroupMemberPointer,
	25: domain.ExtScaledUIAmountConfig,
	26: domain.ExtPausableConfig,
}

// decodeRawMint decodes base64 account data for nodes that could not
// return jsonParsed output.
func decodeRawMint(mint, owner string, data []byte) (*domain.MintFacts, error) {
	if len(data) < mintSize {
		return nil, fmt.Errorf("%w: data length %d", errNotMint, len(data))
	}

	var m token.Mint
	if err := bin.NewBinDecoder(data[:mintSize]).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode mint layout: %w", err)
	}
	if !m.IsInitialized {
		return nil, fmt.Errorf("%w: uninitialized", errNotMint)
	}

	facts := &domain.MintFacts{
		MintAddress: mint,
		ProgramType: domain.ProgramSPL,
		Supply:      m.Supply,
		Decimals:    m.Decimals,
		Extensions:  domain.ExtensionSet{},
	}
	if m.MintAuthority != nil {
		s := m.MintAuthority.String()
		facts.MintAuthority = &s
	}
	if m.FreezeAuthority != nil {
		s := m.FreezeAuthority.String()
		facts.FreezeAuthority = &s
	}

	if owner != address.Token2022ProgramID || len(data) <= accountTypeOffset {
		return facts, nil
	}
	if data[accountTypeOffset] != accountTypeMint {
		return nil, fmt.Errorf("%w: account type %d", errNotMint, data[accountTypeOffset])
	}

	facts.ProgramType = domain.ProgramToken2022
	if err := decodeExtensions(facts, data[accountTypeOffset+1:]); err != nil {
		return nil, err
	}
	return facts, nil
}

// decodeExtensions walks the TLV area after the account type byte.
func decodeExtensions(facts *domain.MintFacts, tlv []byte) error {
	for len(tlv) >= tlvHeaderSize {
		typ := binary.LittleEndian.Uint16(tlv[0:2])
		length := int(binary.LittleEndian.Uint16(tlv[2:4]))
		if typ == 0 {
			break
		}
		if len(tlv) < tlvHeaderSize+length {
			return fmt.Errorf("truncated extension %d", typ)
		}
		value := tlv[tlvHeaderSize : tlvHeaderSize+length]
		tlv = tlv[tlvHeaderSize+length:]

		ext, ok := extensionTypes[typ]
		if !ok {
			continue
		}
		facts.Extensions.Add(ext)

		var err error
		switch ext {
		case domain.ExtTransferFeeConfig:
			facts.TransferFee, err = decodeTransferFeeConfig(value)
		case domain.ExtTransferHook:
			if len(value) >= 64 {
				facts.TransferHook = &domain.TransferHookConfig{
					Authority: optionalKey(value[0:32]),
					ProgramID: optionalKey(value[32:64]),
				}
			}
		case domain.ExtPermanentDelegate:
			if len(value) >= 32 {
				facts.PermanentDelegate = optionalKey(value[0:32])
			}
		case domain.ExtTokenMetadata:
			facts.Metadata, err = decodeTokenMetadata(value)
		}
		if err != nil {
			return fmt.Errorf("extension %s: %w", ext, err)
		}
	}
	return nil
}

func decodeTransferFeeConfig(value []byte) (*domain.TransferFeeConfig, error) {
	if len(value) < transferFeeCfgSize {
		return nil, fmt.Errorf("length %d", len(value))
	}
	dec := bin.NewBinDecoder(value)

	cfgAuth, _ := dec.ReadNBytes(32)
	withdrawAuth, _ := dec.ReadNBytes(32)
	withheld, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return nil, err
	}

	cfg := &domain.TransferFeeConfig{
		ConfigAuthority:   optionalKey(cfgAuth),
		WithdrawAuthority: optionalKey(withdrawAuth),
		WithheldAmount:    withheld,
	}

	readFee := func() (epoch, maxFee uint64, bps uint16, err error) {
		if epoch, err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return
		}
		if maxFee, err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return
		}
		bps, err = dec.ReadUint16(binary.LittleEndian)
		return
	}

	if _, cfg.OlderMaximumFee, cfg.OlderBasisPoints, err = readFee(); err != nil {
		return nil, err
	}
	if cfg.NewerEpoch, cfg.NewerMaximumFee, cfg.NewerBasisPoints, err = readFee(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeTokenMetadata reads update authority, mint, then borsh name/symbol/uri.
func decodeTokenMetadata(value []byte) (*domain.TokenMetadata, error) {
	dec := bin.NewBinDecoder(value)
	if _, err := dec.ReadNBytes(64); err != nil {
		return nil, err
	}
	fields, err := readBorshStrings(dec, 3)
	if err != nil {
		return nil, err
	}
	return &domain.TokenMetadata{
		Name:   fields[0],
		Symbol: fields[1],
		URI:    fields[2],
		Source: "token2022",
	}, nil
}

// readBorshStrings reads n u32-length-prefixed strings, trimming NUL padding.
func readBorshStrings(dec *bin.Decoder, n int) ([]string, error) {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		length, err := dec.ReadUint32(binary.LittleEndian)
		if err != nil {
			return nil, err
		}
		if int(length) > dec.Remaining() {
			return nil, fmt.Errorf("string length %d exceeds data", length)
		}
		raw, err := dec.ReadNBytes(int(length))
		if err != nil {
			return nil, err
		}
		out = append(out, strings.TrimRight(string(raw), "\x00"))
	}
	return out, nil
}

// optionalKey maps the all-zero key used for "none" to nil.
func optionalKey(raw []byte) *string {
	for _, b := range raw {
		if b != 0 {
			s := address.Encode(raw)
			return &s
		}
	}
	return nil
}
