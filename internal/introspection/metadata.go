package introspection

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"x1-token-verifier/internal/address"
	"x1-token-verifier/internal/domain"
)

// metaplexMetadataKey is the account discriminator for MetadataV1.
const metaplexMetadataKey = 4

var errNoMetadata = errors.New("no metadata account")

// fetchMetaplexMetadata reads name/symbol/uri from the mint's metadata PDA.
func (i *Introspector) fetchMetaplexMetadata(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	pda, err := address.MetadataPDA(mint)
	if err != nil {
		return nil, err
	}

	info, err := i.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil, err
	}
	if info == nil || len(info.Data.Raw) == 0 {
		return nil, errNoMetadata
	}
	if info.Owner != address.MetaplexMetadataProgramID {
		return nil, fmt.Errorf("metadata account owned by %s", info.Owner)
	}
	return decodeMetaplexMetadata(info.Data.Raw)
}

// decodeMetaplexMetadata decodes key | update authority | mint | name | symbol | uri.
func decodeMetaplexMetadata(data []byte) (*domain.TokenMetadata, error) {
	dec := bin.NewBinDecoder(data)

	key, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}
	if key != metaplexMetadataKey {
		return nil, fmt.Errorf("unexpected metadata key %d", key)
	}
	if _, err := dec.ReadNBytes(64); err != nil {
		return nil, err
	}

	fields, err := readBorshStrings(dec, 3)
	if err != nil {
		return nil, fmt.Errorf("decode metadata strings: %w", err)
	}
	return &domain.TokenMetadata{
		Name:   fields[0],
		Symbol: fields[1],
		URI:    fields[2],
		Source: "metaplex",
	}, nil
}
