// Package introspection reads mint state through the RPC gateway.
package introspection

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"x1-token-verifier/internal/address"
	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/solana"
)

// Config holds introspection parameters.
type Config struct {
	// FetchMetadata enables the Metaplex metadata lookup when the mint
	// carries no tokenMetadata extension.
	FetchMetadata bool
	Logger        logrus.FieldLogger
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		FetchMetadata: true,
		Logger:        logrus.StandardLogger(),
	}
}

// Introspector builds MintFacts from account data.
type Introspector struct {
	rpc    solana.RPCClient
	config Config
}

// New creates an Introspector.
func New(rpc solana.RPCClient, config Config) *Introspector {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	return &Introspector{rpc: rpc, config: config}
}

// GetMintFacts fetches and decodes the mint account.
// A missing account or an account without parsed mint info is reported as
// domain.ErrTokenNotFound; gateway exhaustion surfaces as
// solana.ErrAllEndpointsFailed.
func (i *Introspector) GetMintFacts(ctx context.Context, mint string) (*domain.MintFacts, error) {
	if err := address.Validate(mint); err != nil {
		return nil, domain.InvalidInput("mintAddress: %v", err)
	}

	info, err := i.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("get account info: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, mint)
	}

	var facts *domain.MintFacts
	switch {
	case info.Data.IsParsed():
		if info.Data.ParsedType != "" && info.Data.ParsedType != "mint" {
			return nil, fmt.Errorf("%w: %s is a %s account", domain.ErrTokenNotFound, mint, info.Data.ParsedType)
		}
		facts, err = parseMintInfo(mint, info.Data.Info)
	case len(info.Data.Raw) > 0 && isTokenProgram(info.Owner):
		facts, err = decodeRawMint(mint, info.Owner, info.Data.Raw)
	default:
		return nil, fmt.Errorf("%w: %s has no parsed mint info", domain.ErrTokenNotFound, mint)
	}
	if err != nil {
		if errors.Is(err, errNotMint) {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrTokenNotFound, mint, err)
		}
		return nil, fmt.Errorf("decode mint %s: %w", mint, err)
	}

	if facts.Metadata == nil && i.config.FetchMetadata {
		meta, err := i.fetchMetaplexMetadata(ctx, mint)
		if err != nil {
			i.config.Logger.WithField("mint", mint).Debugf("[introspection] metadata lookup failed: %v", err)
		} else {
			facts.Metadata = meta
		}
	}

	return facts, nil
}

func isTokenProgram(owner string) bool {
	return owner == address.TokenProgramID || owner == address.Token2022ProgramID
}
