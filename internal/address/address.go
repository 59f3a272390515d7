// Package address validates base58 account addresses and derives program addresses.
package address

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the decoded size of an account address.
const PublicKeyLength = 32

// Well-known program IDs.
const (
	TokenProgramID              = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID          = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	MetaplexMetadataProgramID   = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	BPFLoaderUpgradeableID      = "BPFLoaderUpgradeab1e11111111111111111111111"
	SystemProgramID             = "11111111111111111111111111111111"
	maxSeedLength               = 32
	maxSeeds                    = 16
	programDerivedAddressMarker = "ProgramDerivedAddress"
)

var (
	// ErrInvalidAddress is returned for strings that are not 32-byte base58 keys.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNoViableBump is returned when no bump seed yields an off-curve address.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
)

// Decode parses a base58 address into its 32 raw bytes.
func Decode(addr string) ([]byte, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != PublicKeyLength {
		return nil, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(raw))
	}
	return raw, nil
}

// Validate reports whether addr is a well-formed address.
func Validate(addr string) error {
	_, err := Decode(addr)
	return err
}

// Encode renders raw key bytes as base58.
func Encode(raw []byte) string {
	return base58.Encode(raw)
}

// IsOnCurve reports whether the 32 bytes decode to an ed25519 point.
// Program derived addresses must be off the curve.
func IsOnCurve(point []byte) bool {
	if len(point) != PublicKeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// CreateProgramAddress hashes seeds with the program id and rejects on-curve results.
func CreateProgramAddress(seeds [][]byte, programID []byte) ([]byte, error) {
	if len(seeds) > maxSeeds {
		return nil, fmt.Errorf("too many seeds: %d", len(seeds))
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return nil, fmt.Errorf("seed too long: %d bytes", len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID)
	h.Write([]byte(programDerivedAddressMarker))
	hash := h.Sum(nil)

	if IsOnCurve(hash) {
		return nil, errors.New("derived address is on curve")
	}
	return hash, nil
}

// FindProgramAddress searches bump seeds from 255 down and returns the first off-curve address.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	pid, err := Decode(programID)
	if err != nil {
		return "", 0, fmt.Errorf("program id: %w", err)
	}

	for bump := 255; bump >= 0; bump-- {
		withBump := make([][]byte, 0, len(seeds)+1)
		withBump = append(withBump, seeds...)
		withBump = append(withBump, []byte{byte(bump)})

		addr, err := CreateProgramAddress(withBump, pid)
		if err != nil {
			continue
		}
		return base58.Encode(addr), uint8(bump), nil
	}
	return "", 0, ErrNoViableBump
}

// MetadataPDA derives the Metaplex metadata account for a mint.
func MetadataPDA(mint string) (string, error) {
	mintKey, err := Decode(mint)
	if err != nil {
		return "", err
	}
	programKey, err := Decode(MetaplexMetadataProgramID)
	if err != nil {
		return "", err
	}

	pda, _, err := FindProgramAddress([][]byte{
		[]byte("metadata"),
		programKey,
		mintKey,
	}, MetaplexMetadataProgramID)
	if err != nil {
		return "", fmt.Errorf("derive metadata pda: %w", err)
	}
	return pda, nil
}
