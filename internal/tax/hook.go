package tax

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"x1-token-verifier/internal/address"
	"x1-token-verifier/internal/solana"
)

// Upgradeable loader state tags.
const (
	loaderStateProgram     = 2
	loaderStateProgramData = 3
)

var errHookNotFound = errors.New("hook program account not found")

// hookUpgradeable reports whether programID is owned by the upgradeable
// loader and its program data still carries an upgrade authority.
func hookUpgradeable(ctx context.Context, rpc solana.RPCClient, programID string) (bool, error) {
	program, err := rpc.GetAccountInfo(ctx, programID)
	if err != nil {
		return false, fmt.Errorf("get hook program: %w", err)
	}
	if program == nil {
		return false, errHookNotFound
	}
	if program.Owner != address.BPFLoaderUpgradeableID {
		return false, nil
	}

	programData, err := programDataAddress(program.Data)
	if err != nil {
		return false, err
	}

	data, err := rpc.GetAccountInfo(ctx, programData)
	if err != nil {
		return false, fmt.Errorf("get program data: %w", err)
	}
	if data == nil {
		return false, fmt.Errorf("program data %s not found", programData)
	}
	return hasUpgradeAuthority(data.Data)
}

func programDataAddress(data solana.AccountData) (string, error) {
	if data.IsParsed() {
		var info struct {
			ProgramData string `json:"programData"`
		}
		if err := json.Unmarshal(data.Info, &info); err != nil {
			return "", fmt.Errorf("decode program account: %w", err)
		}
		if info.ProgramData == "" {
			return "", errors.New("program account has no programData")
		}
		return info.ProgramData, nil
	}

	raw := data.Raw
	if len(raw) < 36 || binary.LittleEndian.Uint32(raw[0:4]) != loaderStateProgram {
		return "", errors.New("unexpected program account layout")
	}
	return address.Encode(raw[4:36]), nil
}

func hasUpgradeAuthority(data solana.AccountData) (bool, error) {
	if data.IsParsed() {
		var info struct {
			Authority *string `json:"authority"`
		}
		if err := json.Unmarshal(data.Info, &info); err != nil {
			return false, fmt.Errorf("decode program data: %w", err)
		}
		return info.Authority != nil && *info.Authority != "", nil
	}

	// tag u32 | slot u64 | Option<Pubkey>
	raw := data.Raw
	if len(raw) < 13 || binary.LittleEndian.Uint32(raw[0:4]) != loaderStateProgramData {
		return false, errors.New("unexpected program data layout")
	}
	return raw[12] == 1, nil
}
