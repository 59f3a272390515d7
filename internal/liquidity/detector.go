// Package liquidity infers DEX liquidity from recent mint activity.
package liquidity

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/solana"
)

// Known DEX program IDs.
const (
	RaydiumAMMV4   = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumCPMM    = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"
	RaydiumCLMM    = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	OrcaWhirlpool  = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	OpenBookV2     = "opnb2LAfJYbRMAHHvqjCwQxanZn7ReEHp1k81EohpZb"
	SerumV3        = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	MeteoraDLMM    = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"
	PumpFun        = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	StreamflowLock = "strmRqUCoQUgGUan5YhzUZa6KqdzwX5L6FpUxfmKg5m"
	RaydiumLPLock  = "LockrWmn6K5twhz3y9w1dQERbmgSaRkfnTeTKbpofwE"
	Incinerator    = "1nc1nerator11111111111111111111111111111111"
)

// Scan limits.
const (
	DefaultSignatureLimit  = 100
	DefaultMaxTransactions = 100
	DefaultConcurrency     = 8
)

// Config holds detector parameters.
type Config struct {
	DEXPrograms     map[string]string // program id -> display name
	LockerPrograms  map[string]string // program id -> display name
	SignatureLimit  int
	MaxTransactions int
	Concurrency     int
	Logger          logrus.FieldLogger
}

// DefaultDEXPrograms returns the default DEX allow-list.
func DefaultDEXPrograms() map[string]string {
	return map[string]string{
		RaydiumAMMV4:  "raydium-amm-v4",
		RaydiumCPMM:   "raydium-cpmm",
		RaydiumCLMM:   "raydium-clmm",
		OrcaWhirlpool: "orca-whirlpool",
		OpenBookV2:    "openbook-v2",
		SerumV3:       "serum-v3",
		MeteoraDLMM:   "meteora-dlmm",
		PumpFun:       "pump-fun",
	}
}

// DefaultLockerPrograms returns programs whose presence marks LP as locked or burned.
func DefaultLockerPrograms() map[string]string {
	return map[string]string{
		StreamflowLock: "streamflow",
		RaydiumLPLock:  "raydium-lp-lock",
		Incinerator:    "incinerator",
	}
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		DEXPrograms:     DefaultDEXPrograms(),
		LockerPrograms:  DefaultLockerPrograms(),
		SignatureLimit:  DefaultSignatureLimit,
		MaxTransactions: DefaultMaxTransactions,
		Concurrency:     DefaultConcurrency,
		Logger:          logrus.StandardLogger(),
	}
}

// Detector scans recent mint transactions for DEX program involvement.
type Detector struct {
	rpc    solana.RPCClient
	config Config
}

// NewDetector creates a liquidity detector.
func NewDetector(rpc solana.RPCClient, config Config) *Detector {
	def := DefaultConfig()
	if config.DEXPrograms == nil {
		config.DEXPrograms = def.DEXPrograms
	}
	if config.LockerPrograms == nil {
		config.LockerPrograms = def.LockerPrograms
	}
	if config.SignatureLimit <= 0 {
		config.SignatureLimit = def.SignatureLimit
	}
	if config.MaxTransactions <= 0 {
		config.MaxTransactions = def.MaxTransactions
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.Logger == nil {
		config.Logger = def.Logger
	}
	return &Detector{rpc: rpc, config: config}
}

// scanResult is the per-transaction outcome of a scan.
type scanResult struct {
	fetched bool
	pool    *domain.PoolInteraction
	locked  bool
}

// DetectLiquidity builds a LiquidityProfile for mint.
// It never returns an error: a failed signature fetch, or signatures whose
// transactions could not be fetched at all, yield status unknown with a nil
// confidence. Individual transaction failures are otherwise skipped.
func (d *Detector) DetectLiquidity(ctx context.Context, mint string) domain.LiquidityProfile {
	log := d.config.Logger.WithField("mint", mint)

	var totalSupply *uint64
	supply, err := d.rpc.GetTokenSupply(ctx, mint)
	if err != nil {
		log.Warnf("[liquidity] get token supply failed: %v", err)
	} else if v, err := strconv.ParseUint(supply.Amount, 10, 64); err == nil {
		totalSupply = &v
	}

	sigs, err := d.rpc.GetSignaturesForAddress(ctx, mint, &solana.SignaturesOpts{Limit: d.config.SignatureLimit})
	if err != nil {
		log.Warnf("[liquidity] get signatures failed: %v", err)
		profile := domain.UnknownLiquidity("signature lookup failed: " + err.Error())
		profile.TotalSupply = totalSupply
		return profile
	}

	if len(sigs) > d.config.MaxTransactions {
		sigs = sigs[:d.config.MaxTransactions]
	}

	results := make([]scanResult, len(sigs))
	var g errgroup.Group
	g.SetLimit(d.config.Concurrency)
	for idx, sig := range sigs {
		g.Go(func() error {
			tx, err := d.rpc.GetTransaction(ctx, sig.Signature)
			if err != nil {
				log.WithField("signature", sig.Signature).Debugf("[liquidity] skip transaction: %v", err)
				return nil
			}
			if tx == nil || tx.Message == nil {
				results[idx].fetched = true
				return nil
			}
			blockTime := tx.BlockTime
			if blockTime == nil {
				blockTime = sig.BlockTime
			}
			results[idx] = d.inspect(sig.Signature, blockTime, tx.Message.AccountKeys)
			results[idx].fetched = true
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		profile := domain.UnknownLiquidity("scan interrupted: " + err.Error())
		profile.TotalSupply = totalSupply
		return profile
	}

	pools := make([]domain.PoolInteraction, 0, domain.MaxPoolInteractions)
	locked := false
	fetched := 0
	for _, r := range results {
		if r.fetched {
			fetched++
		}
		if r.locked {
			locked = true
		}
		if r.pool != nil && len(pools) < domain.MaxPoolInteractions {
			pools = append(pools, *r.pool)
		}
	}

	// Signatures with no readable transaction are not evidence of absence.
	if len(sigs) > 0 && fetched == 0 {
		log.WithField("signatures", len(sigs)).Warn("[liquidity] every transaction lookup failed")
		profile := domain.UnknownLiquidity("transaction lookups failed")
		profile.TotalSupply = totalSupply
		return profile
	}

	return buildProfile(pools, locked, totalSupply)
}

// inspect matches a transaction's account keys against the allow-lists.
func (d *Detector) inspect(signature string, blockTime *int64, keys []string) scanResult {
	var res scanResult
	for _, key := range keys {
		if _, ok := d.config.LockerPrograms[key]; ok {
			res.locked = true
		}
		if res.pool != nil {
			continue
		}
		if name, ok := d.config.DEXPrograms[key]; ok {
			res.pool = &domain.PoolInteraction{
				Signature:     signature,
				Timestamp:     blockTime,
				DEXIdentified: true,
				DEXProgram:    name,
				AccountKeys:   keys,
			}
		}
	}
	return res
}

func buildProfile(pools []domain.PoolInteraction, locked bool, totalSupply *uint64) domain.LiquidityProfile {
	profile := domain.LiquidityProfile{
		Pools:          pools,
		ConfidenceKind: domain.ConfidenceKind,
		TotalSupply:    totalSupply,
	}

	if len(pools) == 0 {
		confidence := domain.ConfidenceNoEvidence
		profile.Status = domain.LiquidityAbsent
		profile.Confidence = &confidence
		profile.LPStatus = domain.LPUnknown
		return profile
	}

	confidence := domain.ConfidenceLiquidityFound
	profile.Status = domain.LiquidityPresent
	profile.HasLiquidity = true
	profile.Confidence = &confidence
	profile.LPStatus = domain.LPUnlocked
	if locked {
		profile.LPStatus = domain.LPLocked
	}
	return profile
}
