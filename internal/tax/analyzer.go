// Package tax derives buy/sell tax structure from Token-2022 extensions.
package tax

import (
	"context"

	"github.com/sirupsen/logrus"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/solana"
)

// Analyzer inspects transfer-fee and transfer-hook extensions.
type Analyzer struct {
	rpc    solana.RPCClient
	logger logrus.FieldLogger
}

// NewAnalyzer creates a tax analyzer. rpc is used to inspect hook programs.
func NewAnalyzer(rpc solana.RPCClient, logger logrus.FieldLogger) *Analyzer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Analyzer{rpc: rpc, logger: logger}
}

// Analyze builds the TaxStructure for facts. SPL mints carry no tax.
//
// The tax is dynamic when any key can still change behavior after analysis:
// an upgradeable hook program, a hook authority that can repoint the hook,
// or a live transfer-fee config authority. A hook program that cannot be
// inspected counts as upgradeable.
func (a *Analyzer) Analyze(ctx context.Context, facts *domain.MintFacts, liquidity domain.LiquidityProfile) domain.TaxStructure {
	ts := domain.NoTax()
	if facts == nil || facts.ProgramType != domain.ProgramToken2022 {
		return ts
	}
	log := a.logger.WithField("mint", facts.MintAddress)

	dynamic := false

	if fee := facts.TransferFee; fee != nil {
		pct := BasisPointsToPercent(fee.NewerBasisPoints)
		ts.BuyTax = pct
		ts.SellTax = pct
		ts.TaxAuthority = fee.ConfigAuthority
		if fee.WithdrawAuthority != nil {
			ts.TaxWallets = append(ts.TaxWallets, *fee.WithdrawAuthority)
		}
		if fee.ConfigAuthority != nil {
			dynamic = true
		}
	}

	if hook := facts.TransferHook; hook != nil {
		if hook.Authority != nil {
			dynamic = true
			if ts.TaxAuthority == nil {
				ts.TaxAuthority = hook.Authority
			}
		}
		if hook.ProgramID != nil {
			ts.HookProgram = hook.ProgramID
			upgradeable, err := hookUpgradeable(ctx, a.rpc, *hook.ProgramID)
			if err != nil {
				log.WithField("hook", *hook.ProgramID).Warnf("[tax] hook program lookup failed, treating as upgradeable: %v", err)
				upgradeable = true
			}
			ts.HookUpgradeable = upgradeable
		}
	}

	if dynamic || ts.HookUpgradeable {
		ts.TaxType = domain.TaxDynamic
	}
	ts.BuybackDetected = buybackDetected(ts.TaxWallets, liquidity.Pools)
	return ts
}

// buybackDetected reports whether a tax wallet signed or appeared in DEX evidence.
func buybackDetected(wallets []string, pools []domain.PoolInteraction) bool {
	if len(wallets) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(wallets))
	for _, w := range wallets {
		set[w] = struct{}{}
	}
	for _, p := range pools {
		for _, key := range p.AccountKeys {
			if _, ok := set[key]; ok {
				return true
			}
		}
	}
	return false
}
