package risk

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage"
)

// DefaultNetwork is the chain identifier accepted by ScoreToken.
const DefaultNetwork = "x1-mainnet"

// MintIntrospector reads mint state.
type MintIntrospector interface {
	GetMintFacts(ctx context.Context, mint string) (*domain.MintFacts, error)
}

// LiquidityDetector infers DEX liquidity for a mint.
type LiquidityDetector interface {
	DetectLiquidity(ctx context.Context, mint string) domain.LiquidityProfile
}

// TaxAnalyzer derives tax structure from mint extensions.
type TaxAnalyzer interface {
	Analyze(ctx context.Context, facts *domain.MintFacts, liquidity domain.LiquidityProfile) domain.TaxStructure
}

// Observer receives completed assessments.
type Observer interface {
	ObserveAssessment(a domain.RiskAssessment, trigger string)
}

// Config holds service parameters.
type Config struct {
	Network string
	Logger  logrus.FieldLogger
}

// Service runs the full verification pipeline for a mint.
// Tokens, History and Observer are optional.
type Service struct {
	introspector MintIntrospector
	detector     LiquidityDetector
	analyzer     TaxAnalyzer
	engine       *Engine
	tokens       storage.TokenStore
	history      storage.AssessmentHistoryStore
	observer     Observer
	network      string
	logger       logrus.FieldLogger
	now          func() time.Time
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithTokenStore enables best-effort token record persistence.
func WithTokenStore(s storage.TokenStore) ServiceOption {
	return func(svc *Service) { svc.tokens = s }
}

// WithHistoryStore enables best-effort assessment history.
func WithHistoryStore(s storage.AssessmentHistoryStore) ServiceOption {
	return func(svc *Service) { svc.history = s }
}

// WithObserver attaches an assessment observer.
func WithObserver(o Observer) ServiceOption {
	return func(svc *Service) { svc.observer = o }
}

// WithEngine replaces the default rule engine.
func WithEngine(e *Engine) ServiceOption {
	return func(svc *Service) { svc.engine = e }
}

// NewService creates a verification service.
func NewService(
	config Config,
	introspector MintIntrospector,
	detector LiquidityDetector,
	analyzer TaxAnalyzer,
	opts ...ServiceOption,
) *Service {
	if config.Network == "" {
		config.Network = DefaultNetwork
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	s := &Service{
		introspector: introspector,
		detector:     detector,
		analyzer:     analyzer,
		engine:       DefaultEngine(),
		network:      config.Network,
		logger:       config.Logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Network returns the chain identifier this service verifies against.
func (s *Service) Network() string {
	return s.network
}

// ScoreToken verifies mint on network and returns its assessment.
// Persistence is best effort: store failures are logged, never returned.
func (s *Service) ScoreToken(ctx context.Context, mint, network string) (*domain.RiskAssessment, error) {
	if mint == "" {
		return nil, domain.InvalidInput("mintAddress is required")
	}
	if network != s.network {
		return nil, domain.InvalidInput("unsupported network %q", network)
	}
	return s.score(ctx, mint, domain.TriggerRequest)
}

// Reanalyze re-scores mint on the configured network.
func (s *Service) Reanalyze(ctx context.Context, mint string) (*domain.RiskAssessment, error) {
	if mint == "" {
		return nil, domain.InvalidInput("mintAddress is required")
	}
	return s.score(ctx, mint, domain.TriggerReanalysis)
}

// DetectLiquidity exposes the liquidity scan on its own.
func (s *Service) DetectLiquidity(ctx context.Context, mint string) (domain.LiquidityProfile, error) {
	if mint == "" {
		return domain.LiquidityProfile{}, domain.InvalidInput("mintAddress is required")
	}
	return s.detector.DetectLiquidity(ctx, mint), nil
}

func (s *Service) score(ctx context.Context, mint, trigger string) (*domain.RiskAssessment, error) {
	facts, err := s.introspector.GetMintFacts(ctx, mint)
	if err != nil {
		return nil, err
	}

	liquidity := s.detector.DetectLiquidity(ctx, mint)
	tax := s.analyzer.Analyze(ctx, facts, liquidity)
	assessment := s.engine.Score(facts, tax, liquidity)

	s.logger.WithFields(logrus.Fields{
		"mint":    mint,
		"score":   assessment.RiskScore,
		"status":  assessment.Status,
		"trigger": trigger,
	}).Info("[risk] token scored")

	if s.observer != nil {
		s.observer.ObserveAssessment(assessment, trigger)
	}
	s.persist(ctx, facts, tax, liquidity, assessment, trigger)
	return &assessment, nil
}

// persist writes the token record and history row. Failures are logged only.
func (s *Service) persist(
	ctx context.Context,
	facts *domain.MintFacts,
	tax domain.TaxStructure,
	liquidity domain.LiquidityProfile,
	a domain.RiskAssessment,
	trigger string,
) {
	log := s.logger.WithField("mint", facts.MintAddress)

	if s.tokens != nil {
		if err := s.tokens.Upsert(ctx, s.tokenRecord(facts, a)); err != nil {
			log.Warnf("[risk] persist token record failed: %v", err)
		}
	}

	if s.history != nil {
		rec := &domain.AssessmentRecord{
			MintAddress:     facts.MintAddress,
			Network:         s.network,
			RiskScore:       a.RiskScore,
			Status:          a.Status,
			Warnings:        a.Warnings,
			BuyTax:          tax.BuyTax,
			SellTax:         tax.SellTax,
			TaxType:         tax.TaxType,
			LiquidityStatus: liquidity.Status,
			Confidence:      liquidity.Confidence,
			LPStatus:        liquidity.LPStatus,
			Trigger:         trigger,
			VerifiedAt:      a.VerifiedAt,
		}
		if err := s.history.Append(ctx, rec); err != nil {
			log.Warnf("[risk] append assessment history failed: %v", err)
		}
	}
}

func (s *Service) tokenRecord(facts *domain.MintFacts, a domain.RiskAssessment) *domain.TokenRecord {
	rec := &domain.TokenRecord{
		MintAddress:            facts.MintAddress,
		Network:                s.network,
		ProgramType:            facts.ProgramType,
		Decimals:               int(facts.Decimals),
		Supply:                 strconv.FormatUint(facts.Supply, 10),
		MintAuthorityRevoked:   facts.MintAuthorityRevoked(),
		FreezeAuthorityRevoked: facts.FreezeAuthorityRevoked(),
		RiskScore:              a.RiskScore,
		Warnings:               a.Warnings,
		Status:                 a.Status,
		VerifiedAt:             a.VerifiedAt,
		UpdatedAt:              s.now().UTC(),
	}
	if m := facts.Metadata; m != nil {
		rec.Name = optional(m.Name)
		rec.Symbol = optional(m.Symbol)
		rec.URI = optional(m.URI)
	}
	return rec
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
