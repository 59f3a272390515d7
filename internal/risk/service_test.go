package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/storage/memory"
)

type fakeIntrospector struct {
	facts *domain.MintFacts
	err   error
	calls int
}

func (f *fakeIntrospector) GetMintFacts(_ context.Context, mint string) (*domain.MintFacts, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	facts := *f.facts
	facts.MintAddress = mint
	return &facts, nil
}

type fakeDetector struct {
	profile domain.LiquidityProfile
}

func (f *fakeDetector) DetectLiquidity(context.Context, string) domain.LiquidityProfile {
	return f.profile
}

type fakeAnalyzer struct {
	tax domain.TaxStructure
}

func (f *fakeAnalyzer) Analyze(context.Context, *domain.MintFacts, domain.LiquidityProfile) domain.TaxStructure {
	return f.tax
}

type failingTokenStore struct{}

func (failingTokenStore) Upsert(context.Context, *domain.TokenRecord) error {
	return errors.New("database is down")
}

func (failingTokenStore) GetByMint(context.Context, string) (*domain.TokenRecord, error) {
	return nil, errors.New("database is down")
}

func (failingTokenStore) ListMints(context.Context) ([]string, error) {
	return nil, errors.New("database is down")
}

type recordingObserver struct {
	triggers []string
}

func (o *recordingObserver) ObserveAssessment(_ domain.RiskAssessment, trigger string) {
	o.triggers = append(o.triggers, trigger)
}

func newTestService(facts *domain.MintFacts, liq domain.LiquidityProfile, tax domain.TaxStructure, opts ...ServiceOption) (*Service, *fakeIntrospector) {
	intro := &fakeIntrospector{facts: facts}
	svc := NewService(Config{Network: DefaultNetwork}, intro, &fakeDetector{profile: liq}, &fakeAnalyzer{tax: tax}, opts...)
	return svc, intro
}

func TestScoreToken_ValidatesInput(t *testing.T) {
	svc, intro := newTestService(cleanFacts(), lockedLiquidity(), domain.NoTax())
	ctx := context.Background()

	_, err := svc.ScoreToken(ctx, "", DefaultNetwork)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = svc.ScoreToken(ctx, "mint", "solana-mainnet")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = svc.ScoreToken(ctx, "mint", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	assert.Equal(t, 0, intro.calls)
}

func TestScoreToken_PropagatesNotFound(t *testing.T) {
	svc, intro := newTestService(cleanFacts(), lockedLiquidity(), domain.NoTax())
	intro.err = domain.ErrTokenNotFound

	_, err := svc.ScoreToken(context.Background(), "mint", DefaultNetwork)
	assert.True(t, errors.Is(err, domain.ErrTokenNotFound))
}

func TestScoreToken_PersistsRecordAndHistory(t *testing.T) {
	tokens := memory.NewTokenStore()
	history := memory.NewAssessmentHistoryStore()
	obs := &recordingObserver{}

	facts := cleanFacts()
	facts.FreezeAuthority = strPtr("freezer")
	facts.Supply = 1000
	facts.Metadata = &domain.TokenMetadata{Name: "Test", Symbol: "TST"}

	svc, _ := newTestService(facts, lockedLiquidity(), domain.NoTax(),
		WithTokenStore(tokens), WithHistoryStore(history), WithObserver(obs))
	ctx := context.Background()

	a, err := svc.ScoreToken(ctx, "mint1", DefaultNetwork)
	require.NoError(t, err)
	assert.Equal(t, PointsFreezeAuthority, a.RiskScore)
	assert.Equal(t, "mint1", a.MintAddress)

	rec, err := tokens.GetByMint(ctx, "mint1")
	require.NoError(t, err)
	assert.Equal(t, a.RiskScore, rec.RiskScore)
	assert.Equal(t, "1000", rec.Supply)
	assert.True(t, rec.MintAuthorityRevoked)
	assert.False(t, rec.FreezeAuthorityRevoked)
	require.NotNil(t, rec.Symbol)
	assert.Equal(t, "TST", *rec.Symbol)
	assert.Nil(t, rec.URI)

	entries, err := history.GetByMint(ctx, "mint1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TriggerRequest, entries[0].Trigger)
	assert.Equal(t, domain.LiquidityPresent, entries[0].LiquidityStatus)

	assert.Equal(t, []string{domain.TriggerRequest}, obs.triggers)
}

func TestScoreToken_PersistenceFailureIsNotFatal(t *testing.T) {
	svc, _ := newTestService(cleanFacts(), lockedLiquidity(), domain.NoTax(),
		WithTokenStore(failingTokenStore{}))

	a, err := svc.ScoreToken(context.Background(), "mint1", DefaultNetwork)
	require.NoError(t, err)
	assert.Equal(t, 0, a.RiskScore)
}

func TestReanalyze_UsesConfiguredNetwork(t *testing.T) {
	history := memory.NewAssessmentHistoryStore()
	svc, _ := newTestService(cleanFacts(), lockedLiquidity(), domain.NoTax(), WithHistoryStore(history))
	ctx := context.Background()

	_, err := svc.Reanalyze(ctx, "mint1")
	require.NoError(t, err)

	entries, _ := history.GetByMint(ctx, "mint1", 1)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TriggerReanalysis, entries[0].Trigger)
	assert.Equal(t, DefaultNetwork, entries[0].Network)
}

func TestAnalyzeTax_Levels(t *testing.T) {
	tests := []struct {
		name      string
		program   domain.ProgramType
		tokenType string
		tax       domain.TaxStructure
		level     RiskLevel
		action    VerificationAction
	}{
		{
			name:    "no tax",
			program: domain.ProgramSPL,
			tax:     domain.NoTax(),
			level:   RiskLow,
			action:  ActionAutoVerify,
		},
		{
			name:    "token2022 acceptable fee",
			program: domain.ProgramToken2022,
			tax:     domain.TaxStructure{BuyTax: 4, SellTax: 4, TaxType: domain.TaxFixed},
			level:   RiskLow,
			action:  ActionAutoVerify,
		},
		{
			name:      "spl row override raises tier",
			program:   domain.ProgramToken2022,
			tokenType: "spl",
			tax:       domain.TaxStructure{BuyTax: 4, SellTax: 4, TaxType: domain.TaxFixed},
			level:     RiskMedium,
			action:    ActionManualReview,
		},
		{
			name:    "dynamic is at least medium",
			program: domain.ProgramToken2022,
			tax:     domain.TaxStructure{BuyTax: 1, SellTax: 1, TaxType: domain.TaxDynamic},
			level:   RiskMedium,
			action:  ActionManualReview,
		},
		{
			name:    "high sell tax",
			program: domain.ProgramToken2022,
			tax:     domain.TaxStructure{BuyTax: 1, SellTax: 15, TaxType: domain.TaxFixed},
			level:   RiskHigh,
			action:  ActionFlag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := cleanFacts()
			facts.ProgramType = tt.program
			svc, _ := newTestService(facts, lockedLiquidity(), tt.tax)

			report, err := svc.AnalyzeTax(context.Background(), "mint1", tt.tokenType)
			require.NoError(t, err)
			assert.Equal(t, tt.level, report.RiskLevel)
			assert.Equal(t, tt.action, report.VerificationAction)
			assert.True(t, report.HasLiquidity)
			assert.Equal(t, domain.LPLocked, report.LPStatus)
		})
	}
}

func TestAnalyzeTax_ValidatesInput(t *testing.T) {
	svc, _ := newTestService(cleanFacts(), lockedLiquidity(), domain.NoTax())
	ctx := context.Background()

	_, err := svc.AnalyzeTax(ctx, "", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = svc.AnalyzeTax(ctx, "mint1", "erc20")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestParseTokenType(t *testing.T) {
	for in, want := range map[string]domain.ProgramType{
		"":           "",
		"SPL":        domain.ProgramSPL,
		"token2022":  domain.ProgramToken2022,
		"Token-2022": domain.ProgramToken2022,
	} {
		got, err := ParseTokenType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
