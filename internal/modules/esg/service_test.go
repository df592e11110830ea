package esg

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/modules/universe"
	testutil "github.com/miowsis/portfolio-engine/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	inner DataProvider
	calls int32
	err   error
}

func (p *countingProvider) FetchScore(ctx context.Context, symbol string) (*CompanyScore, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return nil, p.err
	}
	return p.inner.FetchScore(ctx, symbol)
}

func newTestService(t *testing.T, provider DataProvider) (*Service, *Repository) {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)

	repo := NewRepository(db.Conn(), zerolog.Nop())
	securities := universe.NewSecurityRepository(db.Conn(), zerolog.Nop())
	return NewService(repo, provider, securities, zerolog.Nop()), repo
}

func TestGetCompanyScore_FetchesOnceThenServesStored(t *testing.T) {
	provider := &countingProvider{inner: NewMockProvider()}
	service, repo := newTestService(t, provider)

	first, err := service.GetCompanyScore(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Symbol)
	// 90*0.4 + 80*0.3 + 85*0.3 = 85.5
	assert.Equal(t, 86, first.Overall)
	assert.Equal(t, 90, first.Environmental)
	assert.Equal(t, "TECHNOLOGY", first.Sector)
	assert.Equal(t, "AA", first.Rating)

	second, err := service.GetCompanyScore(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, first.Overall, second.Overall)
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.calls))

	stored, err := repo.GetBySymbol("AAPL")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, MockDataSource, stored.DataSource)
}

func TestGetCompanyScore_Errors(t *testing.T) {
	provider := &countingProvider{inner: NewMockProvider(), err: errors.New("timeout")}
	service, _ := newTestService(t, provider)

	_, err := service.GetCompanyScore(context.Background(), "  ")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = service.GetCompanyScore(context.Background(), "AAPL")
	assert.True(t, errors.Is(err, domain.ErrExternalLookup))
}

type fixedProvider struct {
	score CompanyScore
}

func (p fixedProvider) FetchScore(ctx context.Context, symbol string) (*CompanyScore, error) {
	c := p.score
	c.Symbol = symbol
	return &c, nil
}

func TestGetCompanyScore_RecomputesProviderOverall(t *testing.T) {
	service, repo := newTestService(t, fixedProvider{score: CompanyScore{
		Overall: 40, Environmental: 95, Social: 88, Governance: 90, Rating: "B",
	}})

	score, err := service.GetCompanyScore(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Equal(t, 91, score.Overall)
	assert.Equal(t, "AAA", score.Rating)

	stored, err := repo.GetBySymbol("TSLA")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 91, stored.Overall)
	assert.Equal(t, "AAA", stored.Rating)
}

func TestMockProvider_KnownScoresFollowComposite(t *testing.T) {
	p := NewMockProvider()
	for symbol := range knownScores {
		c, err := p.FetchScore(context.Background(), symbol)
		require.NoError(t, err)
		assert.Equal(t, CompositeOverall(c.Environmental, c.Social, c.Governance), c.Overall, symbol)
		assert.Equal(t, Rating(c.Overall), c.Rating, symbol)
	}
}

func TestGetESGScore_ImplementsLookup(t *testing.T) {
	service, _ := newTestService(t, NewMockProvider())

	var lookup domain.ESGLookup = service
	score, err := lookup.GetESGScore(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Equal(t, domain.ESGScore{Overall: 91, Environmental: 95, Social: 88, Governance: 90}, score)
}

func TestScorePortfolio(t *testing.T) {
	service, _ := newTestService(t, NewMockProvider())

	result, err := service.ScorePortfolio(context.Background(), "p1", []WeightedHolding{
		{Symbol: "AAPL", MarketValue: testutil.D("100")},
		{Symbol: "GOOGL", MarketValue: testutil.D("100")},
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", result.PortfolioID)
	// (86 + 79) / 2 = 82.5
	assert.Equal(t, 83, result.Score.Overall)
	assert.Empty(t, result.Improvements)
}

func TestScreen_SeedsUniverse(t *testing.T) {
	service, repo := newTestService(t, NewMockProvider())

	results, err := service.Screen(context.Background(), Criteria{IncludeSectors: []string{"TECHNOLOGY"}})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "TECHNOLOGY", r.Sector)
	}
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Overall, results[i].Overall)
	}

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 13)
}

func TestMockProvider_Deterministic(t *testing.T) {
	p := NewMockProvider()

	a, err := p.FetchScore(context.Background(), "ZZZ")
	require.NoError(t, err)
	b, err := p.FetchScore(context.Background(), "ZZZ")
	require.NoError(t, err)

	assert.Equal(t, a.Environmental, b.Environmental)
	assert.Equal(t, a.Overall, b.Overall)
	for _, s := range []int{a.Environmental, a.Social, a.Governance} {
		assert.GreaterOrEqual(t, s, 60)
		assert.LessOrEqual(t, s, 99)
	}
	assert.Equal(t, CompositeOverall(a.Environmental, a.Social, a.Governance), a.Overall)
	assert.Equal(t, "ZZZ Corporation", a.CompanyName)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.FetchScore(ctx, "ZZZ")
	assert.Error(t, err)
}
