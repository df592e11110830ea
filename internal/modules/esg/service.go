package esg

import (
	"context"
	"fmt"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/modules/universe"
	"github.com/rs/zerolog"
)

// Service serves company scores from the local store, fetching and storing
// misses from the data provider. It implements domain.ESGLookup.
type Service struct {
	repo       *Repository
	provider   DataProvider
	securities *universe.SecurityRepository
	log        zerolog.Logger
}

// NewService creates a new ESG service. securities may be nil, in which case
// sectors come from the provider alone and screening covers stored scores only.
func NewService(repo *Repository, provider DataProvider, securities *universe.SecurityRepository, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		provider:   provider,
		securities: securities,
		log:        log.With().Str("service", "esg").Logger(),
	}
}

// GetCompanyScore returns the score of symbol, fetching it on a miss
func (s *Service) GetCompanyScore(ctx context.Context, symbol string) (*CompanyScore, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInput)
	}

	stored, err := s.repo.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}

	fetched, err := s.provider.FetchScore(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: ESG data for %s: %v", domain.ErrExternalLookup, symbol, err)
	}
	// Overall always follows the composite weighting, whatever the provider sent
	fetched.Overall = CompositeOverall(fetched.Environmental, fetched.Social, fetched.Governance)
	fetched.Rating = Rating(fetched.Overall)
	s.classify(fetched)

	if err := s.repo.Upsert(fetched); err != nil {
		// The fetched score is still valid for this request
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to store fetched ESG score")
	}

	s.log.Info().
		Str("symbol", symbol).
		Int("overall", fetched.Overall).
		Str("rating", fetched.Rating).
		Msg("Fetched ESG score")
	return fetched, nil
}

// GetESGScore implements domain.ESGLookup
func (s *Service) GetESGScore(ctx context.Context, symbol string) (domain.ESGScore, error) {
	c, err := s.GetCompanyScore(ctx, symbol)
	if err != nil {
		return domain.ESGScore{}, err
	}
	return c.Score(), nil
}

// ScorePortfolio aggregates the ESG score of a portfolio's holdings
func (s *Service) ScorePortfolio(ctx context.Context, portfolioID string, holdings []WeightedHolding) (*PortfolioScore, error) {
	score, err := Aggregate(ctx, holdings, s)
	if err != nil {
		return nil, err
	}
	score.PortfolioID = portfolioID
	return score, nil
}

// Screen filters the security universe together with every stored score.
// Universe members without a stored score are fetched first.
func (s *Service) Screen(ctx context.Context, criteria Criteria) ([]CompanyScore, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	if err := s.SeedUniverse(ctx); err != nil {
		return nil, err
	}

	candidates, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}
	return Screen(candidates, criteria), nil
}

// SeedUniverse makes sure every security in the universe has a stored score
func (s *Service) SeedUniverse(ctx context.Context) error {
	if s.securities == nil {
		return nil
	}

	securities, err := s.securities.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load universe: %w", err)
	}

	for _, sec := range securities {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.GetCompanyScore(ctx, sec.Symbol); err != nil {
			return err
		}
	}
	return nil
}

// classify fills the sector from the security universe when known
func (s *Service) classify(c *CompanyScore) {
	if s.securities == nil {
		if c.Sector == "" {
			c.Sector = universe.UnknownSector
		}
		return
	}

	sec, err := s.securities.GetBySymbol(c.Symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", c.Symbol).Msg("Failed to classify ESG score")
	}
	if sec != nil {
		c.Sector = sec.Sector
		if c.CompanyName == "" || c.CompanyName == c.Symbol+" Corporation" {
			c.CompanyName = sec.Name
		}
	}
	if c.Sector == "" {
		c.Sector = universe.UnknownSector
	}
}
