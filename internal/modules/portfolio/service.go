package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/internal/events"
	"github.com/miowsis/portfolio-engine/internal/locking"
	"github.com/miowsis/portfolio-engine/internal/modules/esg"
	"github.com/miowsis/portfolio-engine/internal/modules/universe"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service answers portfolio queries. Every read revalues holdings at current
// prices; nothing derived is stored.
type Service struct {
	db         *sql.DB
	uow        *database.UnitOfWork
	locks      *locking.KeyedMutex
	portfolios *PortfolioRepository
	holdings   *HoldingRepository
	snapshots  *SnapshotRepository
	valuator   *Valuator
	esgLookup  domain.ESGLookup
	securities *universe.SecurityRepository
	events     domain.EventSink
	now        func() time.Time
	log        zerolog.Logger
}

// ServiceDeps groups the collaborators of Service
type ServiceDeps struct {
	DB         *sql.DB
	UnitOfWork *database.UnitOfWork
	Locks      *locking.KeyedMutex
	Portfolios *PortfolioRepository
	Holdings   *HoldingRepository
	Snapshots  *SnapshotRepository
	Valuator   *Valuator
	ESG        domain.ESGLookup
	Securities *universe.SecurityRepository
	Events     domain.EventSink
}

// NewService creates a new portfolio service
func NewService(deps ServiceDeps, log zerolog.Logger) *Service {
	sink := deps.Events
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Service{
		db:         deps.DB,
		uow:        deps.UnitOfWork,
		locks:      deps.Locks,
		portfolios: deps.Portfolios,
		holdings:   deps.Holdings,
		snapshots:  deps.Snapshots,
		valuator:   deps.Valuator,
		esgLookup:  deps.ESG,
		securities: deps.Securities,
		events:     sink,
		now:        time.Now,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// GetPortfolio returns the user's active portfolio valued at current prices,
// creating an empty one on first access
func (s *Service) GetPortfolio(ctx context.Context, userID string) (*Portfolio, error) {
	p, holdings, err := s.loadForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.valuator.Revalue(ctx, p, holdings); err != nil {
		return nil, err
	}
	s.attachESG(ctx, p)
	return p, nil
}

// GetHoldings returns one page of the user's valued holdings ordered by symbol
func (s *Service) GetHoldings(ctx context.Context, userID string, page Page) (*HoldingsPage, error) {
	page = page.Normalize()

	p, holdings, err := s.loadForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	// portfolioPercent needs the full portfolio total, so value everything first
	if err := s.valuator.Revalue(ctx, p, holdings); err != nil {
		return nil, err
	}
	s.attachESG(ctx, p)

	result := &HoldingsPage{
		Holdings:   []Holding{},
		Page:       page.Number,
		Size:       page.Size,
		Total:      len(p.Holdings),
		TotalValue: p.TotalValue,
	}
	if start := page.Offset(); start >= 0 && start < len(p.Holdings) {
		end := start + page.Size
		if end > len(p.Holdings) {
			end = len(p.Holdings)
		}
		result.Holdings = p.Holdings[start:end]
	}
	return result, nil
}

// GetAllocation breaks the active portfolio down by asset type, sector and region
func (s *Service) GetAllocation(ctx context.Context, portfolioID string) (*Allocation, error) {
	p, err := s.valuedByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, len(p.Holdings))
	for i, h := range p.Holdings {
		symbols[i] = h.Symbol
	}
	securities, err := s.securities.GetBySymbols(symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to classify holdings: %w", err)
	}

	return BuildAllocation(p, securities), nil
}

// GetPortfolioESG returns the value-weighted ESG profile of the active portfolio.
// Unlike GetPortfolio, ESG lookup failures are returned to the caller.
func (s *Service) GetPortfolioESG(ctx context.Context, portfolioID string) (*esg.PortfolioScore, error) {
	p, err := s.valuedByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	score, err := esg.Aggregate(ctx, weighted(p.Holdings), s.esgLookup)
	if err != nil {
		return nil, err
	}
	score.PortfolioID = p.ID
	return score, nil
}

// GetPerformance reports returns and risk over period from daily snapshots,
// with today's live valuation as the latest point
func (s *Service) GetPerformance(ctx context.Context, userID string, period string) (*Performance, error) {
	parsed, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	p, err := s.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	history, err := s.snapshots.ListSince(ctx, s.db, p.ID, parsed.Since(now))
	if err != nil {
		return nil, err
	}

	current := snapshotOf(p, now)
	return ComputePerformance(p.ID, parsed, history, &current), nil
}

// Deactivate soft-deletes an active portfolio. The user gets a fresh
// portfolio on their next access.
func (s *Service) Deactivate(ctx context.Context, portfolioID string) (*Portfolio, error) {
	if strings.TrimSpace(portfolioID) == "" {
		return nil, fmt.Errorf("%w: portfolio id is required", domain.ErrInvalidInput)
	}

	unlock := s.locks.Lock(portfolioID)
	defer unlock()

	var p *Portfolio
	err := s.uow.Run(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = s.portfolios.GetActiveByID(ctx, tx, portfolioID)
		if err != nil {
			return err
		}
		return s.portfolios.Deactivate(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("portfolio_id", p.ID).Str("user_id", p.UserID).Msg("Portfolio deactivated")
	s.emit(&events.PortfolioLifecycleData{PortfolioID: p.ID, UserID: p.UserID, Active: false})
	return p, nil
}

// RecordSnapshots stores the value of every active portfolio for date.
// Portfolios that cannot be valued are skipped and counted as errors.
func (s *Service) RecordSnapshots(ctx context.Context, date time.Time) (int, error) {
	portfolios, err := s.portfolios.ListActive(ctx, s.db)
	if err != nil {
		return 0, err
	}

	recorded, failed := 0, 0
	for i := range portfolios {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}

		p := &portfolios[i]
		if err := s.recordSnapshot(ctx, p, date); err != nil {
			failed++
			s.log.Warn().Err(err).Str("portfolio_id", p.ID).Msg("Failed to record snapshot")
			continue
		}
		recorded++
	}

	s.log.Info().
		Str("date", date.Format(SnapshotDateLayout)).
		Int("recorded", recorded).
		Int("failed", failed).
		Msg("Portfolio snapshots recorded")
	s.emit(&events.SnapshotRecordedData{
		Date:       date.Format(SnapshotDateLayout),
		Portfolios: recorded,
		Errors:     failed,
	})
	return recorded, nil
}

func (s *Service) recordSnapshot(ctx context.Context, p *Portfolio, date time.Time) error {
	holdings, err := s.holdings.GetByPortfolio(ctx, s.db, p.ID)
	if err != nil {
		return err
	}
	if err := s.valuator.Revalue(ctx, p, holdings); err != nil {
		return err
	}
	return s.snapshots.Upsert(ctx, s.db, snapshotOf(p, date))
}

// loadForUser reads the user's portfolio and holdings in one transaction,
// creating the portfolio when the user has none
func (s *Service) loadForUser(ctx context.Context, userID string) (*Portfolio, []Holding, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	if err := s.ensurePortfolio(ctx, userID); err != nil {
		return nil, nil, err
	}

	var (
		p        *Portfolio
		holdings []Holding
	)
	err := s.uow.Run(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = s.portfolios.GetActiveByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if p == nil {
			// Deactivated between ensurePortfolio and this read
			return fmt.Errorf("%w: no active portfolio for user %s", domain.ErrConcurrentModification, userID)
		}
		holdings, err = s.holdings.GetByPortfolio(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return p, holdings, nil
}

// ensurePortfolio creates the user's default portfolio when none is active
func (s *Service) ensurePortfolio(ctx context.Context, userID string) error {
	existing, err := s.portfolios.GetActiveByUser(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	unlock := s.locks.Lock("user:" + userID)
	defer unlock()

	var created *Portfolio
	err = s.uow.Run(ctx, func(tx *sql.Tx) error {
		created = nil
		p, err := s.portfolios.GetActiveByUser(ctx, tx, userID)
		if err != nil || p != nil {
			return err
		}

		now := time.Unix(s.now().Unix(), 0)
		p = &Portfolio{
			ID:          uuid.New().String(),
			UserID:      userID,
			Name:        DefaultPortfolioName,
			Type:        Moderate,
			CashBalance: decimal.Zero,
			Active:      true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.portfolios.Create(ctx, tx, p); err != nil {
			if isUniqueViolation(err) {
				// Another process created it first
				return fmt.Errorf("%w: %v", domain.ErrConcurrentModification, err)
			}
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return err
	}

	if created != nil {
		s.emit(&events.PortfolioLifecycleData{PortfolioID: created.ID, UserID: userID, Active: true})
	}
	return nil
}

func (s *Service) valuedByID(ctx context.Context, portfolioID string) (*Portfolio, error) {
	if strings.TrimSpace(portfolioID) == "" {
		return nil, fmt.Errorf("%w: portfolio id is required", domain.ErrInvalidInput)
	}

	var (
		p        *Portfolio
		holdings []Holding
	)
	err := s.uow.Run(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = s.portfolios.GetActiveByID(ctx, tx, portfolioID)
		if err != nil {
			return err
		}
		holdings, err = s.holdings.GetByPortfolio(ctx, tx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.valuator.Revalue(ctx, p, holdings); err != nil {
		return nil, err
	}
	return p, nil
}

// attachESG fills portfolio and holding ESG scores. Lookup failures leave
// them unset rather than failing the read.
func (s *Service) attachESG(ctx context.Context, p *Portfolio) {
	if s.esgLookup == nil {
		return
	}

	score, err := esg.Aggregate(ctx, weighted(p.Holdings), s.esgLookup)
	if err != nil {
		s.log.Warn().Err(err).Str("portfolio_id", p.ID).Msg("ESG scores unavailable")
		return
	}

	aggregate := score.Score
	p.ESG = &aggregate
	for i := range p.Holdings {
		holdingScore := score.Holdings[i].Score
		p.Holdings[i].ESG = &holdingScore
	}
}

func (s *Service) emit(data events.EventData) {
	key := string(data.EventType())
	if err := s.events.Emit(events.PortfolioTopic, key, data); err != nil {
		s.log.Warn().Err(err).Str("event_type", key).Msg("Failed to emit event")
	}
}

func weighted(holdings []Holding) []esg.WeightedHolding {
	result := make([]esg.WeightedHolding, len(holdings))
	for i, h := range holdings {
		result[i] = esg.WeightedHolding{Symbol: h.Symbol, MarketValue: h.MarketValue}
	}
	return result
}

func snapshotOf(p *Portfolio, date time.Time) Snapshot {
	return Snapshot{
		PortfolioID: p.ID,
		Date:        date.Format(SnapshotDateLayout),
		TotalValue:  p.TotalValue,
		TotalCost:   p.TotalCost,
		CashBalance: p.CashBalance,
	}
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
