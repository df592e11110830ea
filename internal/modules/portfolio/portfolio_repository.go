package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const portfolioColumns = `id, user_id, name, portfolio_type, cash_balance, is_active, version, created_at, updated_at`

// PortfolioRepository handles portfolio rows. Every write is guarded by the
// version column; a stale version yields domain.ErrConcurrentModification.
type PortfolioRepository struct {
	log zerolog.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// GetByID returns the portfolio with id, active or not
func (r *PortfolioRepository) GetByID(ctx context.Context, q database.Querier, id string) (*Portfolio, error) {
	row := q.QueryRowContext(ctx, "SELECT "+portfolioColumns+" FROM portfolios WHERE id = ?", id)
	p, err := scanPortfolio(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: portfolio %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio %s: %w", id, err)
	}
	return p, nil
}

// GetActiveByID returns the portfolio with id, treating a deactivated one as missing
func (r *PortfolioRepository) GetActiveByID(ctx context.Context, q database.Querier, id string) (*Portfolio, error) {
	p, err := r.GetByID(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, fmt.Errorf("%w: portfolio %s is deactivated", domain.ErrNotFound, id)
	}
	return p, nil
}

// GetActiveByUser returns the user's active portfolio, or nil when there is none
func (r *PortfolioRepository) GetActiveByUser(ctx context.Context, q database.Querier, userID string) (*Portfolio, error) {
	row := q.QueryRowContext(ctx, "SELECT "+portfolioColumns+" FROM portfolios WHERE user_id = ? AND is_active = 1", userID)
	p, err := scanPortfolio(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio for user %s: %w", userID, err)
	}
	return p, nil
}

// ListActive returns all active portfolios ordered by creation time
func (r *PortfolioRepository) ListActive(ctx context.Context, q database.Querier) ([]Portfolio, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+portfolioColumns+" FROM portfolios WHERE is_active = 1 ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var result []Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return result, nil
}

// Create inserts a new portfolio
func (r *PortfolioRepository) Create(ctx context.Context, q database.Querier, p *Portfolio) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO portfolios (`+portfolioColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.UserID, p.Name, string(p.Type), p.CashBalance.String(), boolToInt(p.Active),
		p.Version, p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create portfolio for user %s: %w", p.UserID, err)
	}

	r.log.Info().Str("portfolio_id", p.ID).Str("user_id", p.UserID).Msg("Portfolio created")
	return nil
}

// UpdateCash sets the cash balance and bumps the version. p is updated in place on success.
func (r *PortfolioRepository) UpdateCash(ctx context.Context, q database.Querier, p *Portfolio, cash decimal.Decimal) error {
	now := time.Now()
	if err := r.updateVersioned(ctx, q, p,
		"cash_balance = ?", []interface{}{cash.String()}, now); err != nil {
		return err
	}
	p.CashBalance = cash
	return nil
}

// Deactivate soft-deletes p. p is updated in place on success.
func (r *PortfolioRepository) Deactivate(ctx context.Context, q database.Querier, p *Portfolio) error {
	now := time.Now()
	if err := r.updateVersioned(ctx, q, p, "is_active = 0", nil, now); err != nil {
		return err
	}
	p.Active = false
	return nil
}

func (r *PortfolioRepository) updateVersioned(ctx context.Context, q database.Querier, p *Portfolio, set string, args []interface{}, now time.Time) error {
	query := "UPDATE portfolios SET " + set + ", version = version + 1, updated_at = ? WHERE id = ? AND version = ?"
	args = append(args, now.Unix(), p.ID, p.Version)

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update portfolio %s: %w", p.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for portfolio %s: %w", p.ID, err)
	}
	if affected == 0 {
		r.log.Debug().Str("portfolio_id", p.ID).Int64("version", p.Version).Msg("Stale portfolio version")
		return fmt.Errorf("%w: portfolio %s changed since version %d", domain.ErrConcurrentModification, p.ID, p.Version)
	}

	p.Version++
	p.UpdatedAt = time.Unix(now.Unix(), 0)
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPortfolio(row rowScanner) (*Portfolio, error) {
	var (
		p                    Portfolio
		portfolioType        string
		active               int
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &portfolioType, &p.CashBalance, &active,
		&p.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Type = PortfolioType(portfolioType)
	p.Active = active == 1
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
