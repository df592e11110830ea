package portfolio

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/rs/zerolog"
)

const holdingColumns = `id, portfolio_id, symbol, shares, avg_cost, total_cost, created_at, updated_at`

// HoldingRepository handles holding rows
type HoldingRepository struct {
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		log: log.With().Str("repo", "holding").Logger(),
	}
}

// GetByPortfolio returns all holdings of a portfolio ordered by symbol
func (r *HoldingRepository) GetByPortfolio(ctx context.Context, q database.Querier, portfolioID string) ([]Holding, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+holdingColumns+" FROM holdings WHERE portfolio_id = ? ORDER BY symbol", portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// GetBySymbol returns the holding for symbol, or nil when the portfolio has none
func (r *HoldingRepository) GetBySymbol(ctx context.Context, q database.Querier, portfolioID, symbol string) (*Holding, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+holdingColumns+" FROM holdings WHERE portfolio_id = ? AND symbol = ?", portfolioID, symbol)
	h, err := scanHolding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding %s: %w", symbol, err)
	}
	return h, nil
}

// Upsert inserts h or updates its quantities
func (r *HoldingRepository) Upsert(ctx context.Context, q database.Querier, h *Holding) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO holdings (`+holdingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(portfolio_id, symbol) DO UPDATE SET
			shares = excluded.shares,
			avg_cost = excluded.avg_cost,
			total_cost = excluded.total_cost,
			updated_at = excluded.updated_at
	`,
		h.ID, h.PortfolioID, h.Symbol, h.Shares.String(), h.AvgCost.String(), h.TotalCost.String(),
		h.CreatedAt.Unix(), h.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s: %w", h.Symbol, err)
	}
	return nil
}

// Delete removes a holding
func (r *HoldingRepository) Delete(ctx context.Context, q database.Querier, portfolioID, symbol string) error {
	if _, err := q.ExecContext(ctx,
		"DELETE FROM holdings WHERE portfolio_id = ? AND symbol = ?", portfolioID, symbol); err != nil {
		return fmt.Errorf("failed to delete holding %s: %w", symbol, err)
	}
	r.log.Debug().Str("portfolio_id", portfolioID).Str("symbol", symbol).Msg("Holding removed")
	return nil
}

func scanHolding(row rowScanner) (*Holding, error) {
	var (
		h                    Holding
		createdAt, updatedAt int64
	)
	if err := row.Scan(&h.ID, &h.PortfolioID, &h.Symbol, &h.Shares, &h.AvgCost, &h.TotalCost,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	h.CreatedAt = time.Unix(createdAt, 0)
	h.UpdatedAt = time.Unix(updatedAt, 0)
	return &h, nil
}
