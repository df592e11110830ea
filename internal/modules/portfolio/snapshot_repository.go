package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/rs/zerolog"
)

// SnapshotRepository stores daily portfolio values for performance reporting
type SnapshotRepository struct {
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		log: log.With().Str("repo", "snapshot").Logger(),
	}
}

// Upsert stores s, replacing any snapshot of the same portfolio and date
func (r *SnapshotRepository) Upsert(ctx context.Context, q database.Querier, s Snapshot) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := q.ExecContext(ctx, `
		INSERT OR REPLACE INTO portfolio_snapshots
			(portfolio_id, date, total_value, total_cost, cash_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.PortfolioID, s.Date, s.TotalValue.String(), s.TotalCost.String(), s.CashBalance.String(), s.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store snapshot for %s on %s: %w", s.PortfolioID, s.Date, err)
	}
	return nil
}

// ListSince returns snapshots dated on or after since (YYYY-MM-DD; empty for all), oldest first
func (r *SnapshotRepository) ListSince(ctx context.Context, q database.Querier, portfolioID, since string) ([]Snapshot, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT portfolio_id, date, total_value, total_cost, cash_balance, created_at
		FROM portfolio_snapshots
		WHERE portfolio_id = ? AND date >= ?
		ORDER BY date
	`, portfolioID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var (
			s         Snapshot
			createdAt int64
		)
		if err := rows.Scan(&s.PortfolioID, &s.Date, &s.TotalValue, &s.TotalCost, &s.CashBalance, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.CreatedAt = time.Unix(createdAt, 0)
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}
