package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Ledger maintains average-cost holdings. Callers run it inside the
// portfolio's unit of work so both operations are atomic per portfolio.
type Ledger struct {
	holdings *HoldingRepository
	now      func() time.Time
	log      zerolog.Logger
}

// NewLedger creates a ledger over the holding repository
func NewLedger(holdings *HoldingRepository, log zerolog.Logger) *Ledger {
	return &Ledger{
		holdings: holdings,
		now:      time.Now,
		log:      log.With().Str("component", "ledger").Logger(),
	}
}

// ApplyBuy adds shares bought for amount to the holding of symbol, creating
// it with zero basis when missing. avgCost = totalCost / shares, half-up to 4 digits.
func (l *Ledger) ApplyBuy(ctx context.Context, q database.Querier, portfolioID, symbol string, shares, price, amount decimal.Decimal) (*Holding, error) {
	if !shares.IsPositive() {
		return nil, fmt.Errorf("%w: buy of %s shares of %s", domain.ErrArithmetic, shares, symbol)
	}

	h, err := l.holdings.GetBySymbol(ctx, q, portfolioID, symbol)
	if err != nil {
		return nil, err
	}

	now := l.now()
	if h == nil {
		h = &Holding{
			ID:          uuid.New().String(),
			PortfolioID: portfolioID,
			Symbol:      symbol,
			Shares:      decimal.Zero,
			AvgCost:     decimal.Zero,
			TotalCost:   decimal.Zero,
			CreatedAt:   now,
		}
	}

	newShares := h.Shares.Add(shares)
	if !newShares.IsPositive() {
		return nil, fmt.Errorf("%w: holding %s would have %s shares", domain.ErrArithmetic, symbol, newShares)
	}

	h.Shares = newShares
	h.TotalCost = h.TotalCost.Add(amount)
	h.AvgCost = h.TotalCost.DivRound(h.Shares, domain.MoneyScale)
	h.UpdatedAt = now

	if err := l.holdings.Upsert(ctx, q, h); err != nil {
		return nil, err
	}

	l.log.Debug().
		Str("portfolio_id", portfolioID).
		Str("symbol", symbol).
		Str("shares", shares.String()).
		Str("price", price.String()).
		Str("total_shares", h.Shares.String()).
		Str("avg_cost", h.AvgCost.String()).
		Msg("Buy applied")

	return h, nil
}

// ApplySell removes sharesToSell from the holding of symbol and reduces its
// cost basis proportionally: remainingCost = totalCost * (shares - sold) / shares,
// half-up to 4 digits. A holding reaching exactly zero shares is deleted and
// returned with zero shares and cost.
func (l *Ledger) ApplySell(ctx context.Context, q database.Querier, portfolioID, symbol string, sharesToSell decimal.Decimal) (*Holding, error) {
	if !sharesToSell.IsPositive() {
		return nil, fmt.Errorf("%w: shares to sell must be positive", domain.ErrInvalidInput)
	}

	h, err := l.holdings.GetBySymbol(ctx, q, portfolioID, symbol)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("%w: no holding for %s", domain.ErrNotFound, symbol)
	}
	if sharesToSell.GreaterThan(h.Shares) {
		return nil, fmt.Errorf("%w: selling %s of %s held shares of %s",
			domain.ErrInsufficientShares, sharesToSell, h.Shares, symbol)
	}

	remaining := h.Shares.Sub(sharesToSell)
	h.UpdatedAt = l.now()

	if remaining.IsZero() {
		if err := l.holdings.Delete(ctx, q, portfolioID, symbol); err != nil {
			return nil, err
		}
		h.Shares = decimal.Zero
		h.TotalCost = decimal.Zero
		h.AvgCost = decimal.Zero
		return h, nil
	}

	h.TotalCost = h.TotalCost.Mul(remaining).DivRound(h.Shares, domain.MoneyScale)
	h.Shares = remaining
	h.AvgCost = h.TotalCost.DivRound(h.Shares, domain.MoneyScale)

	if err := l.holdings.Upsert(ctx, q, h); err != nil {
		return nil, err
	}

	l.log.Debug().
		Str("portfolio_id", portfolioID).
		Str("symbol", symbol).
		Str("sold", sharesToSell.String()).
		Str("remaining", h.Shares.String()).
		Str("total_cost", h.TotalCost.String()).
		Msg("Sell applied")

	return h, nil
}
