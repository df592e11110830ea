package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Valuator recomputes derived portfolio and holding figures from current
// prices. Nothing it computes is persisted.
type Valuator struct {
	prices  domain.PriceLookup
	timeout time.Duration
	log     zerolog.Logger
}

// NewValuator creates a valuator. Each lookup is bounded by timeout.
func NewValuator(prices domain.PriceLookup, timeout time.Duration, log zerolog.Logger) *Valuator {
	return &Valuator{
		prices:  prices,
		timeout: timeout,
		log:     log.With().Str("component", "valuator").Logger(),
	}
}

// Revalue prices every holding and fills the derived fields of p and holdings.
// p.Holdings is set to the valued holdings. Any price failure aborts with
// domain.ErrExternalLookup. Previous closes are optional: when the price
// source cannot supply one, that holding's day gain is zero.
func (v *Valuator) Revalue(ctx context.Context, p *Portfolio, holdings []Holding) error {
	history, hasHistory := v.prices.(domain.PreviousCloseLookup)

	marketTotal := decimal.Zero
	costTotal := decimal.Zero
	dayGainTotal := decimal.Zero

	valued := make([]Holding, len(holdings))
	for i, h := range holdings {
		price, err := v.lookupPrice(ctx, h.Symbol)
		if err != nil {
			return err
		}

		h.CurrentPrice = price
		h.MarketValue = domain.RoundMoney(h.Shares.Mul(price))
		h.GainLoss = h.MarketValue.Sub(h.TotalCost)
		h.GainLossPercent = domain.PercentChange(h.TotalCost, h.MarketValue)
		h.DayGain = decimal.Zero
		h.DayGainPercent = decimal.Zero

		if hasHistory {
			if prevClose, err := v.lookupPreviousClose(ctx, history, h.Symbol); err != nil {
				v.log.Debug().Err(err).Str("symbol", h.Symbol).Msg("No previous close, day gain left at zero")
			} else if prevClose.IsPositive() {
				h.DayGain = domain.RoundMoney(h.Shares.Mul(price.Sub(prevClose)))
				h.DayGainPercent = domain.PercentChange(prevClose, price)
			}
		}

		marketTotal = marketTotal.Add(h.MarketValue)
		costTotal = costTotal.Add(h.TotalCost)
		dayGainTotal = dayGainTotal.Add(h.DayGain)
		valued[i] = h
	}

	p.TotalValue = p.CashBalance.Add(marketTotal)
	p.TotalCost = costTotal
	p.TotalGain = p.TotalValue.Sub(p.TotalCost)
	p.TotalGainPercent = domain.PercentChange(p.TotalCost, p.TotalValue)
	p.DayGain = dayGainTotal
	p.DayGainPercent = domain.PercentChange(p.TotalValue.Sub(dayGainTotal), p.TotalValue)

	for i := range valued {
		valued[i].PortfolioPercent = domain.PercentOf(valued[i].MarketValue, p.TotalValue)
	}
	p.Holdings = valued

	return nil
}

func (v *Valuator) lookupPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	lookupCtx, cancel := v.bound(ctx)
	defer cancel()

	price, err := v.prices.GetPrice(lookupCtx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price for %s: %v", domain.ErrExternalLookup, symbol, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive price %s for %s", domain.ErrExternalLookup, price, symbol)
	}
	return price, nil
}

func (v *Valuator) lookupPreviousClose(ctx context.Context, history domain.PreviousCloseLookup, symbol string) (decimal.Decimal, error) {
	lookupCtx, cancel := v.bound(ctx)
	defer cancel()
	return history.GetPreviousClose(lookupCtx, symbol)
}

func (v *Valuator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.timeout)
}
