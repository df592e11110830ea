// Package marketdata provides price lookups for order execution and valuation.
package marketdata

import (
	"context"
	"sync"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// previousCloseFactor derives a previous close from the current static price
var previousCloseFactor = decimal.RequireFromString("0.995")

// DefaultStaticPrices are the quotes served when no market data source is configured
var DefaultStaticPrices = map[string]decimal.Decimal{
	"AAPL":  decimal.NewFromInt(150),
	"GOOGL": decimal.NewFromInt(2800),
	"MSFT":  decimal.NewFromInt(330),
	"TSLA":  decimal.NewFromInt(800),
	"VTI":   decimal.NewFromInt(220),
	"SPY":   decimal.NewFromInt(450),
}

// StaticProvider serves fixed prices from memory. Unknown symbols are quoted
// at the fallback price.
type StaticProvider struct {
	mu       sync.RWMutex
	prices   map[string]decimal.Decimal
	fallback decimal.Decimal
}

var (
	_ domain.PriceLookup         = (*StaticProvider)(nil)
	_ domain.PreviousCloseLookup = (*StaticProvider)(nil)
)

// NewStaticProvider creates a provider seeded with DefaultStaticPrices
func NewStaticProvider() *StaticProvider {
	prices := make(map[string]decimal.Decimal, len(DefaultStaticPrices))
	for symbol, price := range DefaultStaticPrices {
		prices[symbol] = price
	}
	return &StaticProvider{
		prices:   prices,
		fallback: decimal.NewFromInt(100),
	}
}

// SetPrice overrides the quote for symbol
func (p *StaticProvider) SetPrice(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[domain.NormalizeSymbol(symbol)] = price
}

// GetPrice returns the static quote for symbol
func (p *StaticProvider) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if price, ok := p.prices[domain.NormalizeSymbol(symbol)]; ok {
		return price, nil
	}
	return p.fallback, nil
}

// GetPreviousClose returns 99.5% of the current static quote
func (p *StaticProvider) GetPreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, err := p.GetPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.RoundMoney(price.Mul(previousCloseFactor)), nil
}
