package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ESGScore holds the four 0-100 sub-scores of a company or a portfolio
type ESGScore struct {
	Overall       int `json:"overall_score"`
	Environmental int `json:"environmental_score"`
	Social        int `json:"social_score"`
	Governance    int `json:"governance_score"`
}

// PriceLookup supplies the current market price of a symbol.
// Implementations must not retry internally; callers bound the call with ctx.
type PriceLookup interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PreviousCloseLookup is implemented by price sources that also know the
// previous session close. Valuation uses it for day gain when available.
type PreviousCloseLookup interface {
	GetPreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// ESGLookup supplies company-level ESG scores
type ESGLookup interface {
	GetESGScore(ctx context.Context, symbol string) (ESGScore, error)
}

// EventSink receives best-effort domain events. Emit failures are logged by
// the caller and never change the outcome of the operation that produced them.
type EventSink interface {
	Emit(topic, key string, payload interface{}) error
}

// PriceLookupFunc adapts a plain function to PriceLookup
type PriceLookupFunc func(ctx context.Context, symbol string) (decimal.Decimal, error)

// GetPrice calls f(ctx, symbol)
func (f PriceLookupFunc) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return f(ctx, symbol)
}

// ESGLookupFunc adapts a plain function to ESGLookup
type ESGLookupFunc func(ctx context.Context, symbol string) (ESGScore, error)

// GetESGScore calls f(ctx, symbol)
func (f ESGLookupFunc) GetESGScore(ctx context.Context, symbol string) (ESGScore, error) {
	return f(ctx, symbol)
}
