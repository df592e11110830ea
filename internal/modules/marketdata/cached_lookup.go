package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/miowsis/portfolio-engine/internal/clientdata"
	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type cachedPrice struct {
	Price decimal.Decimal `json:"price"`
}

// CachedLookup puts the client data cache in front of a price source.
// Cache failures are logged and fall through to the source; source failures
// are never replaced by stale cache entries.
type CachedLookup struct {
	source   domain.PriceLookup
	cache    *clientdata.Repository
	priceTTL time.Duration
	log      zerolog.Logger
}

var (
	_ domain.PriceLookup         = (*CachedLookup)(nil)
	_ domain.PreviousCloseLookup = (*CachedLookup)(nil)
)

// NewCachedLookup wraps source with cache. A non-positive priceTTL uses clientdata.TTLCurrentPrice.
func NewCachedLookup(source domain.PriceLookup, cache *clientdata.Repository, priceTTL time.Duration, log zerolog.Logger) *CachedLookup {
	if priceTTL <= 0 {
		priceTTL = clientdata.TTLCurrentPrice
	}
	return &CachedLookup{
		source:   source,
		cache:    cache,
		priceTTL: priceTTL,
		log:      log.With().Str("component", "cached_price_lookup").Logger(),
	}
}

// GetPrice returns a fresh cached price or fetches one from the source
func (l *CachedLookup) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)
	return l.lookup(ctx, "current_prices", symbol, l.priceTTL, func() (decimal.Decimal, error) {
		return l.source.GetPrice(ctx, symbol)
	})
}

// GetPreviousClose returns the previous close when the source can supply one
func (l *CachedLookup) GetPreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	history, ok := l.source.(domain.PreviousCloseLookup)
	if !ok {
		return decimal.Zero, fmt.Errorf("price source does not provide previous closes")
	}

	symbol = domain.NormalizeSymbol(symbol)
	return l.lookup(ctx, "previous_closes", symbol, clientdata.TTLPreviousClose, func() (decimal.Decimal, error) {
		return history.GetPreviousClose(ctx, symbol)
	})
}

func (l *CachedLookup) lookup(ctx context.Context, table, symbol string, ttl time.Duration, fetch func() (decimal.Decimal, error)) (decimal.Decimal, error) {
	if raw, err := l.cache.GetIfFresh(table, symbol); err != nil {
		l.log.Warn().Err(err).Str("table", table).Str("symbol", symbol).Msg("Cache read failed")
	} else if raw != nil {
		var cached cachedPrice
		if err := json.Unmarshal(raw, &cached); err == nil && cached.Price.IsPositive() {
			return cached.Price, nil
		}
	}

	price, err := fetch()
	if err != nil {
		return decimal.Zero, err
	}

	if err := l.cache.Store(table, symbol, cachedPrice{Price: price}, ttl); err != nil {
		l.log.Warn().Err(err).Str("table", table).Str("symbol", symbol).Msg("Cache write failed")
	}
	return price, nil
}
