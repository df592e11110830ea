package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Quote is a single quote returned by the quote API
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
}

// QuoteClient fetches quotes from an HTTP quote API exposing
// GET {baseURL}/quotes/{symbol}
type QuoteClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

var (
	_ domain.PriceLookup         = (*QuoteClient)(nil)
	_ domain.PreviousCloseLookup = (*QuoteClient)(nil)
)

// ClientOption configures the client
type ClientOption func(*QuoteClient)

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *QuoteClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *QuoteClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *QuoteClient) {
		c.httpClient = client
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *QuoteClient) {
		c.log = log.With().Str("client", "quotes").Logger()
	}
}

// NewQuoteClient creates a new quote API client
func NewQuoteClient(baseURL string, opts ...ClientOption) *QuoteClient {
	c := &QuoteClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		log:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetQuote retrieves the latest quote for symbol
func (c *QuoteClient) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	symbol = domain.NormalizeSymbol(symbol)
	reqURL := fmt.Sprintf("%s/quotes/%s", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Dur("elapsed", elapsed).Msg("Quote request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Str("symbol", symbol).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Quote API non-OK response")
		return nil, fmt.Errorf("quote API error: status %d for symbol %s", resp.StatusCode, symbol)
	}

	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !quote.Price.IsPositive() {
		return nil, fmt.Errorf("quote API returned non-positive price %s for %s", quote.Price, symbol)
	}

	c.log.Debug().Str("symbol", symbol).Str("price", quote.Price.String()).Dur("elapsed", elapsed).Msg("Quote API call")
	return &quote, nil
}

// GetPrice implements domain.PriceLookup
func (c *QuoteClient) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	quote, err := c.GetQuote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return quote.Price, nil
}

// GetPreviousClose implements domain.PreviousCloseLookup
func (c *QuoteClient) GetPreviousClose(ctx context.Context, symbol string) (decimal.Decimal, error) {
	quote, err := c.GetQuote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if quote.PreviousClose.IsZero() {
		return decimal.Zero, fmt.Errorf("no previous close for %s", symbol)
	}
	return quote.PreviousClose, nil
}
