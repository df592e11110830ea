// Package portfolio provides the holding ledger, valuation and portfolio queries.
package portfolio

import (
	"math"
	"time"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// PortfolioType is the risk profile of a portfolio
type PortfolioType string

const (
	Conservative PortfolioType = "CONSERVATIVE"
	Moderate     PortfolioType = "MODERATE"
	Aggressive   PortfolioType = "AGGRESSIVE"
)

// DefaultPortfolioName is used for lazily created portfolios
const DefaultPortfolioName = "My Portfolio"

// Portfolio is a user's portfolio. Stored fields are persisted; the
// derived fields are recomputed by the Valuator on every read.
type Portfolio struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Type        PortfolioType   `json:"portfolio_type"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	Active      bool            `json:"is_active"`
	Version     int64           `json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Derived
	TotalValue       decimal.Decimal  `json:"total_value"`
	TotalCost        decimal.Decimal  `json:"total_cost"`
	TotalGain        decimal.Decimal  `json:"total_gain"`
	TotalGainPercent decimal.Decimal  `json:"total_gain_percent"`
	DayGain          decimal.Decimal  `json:"day_gain"`
	DayGainPercent   decimal.Decimal  `json:"day_gain_percent"`
	ESG              *domain.ESGScore `json:"esg,omitempty"`
	Holdings         []Holding        `json:"holdings"`
}

// Holding is a position in one symbol
type Holding struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	Shares      decimal.Decimal `json:"shares"`
	AvgCost     decimal.Decimal `json:"avg_cost"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Derived
	CurrentPrice     decimal.Decimal  `json:"current_price"`
	MarketValue      decimal.Decimal  `json:"market_value"`
	GainLoss         decimal.Decimal  `json:"gain_loss"`
	GainLossPercent  decimal.Decimal  `json:"gain_loss_percent"`
	DayGain          decimal.Decimal  `json:"day_gain"`
	DayGainPercent   decimal.Decimal  `json:"day_gain_percent"`
	PortfolioPercent decimal.Decimal  `json:"portfolio_percent"`
	ESG              *domain.ESGScore `json:"esg,omitempty"`
}

// Snapshot is the end-of-day value of a portfolio
type Snapshot struct {
	PortfolioID string          `json:"portfolio_id"`
	Date        string          `json:"date"` // YYYY-MM-DD
	TotalValue  decimal.Decimal `json:"total_value"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SnapshotDateLayout is the layout of Snapshot.Date
const SnapshotDateLayout = "2006-01-02"

// Page selects a slice of a listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxOffset bounds how deep a listing can be paged
	MaxOffset = math.MaxInt32
)

// Normalize clamps the page to valid bounds
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if maxNumber := MaxOffset/p.Size + 1; p.Number > maxNumber {
		p.Number = maxNumber
	}
	return p
}

// Offset returns the number of items preceding the page
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// HoldingsPage is one page of valued holdings
type HoldingsPage struct {
	Holdings   []Holding       `json:"holdings"`
	Page       int             `json:"page"`
	Size       int             `json:"size"`
	Total      int             `json:"total"`
	TotalValue decimal.Decimal `json:"total_value"`
}
