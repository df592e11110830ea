// Package esg provides company ESG scores, value-weighted portfolio
// aggregation and ESG screening of the security universe.
package esg

import (
	"time"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// Trend of a company's ESG score
type Trend string

const (
	TrendImproving Trend = "IMPROVING"
	TrendStable    Trend = "STABLE"
	TrendDeclining Trend = "DECLINING"
)

// ImprovementThreshold is the overall score below which a holding gets a
// replacement suggestion
const ImprovementThreshold = 70

// CompanyScore is the stored ESG profile of one company
type CompanyScore struct {
	Symbol               string    `json:"symbol"`
	CompanyName          string    `json:"company_name"`
	Overall              int       `json:"overall_score"`
	Environmental        int       `json:"environmental_score"`
	Social               int       `json:"social_score"`
	Governance           int       `json:"governance_score"`
	Rating               string    `json:"rating"`
	CarbonEmissions      *float64  `json:"carbon_emissions,omitempty"`
	RenewableEnergyUsage *float64  `json:"renewable_energy_usage,omitempty"`
	Sector               string    `json:"sector"`
	Industry             string    `json:"industry,omitempty"`
	Trend                Trend     `json:"trend"`
	DataSource           string    `json:"data_source,omitempty"`
	LastUpdated          time.Time `json:"last_updated"`
}

// Score returns the four sub-scores as a domain.ESGScore
func (c *CompanyScore) Score() domain.ESGScore {
	return domain.ESGScore{
		Overall:       c.Overall,
		Environmental: c.Environmental,
		Social:        c.Social,
		Governance:    c.Governance,
	}
}

// WeightedHolding is the input to portfolio aggregation
type WeightedHolding struct {
	Symbol      string
	MarketValue decimal.Decimal
}

// HoldingScore is one holding's contribution to a portfolio score
type HoldingScore struct {
	Symbol      string          `json:"symbol"`
	MarketValue decimal.Decimal `json:"market_value"`
	Weight      decimal.Decimal `json:"weight"`
	Score       domain.ESGScore `json:"score"`
	Rating      string          `json:"rating"`
}

// Improvement suggests replacing a low-scoring holding
type Improvement struct {
	Symbol     string `json:"symbol"`
	Overall    int    `json:"overall_score"`
	Suggestion string `json:"suggestion"`
}

// PortfolioScore is the value-weighted ESG profile of a set of holdings
type PortfolioScore struct {
	PortfolioID  string          `json:"portfolio_id,omitempty"`
	Score        domain.ESGScore `json:"score"`
	Rating       string          `json:"rating"`
	Holdings     []HoldingScore  `json:"holdings"`
	Improvements []Improvement   `json:"improvements"`
	CalculatedAt time.Time       `json:"calculated_at"`
}

// CompositeOverall returns E*0.4 + S*0.3 + G*0.3 rounded half-up.
// Computed in tenths so x.5 always rounds up.
func CompositeOverall(environmental, social, governance int) int {
	tenths := 4*environmental + 3*social + 3*governance
	return (tenths + 5) / 10
}

// Rating maps an overall score to its letter rating
func Rating(score int) string {
	switch {
	case score >= 90:
		return "AAA"
	case score >= 80:
		return "AA"
	case score >= 70:
		return "A"
	case score >= 60:
		return "BBB"
	case score >= 50:
		return "BB"
	case score >= 40:
		return "B"
	default:
		return "CCC"
	}
}
