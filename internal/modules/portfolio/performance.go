package portfolio

import (
	"fmt"
	"strings"
	"time"

	"github.com/miowsis/portfolio-engine/internal/domain"
	"github.com/miowsis/portfolio-engine/pkg/formulas"
	"github.com/shopspring/decimal"
)

// Period selects the look-back window of a performance report
type Period string

const (
	Period1W  Period = "1W"
	Period1M  Period = "1M"
	Period3M  Period = "3M"
	Period6M  Period = "6M"
	Period1Y  Period = "1Y"
	PeriodAll Period = "ALL"
)

// RiskFreeRate is the annual rate used for Sharpe ratios
const RiskFreeRate = 0.02

// ParsePeriod parses a period name case-insensitively. Empty means 1M.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToUpper(strings.TrimSpace(s))); p {
	case "":
		return Period1M, nil
	case Period1W, Period1M, Period3M, Period6M, Period1Y, PeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", domain.ErrInvalidInput, s)
	}
}

// Since returns the first date (YYYY-MM-DD) covered by the period ending at now.
// PeriodAll returns the empty string.
func (p Period) Since(now time.Time) string {
	var start time.Time
	switch p {
	case Period1W:
		start = now.AddDate(0, 0, -7)
	case Period1M:
		start = now.AddDate(0, -1, 0)
	case Period3M:
		start = now.AddDate(0, -3, 0)
	case Period6M:
		start = now.AddDate(0, -6, 0)
	case Period1Y:
		start = now.AddDate(-1, 0, 0)
	default:
		return ""
	}
	return start.Format(SnapshotDateLayout)
}

// PerformancePoint is one day of the value history
type PerformancePoint struct {
	Date       string          `json:"date"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Performance summarizes portfolio returns over a period. Ratios are
// fractions (0.05 = 5%). Statistics that need more history are nil.
type Performance struct {
	PortfolioID      string             `json:"portfolio_id"`
	Period           Period             `json:"period"`
	StartDate        string             `json:"start_date,omitempty"`
	EndDate          string             `json:"end_date,omitempty"`
	StartValue       decimal.Decimal    `json:"start_value"`
	EndValue         decimal.Decimal    `json:"end_value"`
	TotalReturn      decimal.Decimal    `json:"total_return_percent"`
	AnnualizedReturn *float64           `json:"annualized_return,omitempty"`
	Volatility       *float64           `json:"volatility,omitempty"`
	SharpeRatio      *float64           `json:"sharpe_ratio,omitempty"`
	MaxDrawdown      *float64           `json:"max_drawdown,omitempty"`
	DataPoints       int                `json:"data_points"`
	History          []PerformancePoint `json:"history"`
}

// ComputePerformance derives return and risk statistics from snapshots
// ordered oldest first. current, when non-nil, is appended as the latest
// point unless a snapshot for its date already exists.
func ComputePerformance(portfolioID string, period Period, snapshots []Snapshot, current *Snapshot) *Performance {
	series := snapshots
	if current != nil && (len(series) == 0 || series[len(series)-1].Date < current.Date) {
		series = append(append([]Snapshot{}, snapshots...), *current)
	}

	perf := &Performance{
		PortfolioID: portfolioID,
		Period:      period,
		DataPoints:  len(series),
		History:     make([]PerformancePoint, 0, len(series)),
	}
	if len(series) == 0 {
		return perf
	}

	values := make([]float64, len(series))
	for i, s := range series {
		perf.History = append(perf.History, PerformancePoint{Date: s.Date, TotalValue: s.TotalValue})
		values[i] = s.TotalValue.InexactFloat64()
	}

	first, last := series[0], series[len(series)-1]
	perf.StartDate = first.Date
	perf.EndDate = last.Date
	perf.StartValue = first.TotalValue
	perf.EndValue = last.TotalValue
	perf.TotalReturn = domain.PercentChange(first.TotalValue, last.TotalValue)

	if days := daysBetween(first.Date, last.Date); days > 0 {
		perf.AnnualizedReturn = formulas.AnnualizedReturn(values[0], values[len(values)-1], days)
	}

	returns := formulas.CalculateReturns(values)
	if len(returns) >= 2 {
		vol := formulas.AnnualizedVolatility(returns)
		perf.Volatility = &vol
		perf.SharpeRatio = formulas.CalculateSharpeRatio(returns, RiskFreeRate, formulas.TradingDaysPerYear)
	}
	perf.MaxDrawdown = formulas.CalculateMaxDrawdown(values)

	return perf
}

func daysBetween(from, to string) int {
	start, err := time.Parse(SnapshotDateLayout, from)
	if err != nil {
		return 0
	}
	end, err := time.Parse(SnapshotDateLayout, to)
	if err != nil {
		return 0
	}
	return int(end.Sub(start).Hours() / 24)
}
