// Package formulas provides return and risk statistics over value series.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is used to annualize daily statistics
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean, zero for empty input
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation, zero for fewer than two values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// CalculateReturns converts a value series to simple periodic returns.
// Returns[i] = (v[i+1] - v[i]) / v[i]; steps from a zero value count as zero.
func CalculateReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns[i-1] = (values[i] - values[i-1]) / values[i-1]
		}
	}
	return returns
}

// AnnualizedVolatility is the standard deviation of daily returns × sqrt(252)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// AnnualizedReturn compounds the total return over days calendar days to a
// yearly rate. Returns nil when the span or the start value is not positive.
func AnnualizedReturn(start, end float64, days int) *float64 {
	if start <= 0 || days <= 0 || end < 0 {
		return nil
	}
	r := math.Pow(end/start, 365.0/float64(days)) - 1
	return &r
}
