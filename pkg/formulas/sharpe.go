package formulas

import "math"

// CalculateSharpeRatio returns the annualized Sharpe ratio of periodic returns:
//
//	(mean(returns) - riskFreeRate/periodsPerYear) / stddev(returns) × sqrt(periodsPerYear)
//
// riskFreeRate is annual, as a decimal (0.02 for 2%). Returns nil with fewer
// than two returns or zero volatility.
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev * math.Sqrt(float64(periodsPerYear))
	return &sharpe
}
