package engine

import (
	"math"

	"github.com/mysingle-lab/quant-backtest/internal/types"
)

// tradingDaysPerYear annualizes daily volatility.
const tradingDaysPerYear = 252

// CalculateMetrics derives the risk/return summary of one execution from its
// portfolio-value series. Pure function: identical input yields bit-identical
// output, no I/O, no state.
//
// values is the chronological series with values[0] the initial capital.
// Fewer than two points yields a zero-filled record; that is the defined
// boundary behavior, not an error.
func CalculateMetrics(values []float64, initialValue float64, counts TradeCounts) types.PerformanceMetrics {
	if len(values) < 2 || initialValue == 0 {
		return types.PerformanceMetrics{}
	}

	metrics := types.PerformanceMetrics{
		TotalTrades:   counts.Total,
		WinningTrades: counts.Winning,
		LosingTrades:  counts.Losing,
	}

	final := values[len(values)-1]
	metrics.TotalReturn = (final - initialValue) / initialValue

	// Point count stands in for elapsed calendar days. Exact only for a
	// gapless daily series.
	days := float64(len(values))
	metrics.AnnualizedReturn = math.Pow(1+metrics.TotalReturn, 365/days) - 1

	returns := dailyReturns(values)
	metrics.Volatility = populationStddev(returns) * math.Sqrt(tradingDaysPerYear)

	if metrics.Volatility > 0 {
		metrics.SharpeRatio = metrics.AnnualizedReturn / metrics.Volatility
	}

	metrics.MaxDrawdown = maxDrawdown(values)

	if roundTrips := counts.Winning + counts.Losing; roundTrips > 0 {
		metrics.WinRate = float64(counts.Winning) / float64(roundTrips)
	}

	return metrics
}

// dailyReturns computes period-over-period returns, skipping any point whose
// predecessor is zero rather than dividing by it.
func dailyReturns(values []float64) []float64 {
	returns := make([]float64, 0, len(values)-1)

	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}

		returns = append(returns, (values[i]-values[i-1])/values[i-1])
	}

	return returns
}

// populationStddev is the population standard deviation (divide by n, not
// n-1), matching the documented volatility definition.
func populationStddev(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}

	var sum float64
	for _, value := range series {
		sum += value
	}

	mean := sum / float64(len(series))

	var variance float64
	for _, value := range series {
		deviation := value - mean
		variance += deviation * deviation
	}

	return math.Sqrt(variance / float64(len(series)))
}

// maxDrawdown walks the series with a running peak and reports the largest
// fractional decline from that peak. The peak never decreases.
func maxDrawdown(values []float64) float64 {
	var peak, worst float64

	for _, value := range values {
		if value > peak {
			peak = value
		}

		if peak == 0 {
			continue
		}

		if drawdown := (peak - value) / peak; drawdown > worst {
			worst = drawdown
		}
	}

	return worst
}
