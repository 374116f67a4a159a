package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMetricsDegenerate(t *testing.T) {
	t.Run("empty series", func(t *testing.T) {
		metrics := CalculateMetrics(nil, 100000, TradeCounts{Total: 3})
		assert.Zero(t, metrics)
	})

	t.Run("single point", func(t *testing.T) {
		metrics := CalculateMetrics([]float64{100000}, 100000, TradeCounts{})
		assert.Zero(t, metrics)
	})

	t.Run("zero initial value", func(t *testing.T) {
		metrics := CalculateMetrics([]float64{0, 100}, 0, TradeCounts{})
		assert.Zero(t, metrics)
	})
}

func TestCalculateMetricsDeterministic(t *testing.T) {
	values := []float64{100000, 99990, 100040, 99940}
	counts := TradeCounts{Total: 5, Winning: 2, Losing: 1}

	first := CalculateMetrics(values, 100000, counts)
	second := CalculateMetrics(values, 100000, counts)

	assert.Equal(t, first, second)
}

func TestCalculateMetricsMaxDrawdown(t *testing.T) {
	// Peak sequence 100,120,120,120,120; drawdowns 0, 0, 0.25, 0.083.., 0.333..
	values := []float64{100, 120, 90, 110, 80}

	metrics := CalculateMetrics(values, 100, TradeCounts{})
	assert.InDelta(t, 1.0/3.0, metrics.MaxDrawdown, 1e-9)
}

func TestCalculateMetricsReturns(t *testing.T) {
	values := []float64{100000, 99990, 100040, 99940}

	metrics := CalculateMetrics(values, 100000, TradeCounts{Total: 1})

	assert.InDelta(t, -0.0006, metrics.TotalReturn, 1e-12)

	expectedAnnualized := math.Pow(1-0.0006, 365.0/4.0) - 1
	assert.InDelta(t, expectedAnnualized, metrics.AnnualizedReturn, 1e-12)

	assert.Equal(t, 1, metrics.TotalTrades)
}

func TestCalculateMetricsVolatility(t *testing.T) {
	t.Run("constant series has zero volatility and sharpe", func(t *testing.T) {
		metrics := CalculateMetrics([]float64{100, 100, 100}, 100, TradeCounts{})
		assert.Zero(t, metrics.Volatility)
		assert.Zero(t, metrics.SharpeRatio)
	})

	t.Run("population stddev annualized by sqrt 252", func(t *testing.T) {
		// Returns are +0.10 and -0.10, mean 0, population stddev 0.10.
		metrics := CalculateMetrics([]float64{100, 110, 99}, 100, TradeCounts{})

		expected := 0.1 * math.Sqrt(252)
		assert.InDelta(t, expected, metrics.Volatility, 1e-9)
		assert.InDelta(t, metrics.AnnualizedReturn/metrics.Volatility, metrics.SharpeRatio, 1e-12)
	})

	t.Run("zero predecessor is skipped not divided by", func(t *testing.T) {
		metrics := CalculateMetrics([]float64{100, 0, 100}, 100, TradeCounts{})
		assert.False(t, math.IsNaN(metrics.Volatility))
		assert.False(t, math.IsInf(metrics.Volatility, 0))
	})
}

func TestCalculateMetricsWinRate(t *testing.T) {
	t.Run("win rate over round trips", func(t *testing.T) {
		metrics := CalculateMetrics([]float64{100, 110}, 100, TradeCounts{Total: 6, Winning: 3, Losing: 1})
		assert.InDelta(t, 0.75, metrics.WinRate, 1e-12)
	})

	t.Run("no round trips", func(t *testing.T) {
		metrics := CalculateMetrics([]float64{100, 110}, 100, TradeCounts{Total: 2})
		assert.Zero(t, metrics.WinRate)
	})
}

func TestMaxDrawdownZeroPeak(t *testing.T) {
	assert.Zero(t, maxDrawdown([]float64{0, 0, 0}))
}
