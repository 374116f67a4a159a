// Package indicator provides the technical indicators consumed by the
// built-in strategies. All functions operate on a chronological series of
// closing prices with the newest value last.
package indicator

// SimpleMovingAverage averages the last window values of the series.
// Returns 0 when the series is shorter than the window.
func SimpleMovingAverage(series []float64, window int) float64 {
	if window <= 0 || len(series) < window {
		return 0
	}

	var sum float64
	for _, value := range series[len(series)-window:] {
		sum += value
	}

	return sum / float64(window)
}

// RelativeStrengthIndex computes a simple-average RSI over the last period
// price changes. The series must hold at least period+1 points. A period
// without losses yields 100.
func RelativeStrengthIndex(series []float64, period int) float64 {
	if period <= 0 || len(series) < period+1 {
		return 0
	}

	changes := series[len(series)-period-1:]

	var gains, losses float64
	for i := 1; i < len(changes); i++ {
		delta := changes[i] - changes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs)
}

// TrailingReturn is the fractional change between the latest value and the
// value lookback points earlier. Returns (0, false) when the series is too
// short or the base value is zero.
func TrailingReturn(series []float64, lookback int) (float64, bool) {
	if lookback <= 0 || len(series) < lookback+1 {
		return 0, false
	}

	base := series[len(series)-1-lookback]
	if base == 0 {
		return 0, false
	}

	return (series[len(series)-1] - base) / base, true
}
