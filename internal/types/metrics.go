package types

// PerformanceMetrics is the derived risk/return summary of one execution.
// All fields are recomputed per execution from its portfolio-value series
// and trade list; they are never persisted independently of their source.
type PerformanceMetrics struct {
	TotalReturn float64 `json:"total_return" yaml:"total_return"`
	// AnnualizedReturn compounds the total return over 365/n where n is the
	// number of portfolio value points. Point count stands in for elapsed
	// calendar days, which is only exact for gapless daily series.
	AnnualizedReturn float64 `json:"annualized_return" yaml:"annualized_return"`
	// Volatility is the population standard deviation of daily returns,
	// annualized by sqrt(252).
	Volatility  float64 `json:"volatility" yaml:"volatility"`
	SharpeRatio float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown" yaml:"max_drawdown"`
	// TotalTrades counts every fill. Winning and losing counts come from
	// FIFO round-trip attribution, so they do not sum to TotalTrades.
	TotalTrades   int     `json:"total_trades" yaml:"total_trades"`
	WinningTrades int     `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades  int     `json:"losing_trades" yaml:"losing_trades"`
	WinRate       float64 `json:"win_rate" yaml:"win_rate"`
}
