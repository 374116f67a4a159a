package types

import "time"

// Bar is one OHLCV data point for a symbol at daily granularity.
type Bar struct {
	Symbol string    `json:"symbol" yaml:"symbol"`
	Date   time.Time `json:"date" yaml:"date"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// DaySnapshot is the per-symbol view of a single simulated step. Symbols
// without data at that step are absent from the map.
type DaySnapshot map[string]Bar
