package strategy

import (
	"fmt"

	"github.com/mysingle-lab/quant-backtest/internal/indicator"
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// SMACrossover buys when the short moving average crosses above the long one
// and sells when it crosses below.
type SMACrossover struct {
	shortWindow int
	longWindow  int
	quantity    int64
	closes      map[string][]float64
}

// NewSMACrossover creates an SMA crossover strategy.
// Parameters: short_window (default 20), long_window (default 50),
// quantity (default 10).
func NewSMACrossover(params map[string]float64) (Strategy, error) {
	shortWindow := int(paramOr(params, "short_window", 20))
	longWindow := int(paramOr(params, "long_window", 50))
	quantity := int64(paramOr(params, "quantity", 10))

	if shortWindow <= 0 || longWindow <= 0 {
		return nil, errors.New(errors.ErrCodeStrategyParams, "windows must be positive")
	}

	if shortWindow >= longWindow {
		return nil, errors.Newf(errors.ErrCodeStrategyParams,
			"short window %d must be smaller than long window %d", shortWindow, longWindow)
	}

	if quantity <= 0 {
		return nil, errors.New(errors.ErrCodeStrategyParams, "quantity must be positive")
	}

	return &SMACrossover{
		shortWindow: shortWindow,
		longWindow:  longWindow,
		quantity:    quantity,
		closes:      make(map[string][]float64),
	}, nil
}

// Name implements Strategy.
func (s *SMACrossover) Name() string {
	return fmt.Sprintf("%s_%d_%d", TypeSMACrossover, s.shortWindow, s.longWindow)
}

// GenerateSignals implements Strategy.
func (s *SMACrossover) GenerateSignals(snapshot types.DaySnapshot) ([]types.Signal, error) {
	var signals []types.Signal

	for _, symbol := range sortedSymbols(snapshot) {
		s.closes[symbol] = append(s.closes[symbol], snapshot[symbol].Close)

		history := s.closes[symbol]
		// A crossover needs one extra point to compare against the previous
		// pair of averages.
		if len(history) < s.longWindow+1 {
			continue
		}

		prevShort := indicator.SimpleMovingAverage(history[:len(history)-1], s.shortWindow)
		prevLong := indicator.SimpleMovingAverage(history[:len(history)-1], s.longWindow)
		currShort := indicator.SimpleMovingAverage(history, s.shortWindow)
		currLong := indicator.SimpleMovingAverage(history, s.longWindow)

		switch {
		case prevShort <= prevLong && currShort > currLong:
			signals = append(signals, types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionBuy,
				Quantity: s.quantity,
			})
		case prevShort >= prevLong && currShort < currLong:
			signals = append(signals, types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionSell,
				Quantity: s.quantity,
			})
		}
	}

	return signals, nil
}
