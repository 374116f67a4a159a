package strategy

import (
	"fmt"

	"github.com/mysingle-lab/quant-backtest/internal/indicator"
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// RSIMeanReversion buys when the relative strength index drops below the
// oversold threshold and sells when it rises above the overbought threshold.
type RSIMeanReversion struct {
	period     int
	oversold   float64
	overbought float64
	quantity   int64
	closes     map[string][]float64
}

// NewRSIMeanReversion creates an RSI mean reversion strategy.
// Parameters: period (default 14), oversold_threshold (default 30),
// overbought_threshold (default 70), quantity (default 10).
func NewRSIMeanReversion(params map[string]float64) (Strategy, error) {
	period := int(paramOr(params, "period", 14))
	oversold := paramOr(params, "oversold_threshold", 30)
	overbought := paramOr(params, "overbought_threshold", 70)
	quantity := int64(paramOr(params, "quantity", 10))

	if period <= 0 {
		return nil, errors.New(errors.ErrCodeStrategyParams, "period must be positive")
	}

	if oversold >= overbought {
		return nil, errors.Newf(errors.ErrCodeStrategyParams,
			"oversold threshold %.2f must be below overbought threshold %.2f", oversold, overbought)
	}

	if quantity <= 0 {
		return nil, errors.New(errors.ErrCodeStrategyParams, "quantity must be positive")
	}

	return &RSIMeanReversion{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
		quantity:   quantity,
		closes:     make(map[string][]float64),
	}, nil
}

// Name implements Strategy.
func (s *RSIMeanReversion) Name() string {
	return fmt.Sprintf("%s_%d", TypeRSIMeanReversion, s.period)
}

// GenerateSignals implements Strategy.
func (s *RSIMeanReversion) GenerateSignals(snapshot types.DaySnapshot) ([]types.Signal, error) {
	var signals []types.Signal

	for _, symbol := range sortedSymbols(snapshot) {
		s.closes[symbol] = append(s.closes[symbol], snapshot[symbol].Close)

		history := s.closes[symbol]
		if len(history) < s.period+1 {
			continue
		}

		rsi := indicator.RelativeStrengthIndex(history, s.period)

		switch {
		case rsi < s.oversold:
			signals = append(signals, types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionBuy,
				Quantity: s.quantity,
			})
		case rsi > s.overbought:
			signals = append(signals, types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionSell,
				Quantity: s.quantity,
			})
		}
	}

	return signals, nil
}
