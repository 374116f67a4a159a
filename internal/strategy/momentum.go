package strategy

import (
	"fmt"

	"github.com/mysingle-lab/quant-backtest/internal/indicator"
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// Momentum buys when the trailing return over the lookback window exceeds the
// threshold and sells when it falls below the negative threshold.
type Momentum struct {
	lookback  int
	threshold float64
	quantity  int64
	closes    map[string][]float64
}

// NewMomentum creates a momentum strategy.
// Parameters: lookback_period (default 20), threshold (default 0.02),
// quantity (default 10).
func NewMomentum(params map[string]float64) (Strategy, error) {
	lookback := int(paramOr(params, "lookback_period", 20))
	threshold := paramOr(params, "threshold", 0.02)
	quantity := int64(paramOr(params, "quantity", 10))

	if lookback <= 0 {
		return nil, errors.New(errors.ErrCodeStrategyParams, "lookback period must be positive")
	}

	if threshold <= 0 {
		return nil, errors.New(errors.ErrCodeStrategyParams, "threshold must be positive")
	}

	if quantity <= 0 {
		return nil, errors.New(errors.ErrCodeStrategyParams, "quantity must be positive")
	}

	return &Momentum{
		lookback:  lookback,
		threshold: threshold,
		quantity:  quantity,
		closes:    make(map[string][]float64),
	}, nil
}

// Name implements Strategy.
func (s *Momentum) Name() string {
	return fmt.Sprintf("%s_%d", TypeMomentum, s.lookback)
}

// GenerateSignals implements Strategy.
func (s *Momentum) GenerateSignals(snapshot types.DaySnapshot) ([]types.Signal, error) {
	var signals []types.Signal

	for _, symbol := range sortedSymbols(snapshot) {
		s.closes[symbol] = append(s.closes[symbol], snapshot[symbol].Close)

		history := s.closes[symbol]

		trailingReturn, ok := indicator.TrailingReturn(history, s.lookback)
		if !ok {
			continue
		}

		switch {
		case trailingReturn > s.threshold:
			signals = append(signals, types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionBuy,
				Quantity: s.quantity,
			})
		case trailingReturn < -s.threshold:
			signals = append(signals, types.Signal{
				Symbol:   symbol,
				Action:   types.SignalActionSell,
				Quantity: s.quantity,
			})
		}
	}

	return signals, nil
}
