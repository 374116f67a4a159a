package strategy

import (
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// BuyAndHold buys a fixed quantity the first time a symbol shows up in a
// snapshot and never trades it again.
type BuyAndHold struct {
	quantity int64
	bought   map[string]bool
}

// NewBuyAndHold creates a buy-and-hold strategy.
// Parameters: quantity (default 10).
func NewBuyAndHold(params map[string]float64) (Strategy, error) {
	quantity := int64(paramOr(params, "quantity", 10))
	if quantity <= 0 {
		return nil, errors.Newf(errors.ErrCodeStrategyParams, "quantity must be positive, got %d", quantity)
	}

	return &BuyAndHold{
		quantity: quantity,
		bought:   make(map[string]bool),
	}, nil
}

// Name implements Strategy.
func (s *BuyAndHold) Name() string {
	return TypeBuyAndHold
}

// GenerateSignals implements Strategy.
func (s *BuyAndHold) GenerateSignals(snapshot types.DaySnapshot) ([]types.Signal, error) {
	var signals []types.Signal

	for _, symbol := range sortedSymbols(snapshot) {
		if s.bought[symbol] {
			continue
		}

		s.bought[symbol] = true
		signals = append(signals, types.Signal{
			Symbol:   symbol,
			Action:   types.SignalActionBuy,
			Quantity: s.quantity,
		})
	}

	return signals, nil
}
