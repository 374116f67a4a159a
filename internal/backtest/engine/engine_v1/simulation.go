package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/mysingle-lab/quant-backtest/internal/backtest/engine"
	"github.com/mysingle-lab/quant-backtest/internal/logger"
	"github.com/mysingle-lab/quant-backtest/internal/strategy"
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// SimulationLoop walks the bar series day by day, asking the strategy for
// signals at each step and applying them through the ledger. The loop is
// strictly sequential: portfolio state has read-after-write dependencies
// across steps, and in-step signal order matters because earlier buys can
// exhaust the cash available to later ones.
type SimulationLoop struct {
	ledger   *TradeLedger
	strategy strategy.Strategy
	logger   *logger.Logger
}

// NewSimulationLoop creates a loop bound to one ledger and one strategy
// instance.
func NewSimulationLoop(ledger *TradeLedger, s strategy.Strategy, l *logger.Logger) *SimulationLoop {
	return &SimulationLoop{
		ledger:   ledger,
		strategy: s,
		logger:   l,
	}
}

// TotalSteps returns the number of steps the loop will walk: the shortest
// series among symbols that have any data at all.
func TotalSteps(bars map[string][]types.Bar) int {
	steps := 0

	for _, series := range bars {
		if len(series) == 0 {
			continue
		}

		if steps == 0 || len(series) < steps {
			steps = len(series)
		}
	}

	return steps
}

// Run simulates the full walk and returns the portfolio-value series. The
// first element is the value before any step, so the result always has
// TotalSteps+1 points. Cancellation is checked once per step; a cancelled
// run returns the values accumulated so far together with a coded error.
func (s *SimulationLoop) Run(ctx context.Context, bars map[string][]types.Bar, onStep engine.OnStepCallback) ([]float64, error) {
	totalSteps := TotalSteps(bars)
	values := make([]float64, 0, totalSteps+1)
	values = append(values, s.ledger.PortfolioValue())

	for step := 0; step < totalSteps; step++ {
		if err := ctx.Err(); err != nil {
			return values, errors.Wrapf(errors.ErrCodeRunCancelled, err, "simulation cancelled at step %d", step)
		}

		snapshot := snapshotAt(bars, step)
		if len(snapshot) == 0 {
			values = append(values, values[len(values)-1])

			continue
		}

		// A strategy fault is isolated to its step: log it and move on with
		// no signals rather than aborting the run.
		signals, err := s.strategy.GenerateSignals(snapshot)
		if err != nil {
			s.logger.Warn("strategy failed, skipping step",
				zap.Int("step", step),
				zap.String("strategy", s.strategy.Name()),
				zap.Error(err),
			)

			signals = nil
		}

		for _, signal := range signals {
			bar, ok := snapshot[signal.Symbol]
			if !ok {
				continue
			}

			s.ledger.ApplySignal(signal, bar.Close, bar.Date)
		}

		s.ledger.MarkPrices(snapshot)
		values = append(values, s.ledger.PortfolioValue())

		if onStep != nil {
			if err := onStep(step+1, totalSteps); err != nil {
				return values, err
			}
		}
	}

	return values, nil
}

// snapshotAt collects the bar at one index for every symbol that has data
// there.
func snapshotAt(bars map[string][]types.Bar, step int) types.DaySnapshot {
	snapshot := make(types.DaySnapshot)

	for symbol, series := range bars {
		if step < len(series) {
			snapshot[symbol] = series[step]
		}
	}

	return snapshot
}
