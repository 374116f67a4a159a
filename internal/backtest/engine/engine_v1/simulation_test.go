package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysingle-lab/quant-backtest/internal/logger"
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// scriptedStrategy replays a fixed per-step script of signals or errors.
type scriptedStrategy struct {
	signals map[int][]types.Signal
	errs    map[int]error
	step    int
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) GenerateSignals(_ types.DaySnapshot) ([]types.Signal, error) {
	step := s.step
	s.step++

	if err := s.errs[step]; err != nil {
		return nil, err
	}

	return s.signals[step], nil
}

func barSeries(symbol string, closes ...float64) []types.Bar {
	series := make([]types.Bar, 0, len(closes))
	for i, close := range closes {
		series = append(series, types.Bar{
			Symbol: symbol,
			Date:   testDay(i + 1),
			Open:   close,
			High:   close,
			Low:    close,
			Close:  close,
			Volume: 1000,
		})
	}

	return series
}

func TestTotalSteps(t *testing.T) {
	bars := map[string][]types.Bar{
		"AAPL": barSeries("AAPL", 100, 105, 95),
		"MSFT": barSeries("MSFT", 200, 210),
		"NVDA": {},
	}

	// Shortest series among symbols that actually have data.
	assert.Equal(t, 2, TotalSteps(bars))
	assert.Equal(t, 0, TotalSteps(map[string][]types.Bar{"NVDA": {}}))
	assert.Equal(t, 0, TotalSteps(nil))
}

func TestSimulationLoopEmptyData(t *testing.T) {
	ledger := NewTradeLedger(100000, 0, logger.NewNopLogger())
	loop := NewSimulationLoop(ledger, &scriptedStrategy{}, logger.NewNopLogger())

	values, err := loop.Run(context.Background(), nil, nil)
	require.NoError(t, err)

	// Only the initial portfolio value point.
	assert.Equal(t, []float64{100000}, values)
}

func TestSimulationLoopWalk(t *testing.T) {
	// One symbol, closes 100/105/95, buy 10 on the first step at one percent
	// commission: values 99990, 100040, 99940 after the initial 100000.
	ledger := NewTradeLedger(100000, 0.01, logger.NewNopLogger())
	strategy := &scriptedStrategy{signals: map[int][]types.Signal{
		0: {buySignal("AAPL", 10)},
	}}
	loop := NewSimulationLoop(ledger, strategy, logger.NewNopLogger())

	bars := map[string][]types.Bar{"AAPL": barSeries("AAPL", 100, 105, 95)}

	values, err := loop.Run(context.Background(), bars, nil)
	require.NoError(t, err)

	require.Len(t, values, 4)
	assert.InDelta(t, 100000, values[0], 1e-9)
	assert.InDelta(t, 99990, values[1], 1e-9)
	assert.InDelta(t, 100040, values[2], 1e-9)
	assert.InDelta(t, 99940, values[3], 1e-9)

	require.Len(t, ledger.Trades(), 1)
	assert.Equal(t, testDay(1), ledger.Trades()[0].Timestamp)
}

func TestSimulationLoopStrategyFaultIsolation(t *testing.T) {
	ledger := NewTradeLedger(100000, 0, logger.NewNopLogger())
	strategy := &scriptedStrategy{
		errs:    map[int]error{0: errors.New(errors.ErrCodeSignalGeneration, "boom")},
		signals: map[int][]types.Signal{1: {buySignal("AAPL", 10)}},
	}
	loop := NewSimulationLoop(ledger, strategy, logger.NewNopLogger())

	bars := map[string][]types.Bar{"AAPL": barSeries("AAPL", 100, 105)}

	values, err := loop.Run(context.Background(), bars, nil)
	require.NoError(t, err)

	// The failing step contributed a value but no trades; the loop went on.
	assert.Len(t, values, 3)
	assert.Len(t, ledger.Trades(), 1)
}

func TestSimulationLoopSkipsSignalWithoutBar(t *testing.T) {
	ledger := NewTradeLedger(100000, 0, logger.NewNopLogger())
	strategy := &scriptedStrategy{signals: map[int][]types.Signal{
		0: {buySignal("MSFT", 10)},
	}}
	loop := NewSimulationLoop(ledger, strategy, logger.NewNopLogger())

	bars := map[string][]types.Bar{"AAPL": barSeries("AAPL", 100)}

	_, err := loop.Run(context.Background(), bars, nil)
	require.NoError(t, err)
	assert.Empty(t, ledger.Trades())
}

func TestSimulationLoopInStepOrdering(t *testing.T) {
	// The first buy exhausts the cash available to the second; signals are
	// applied in the order the strategy returned them.
	ledger := NewTradeLedger(1500, 0, logger.NewNopLogger())
	strategy := &scriptedStrategy{signals: map[int][]types.Signal{
		0: {buySignal("AAPL", 10), buySignal("MSFT", 10)},
	}}
	loop := NewSimulationLoop(ledger, strategy, logger.NewNopLogger())

	bars := map[string][]types.Bar{
		"AAPL": barSeries("AAPL", 100),
		"MSFT": barSeries("MSFT", 100),
	}

	_, err := loop.Run(context.Background(), bars, nil)
	require.NoError(t, err)

	trades := ledger.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "AAPL", trades[0].Symbol)
}

func TestSimulationLoopCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ledger := NewTradeLedger(100000, 0, logger.NewNopLogger())
	loop := NewSimulationLoop(ledger, &scriptedStrategy{}, logger.NewNopLogger())

	bars := map[string][]types.Bar{"AAPL": barSeries("AAPL", 100, 105)}

	values, err := loop.Run(ctx, bars, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRunCancelled))
	assert.Equal(t, []float64{100000}, values)
}

func TestSimulationLoopStepCallback(t *testing.T) {
	ledger := NewTradeLedger(100000, 0, logger.NewNopLogger())
	loop := NewSimulationLoop(ledger, &scriptedStrategy{}, logger.NewNopLogger())

	bars := map[string][]types.Bar{"AAPL": barSeries("AAPL", 100, 105, 95)}

	var seen []int
	_, err := loop.Run(context.Background(), bars, func(current, total int) error {
		assert.Equal(t, 3, total)
		seen = append(seen, current)

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}
