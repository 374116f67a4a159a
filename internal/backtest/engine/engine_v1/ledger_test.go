package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysingle-lab/quant-backtest/internal/logger"
	"github.com/mysingle-lab/quant-backtest/internal/types"
)

func testDay(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func buySignal(symbol string, quantity int64) types.Signal {
	return types.Signal{Symbol: symbol, Action: types.SignalActionBuy, Quantity: quantity}
}

func sellSignal(symbol string, quantity int64) types.Signal {
	return types.Signal{Symbol: symbol, Action: types.SignalActionSell, Quantity: quantity}
}

func TestTradeLedgerBuy(t *testing.T) {
	t.Run("buy debits cash and opens position", func(t *testing.T) {
		ledger := NewTradeLedger(100000, 0.001, logger.NewNopLogger())

		ledger.ApplySignal(buySignal("AAPL", 10), 100, testDay(1))

		// cost = 1000 gross + 1 commission
		assert.InDelta(t, 98999, ledger.Cash(), 1e-9)

		positions := ledger.Positions()
		require.Contains(t, positions, "AAPL")
		assert.Equal(t, int64(10), positions["AAPL"].Quantity)
		assert.InDelta(t, 100, positions["AAPL"].AvgPrice, 1e-9)

		trades := ledger.Trades()
		require.Len(t, trades, 1)
		assert.Equal(t, types.TradeSideBuy, trades[0].Side)
		assert.InDelta(t, 1, trades[0].Commission, 1e-9)
		assert.NotEmpty(t, trades[0].ID)
	})

	t.Run("insufficient cash rejects with no state change", func(t *testing.T) {
		ledger := NewTradeLedger(100, 0, logger.NewNopLogger())

		ledger.ApplySignal(buySignal("AAPL", 10), 15, testDay(1))

		assert.InDelta(t, 100, ledger.Cash(), 1e-9)
		assert.Empty(t, ledger.Trades())
		assert.Empty(t, ledger.Positions())
		assert.Equal(t, TradeCounts{}, ledger.Counts())
	})

	t.Run("volume weighted average price", func(t *testing.T) {
		ledger := NewTradeLedger(100000, 0, logger.NewNopLogger())

		ledger.ApplySignal(buySignal("AAPL", 10), 100, testDay(1))
		ledger.ApplySignal(buySignal("AAPL", 10), 120, testDay(2))

		positions := ledger.Positions()
		assert.InDelta(t, 110, positions["AAPL"].AvgPrice, 1e-9)
		assert.Equal(t, int64(20), positions["AAPL"].Quantity)
	})
}

func TestTradeLedgerSell(t *testing.T) {
	t.Run("sell credits cash net of commission", func(t *testing.T) {
		ledger := NewTradeLedger(10000, 0.001, logger.NewNopLogger())

		ledger.ApplySignal(buySignal("AAPL", 10), 100, testDay(1))
		ledger.ApplySignal(sellSignal("AAPL", 10), 110, testDay(2))

		// 10000 - 1000 - 1 + 1100 - 1.1
		assert.InDelta(t, 10097.9, ledger.Cash(), 1e-9)
		assert.Equal(t, int64(0), ledger.Positions()["AAPL"].Quantity)
	})

	t.Run("no partial fills", func(t *testing.T) {
		ledger := NewTradeLedger(10000, 0, logger.NewNopLogger())

		ledger.ApplySignal(buySignal("AAPL", 5), 100, testDay(1))
		ledger.ApplySignal(sellSignal("AAPL", 10), 110, testDay(2))

		// The oversized sell is rejected entirely.
		assert.Equal(t, int64(5), ledger.Positions()["AAPL"].Quantity)
		require.Len(t, ledger.Trades(), 1)
		assert.InDelta(t, 9500, ledger.Cash(), 1e-9)
	})

	t.Run("sell of unknown symbol rejected", func(t *testing.T) {
		ledger := NewTradeLedger(10000, 0, logger.NewNopLogger())

		ledger.ApplySignal(sellSignal("AAPL", 1), 100, testDay(1))

		assert.Empty(t, ledger.Trades())
		assert.InDelta(t, 10000, ledger.Cash(), 1e-9)
	})
}

func TestTradeLedgerFIFO(t *testing.T) {
	// BUY 10 @ 100, BUY 10 @ 120, SELL 15 @ 130: the first lot is fully
	// consumed at profit 300, the second partially at profit 50, both wins,
	// and 5 shares at 120 stay open.
	ledger := NewTradeLedger(100000, 0, logger.NewNopLogger())

	ledger.ApplySignal(buySignal("AAPL", 10), 100, testDay(1))
	ledger.ApplySignal(buySignal("AAPL", 10), 120, testDay(2))
	ledger.ApplySignal(sellSignal("AAPL", 15), 130, testDay(3))

	counts := ledger.Counts()
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 2, counts.Winning)
	assert.Equal(t, 0, counts.Losing)

	open := ledger.OpenLots("AAPL")
	require.Len(t, open, 1)
	assert.Equal(t, int64(5), open[0].Quantity)
	assert.InDelta(t, 120, open[0].Price, 1e-9)
	assert.Equal(t, testDay(2), open[0].Timestamp)

	assert.Equal(t, int64(5), ledger.Positions()["AAPL"].Quantity)
}

func TestTradeLedgerFIFOLoss(t *testing.T) {
	ledger := NewTradeLedger(100000, 0, logger.NewNopLogger())

	ledger.ApplySignal(buySignal("AAPL", 10), 100, testDay(1))
	ledger.ApplySignal(buySignal("AAPL", 10), 120, testDay(2))
	// 110 beats the first lot but not the second.
	ledger.ApplySignal(sellSignal("AAPL", 20), 110, testDay(3))

	counts := ledger.Counts()
	assert.Equal(t, 1, counts.Winning)
	assert.Equal(t, 1, counts.Losing)
	assert.Empty(t, ledger.OpenLots("AAPL"))
}

func TestTradeLedgerHold(t *testing.T) {
	ledger := NewTradeLedger(10000, 0, logger.NewNopLogger())

	ledger.ApplySignal(types.Signal{Symbol: "AAPL", Action: types.SignalActionHold, Quantity: 10}, 100, testDay(1))
	ledger.ApplySignal(types.Signal{Symbol: "AAPL", Action: "SHORT", Quantity: 10}, 100, testDay(1))
	ledger.ApplySignal(buySignal("AAPL", 0), 100, testDay(1))
	ledger.ApplySignal(buySignal("AAPL", 10), 0, testDay(1))

	assert.Empty(t, ledger.Trades())
	assert.InDelta(t, 10000, ledger.Cash(), 1e-9)
}

func TestTradeLedgerPortfolioValue(t *testing.T) {
	ledger := NewTradeLedger(100000, 0.001, logger.NewNopLogger())

	ledger.ApplySignal(buySignal("AAPL", 10), 100, testDay(1))
	ledger.MarkPrices(types.DaySnapshot{"AAPL": {Symbol: "AAPL", Date: testDay(1), Close: 100}})

	// cash + sum of position market values must equal the recorded
	// portfolio value at every step.
	assert.InDelta(t, ledger.Cash()+10*100, ledger.PortfolioValue(), 1e-9)

	ledger.MarkPrices(types.DaySnapshot{"AAPL": {Symbol: "AAPL", Date: testDay(2), Close: 105}})
	assert.InDelta(t, ledger.Cash()+10*105, ledger.PortfolioValue(), 1e-9)

	// A symbol absent from the snapshot keeps its last known price.
	ledger.MarkPrices(types.DaySnapshot{})
	assert.InDelta(t, ledger.Cash()+10*105, ledger.PortfolioValue(), 1e-9)
}
