package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mysingle-lab/quant-backtest/internal/logger"
	"github.com/mysingle-lab/quant-backtest/internal/types"
)

// lot is a discrete batch of shares acquired at one price and time, consumed
// first-in-first-out on sale. A partially consumed lot keeps its original
// price and timestamp.
type lot struct {
	quantity  int64
	price     float64
	timestamp time.Time
}

// TradeCounts aggregates fill and round-trip outcomes for one run.
// Winning and Losing count FIFO-matched lots, not fills, so they do not sum
// to Total.
type TradeCounts struct {
	Total   int
	Winning int
	Losing  int
}

// TradeLedger tracks cash, positions and trade history for a single run. Each
// run owns an exclusive instance, so no locking is needed.
//
// A signal either produces a trade and mutates state, or is rejected with no
// state change at all. Rejections are logged and silently skipped; one bad
// signal never aborts a simulation.
type TradeLedger struct {
	cash           decimal.Decimal
	commissionRate decimal.Decimal
	positions      map[string]*types.Position
	lots           map[string][]lot
	trades         []types.Trade
	counts         TradeCounts
	logger         *logger.Logger
}

// NewTradeLedger creates a ledger holding the run's initial cash.
func NewTradeLedger(initialCash, commissionRate float64, l *logger.Logger) *TradeLedger {
	return &TradeLedger{
		cash:           decimal.NewFromFloat(initialCash),
		commissionRate: decimal.NewFromFloat(commissionRate),
		positions:      make(map[string]*types.Position),
		lots:           make(map[string][]lot),
		logger:         l,
	}
}

// ApplySignal applies one signal at the given fill price. HOLD and unknown
// actions are no-ops. BUY and SELL either fill completely or are rejected;
// there are no partial fills.
func (l *TradeLedger) ApplySignal(signal types.Signal, price float64, timestamp time.Time) {
	if signal.Quantity <= 0 || price <= 0 {
		return
	}

	switch signal.Action {
	case types.SignalActionBuy:
		l.applyBuy(signal.Symbol, signal.Quantity, price, timestamp)
	case types.SignalActionSell:
		l.applySell(signal.Symbol, signal.Quantity, price, timestamp)
	case types.SignalActionHold:
	}
}

func (l *TradeLedger) applyBuy(symbol string, quantity int64, price float64, timestamp time.Time) {
	gross := decimal.NewFromInt(quantity).Mul(decimal.NewFromFloat(price))
	commission := gross.Mul(l.commissionRate)
	cost := gross.Add(commission)

	// Admission control on capital: a buy that does not fit is dropped.
	if l.cash.LessThan(cost) {
		l.logger.Debug("buy rejected, insufficient cash",
			zap.String("symbol", symbol),
			zap.Int64("quantity", quantity),
			zap.Float64("price", price),
			zap.String("cash", l.cash.String()),
		)

		return
	}

	l.cash = l.cash.Sub(cost)

	position, ok := l.positions[symbol]
	if !ok {
		position = &types.Position{Symbol: symbol}
		l.positions[symbol] = position
	}

	position.ApplyBuy(quantity, price, timestamp)

	l.lots[symbol] = append(l.lots[symbol], lot{
		quantity:  quantity,
		price:     price,
		timestamp: timestamp,
	})

	l.appendTrade(symbol, types.TradeSideBuy, quantity, price, timestamp, commission)
}

func (l *TradeLedger) applySell(symbol string, quantity int64, price float64, timestamp time.Time) {
	position, ok := l.positions[symbol]
	if !ok || position.Quantity < quantity {
		var held int64
		if ok {
			held = position.Quantity
		}

		l.logger.Debug("sell rejected, insufficient shares",
			zap.String("symbol", symbol),
			zap.Int64("quantity", quantity),
			zap.Int64("held", held),
		)

		return
	}

	gross := decimal.NewFromInt(quantity).Mul(decimal.NewFromFloat(price))
	commission := gross.Mul(l.commissionRate)

	l.cash = l.cash.Add(gross.Sub(commission))
	position.ApplySell(quantity, price)
	l.consumeLots(symbol, quantity, price)
	l.appendTrade(symbol, types.TradeSideSell, quantity, price, timestamp, commission)
}

// consumeLots matches a sell quantity against the oldest open buy lots.
// Each matched lot counts as one winning or losing round trip depending on
// the sign of (sell price - lot price) * matched quantity.
func (l *TradeLedger) consumeLots(symbol string, quantity int64, sellPrice float64) {
	remaining := quantity
	open := l.lots[symbol]

	for remaining > 0 && len(open) > 0 {
		matched := open[0].quantity
		if matched > remaining {
			matched = remaining
		}

		profit := decimal.NewFromFloat(sellPrice).
			Sub(decimal.NewFromFloat(open[0].price)).
			Mul(decimal.NewFromInt(matched))

		if profit.IsPositive() {
			l.counts.Winning++
		} else {
			l.counts.Losing++
		}

		open[0].quantity -= matched
		if open[0].quantity == 0 {
			open = open[1:]
		}

		remaining -= matched
	}

	l.lots[symbol] = open
}

func (l *TradeLedger) appendTrade(symbol string, side types.TradeSide, quantity int64, price float64, timestamp time.Time, commission decimal.Decimal) {
	commissionValue, _ := commission.Float64()

	l.trades = append(l.trades, types.Trade{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Timestamp:  timestamp,
		Commission: commissionValue,
	})

	l.counts.Total++
}

// MarkPrices refreshes every position present in the snapshot with that
// step's close price. Positions without data this step keep their last
// known price.
func (l *TradeLedger) MarkPrices(snapshot types.DaySnapshot) {
	for symbol, position := range l.positions {
		if bar, ok := snapshot[symbol]; ok {
			position.MarkPrice(bar.Close)
		}
	}
}

// PortfolioValue returns cash plus the market value of every open position
// at its last known price.
func (l *TradeLedger) PortfolioValue() float64 {
	total := l.cash
	for _, position := range l.positions {
		total = total.Add(decimal.NewFromFloat(position.MarketValue()))
	}

	value, _ := total.Float64()

	return value
}

// Cash returns the current cash balance.
func (l *TradeLedger) Cash() float64 {
	value, _ := l.cash.Float64()

	return value
}

// Trades returns the append-only trade history in fill order.
func (l *TradeLedger) Trades() []types.Trade {
	return l.trades
}

// Positions returns a copy of the open positions, including flat ones that
// traded during the run.
func (l *TradeLedger) Positions() map[string]types.Position {
	snapshot := make(map[string]types.Position, len(l.positions))
	for symbol, position := range l.positions {
		snapshot[symbol] = *position
	}

	return snapshot
}

// OpenLots returns the outstanding buy lots for a symbol, oldest first.
func (l *TradeLedger) OpenLots(symbol string) []types.Trade {
	open := l.lots[symbol]
	result := make([]types.Trade, 0, len(open))

	for _, entry := range open {
		result = append(result, types.Trade{
			Symbol:    symbol,
			Side:      types.TradeSideBuy,
			Quantity:  entry.quantity,
			Price:     entry.price,
			Timestamp: entry.timestamp,
		})
	}

	return result
}

// Counts returns the fill and round-trip counters.
func (l *TradeLedger) Counts() TradeCounts {
	return l.counts
}
