package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// TradeSide is the direction of a fill.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Trade is a single executed fill. Trades are append-only and generated
// strictly in signal-processing order.
type Trade struct {
	ID        string    `json:"trade_id" yaml:"trade_id"`
	Symbol    string    `json:"symbol" yaml:"symbol" validate:"required"`
	Side      TradeSide `json:"side" yaml:"side" validate:"required,oneof=BUY SELL"`
	Quantity  int64     `json:"quantity" yaml:"quantity" validate:"required,gt=0"`
	Price     float64   `json:"price" yaml:"price" validate:"required,gt=0"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp" validate:"required"`
	// Commission is the fee charged for this fill, quantity * price * rate.
	Commission float64 `json:"commission" yaml:"commission" validate:"gte=0"`
}

// Validate validates the Trade struct.
func (t *Trade) Validate() error {
	validate := validator.New()
	if err := validate.Struct(t); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid trade", err)
	}

	return nil
}

// GrossAmount returns quantity * price without commission.
func (t *Trade) GrossAmount() float64 {
	amount, _ := decimal.NewFromInt(t.Quantity).Mul(decimal.NewFromFloat(t.Price)).Float64()

	return amount
}

// Position represents the current holdings of one symbol.
type Position struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	// Quantity is the running net of buys and sells. Never negative: a SELL
	// beyond current holdings is rejected before it reaches the position.
	Quantity int64 `json:"quantity" yaml:"quantity"`
	// AvgPrice is the volume-weighted average entry price of BUY fills.
	AvgPrice float64 `json:"avg_price" yaml:"avg_price"`
	// CurrentPrice is the last close price seen for the symbol.
	CurrentPrice  float64   `json:"current_price" yaml:"current_price"`
	UnrealizedPnL float64   `json:"unrealized_pnl" yaml:"unrealized_pnl"`
	FirstBuyDate  time.Time `json:"first_buy_date" yaml:"first_buy_date"`
}

// MarketValue returns quantity * current price.
func (p *Position) MarketValue() float64 {
	value, _ := decimal.NewFromInt(p.Quantity).Mul(decimal.NewFromFloat(p.CurrentPrice)).Float64()

	return value
}

// ApplyBuy folds a BUY fill into the position, recomputing the
// volume-weighted average entry price.
func (p *Position) ApplyBuy(quantity int64, price float64, timestamp time.Time) {
	if p.Quantity == 0 && p.FirstBuyDate.IsZero() {
		p.FirstBuyDate = timestamp
	}

	oldQty := decimal.NewFromInt(p.Quantity)
	addQty := decimal.NewFromInt(quantity)
	newQty := oldQty.Add(addQty)

	if newQty.IsZero() {
		p.AvgPrice = 0
	} else {
		oldCost := oldQty.Mul(decimal.NewFromFloat(p.AvgPrice))
		addCost := addQty.Mul(decimal.NewFromFloat(price))
		p.AvgPrice, _ = oldCost.Add(addCost).Div(newQty).Float64()
	}

	p.Quantity += quantity
	p.CurrentPrice = price
}

// ApplySell reduces the position by a SELL fill. The average entry price is
// left untouched; only quantity changes.
func (p *Position) ApplySell(quantity int64, price float64) {
	p.Quantity -= quantity
	p.CurrentPrice = price
}

// MarkPrice updates the last known price and the unrealized PnL against the
// average entry price.
func (p *Position) MarkPrice(price float64) {
	p.CurrentPrice = price

	qty := decimal.NewFromInt(p.Quantity)
	entry := qty.Mul(decimal.NewFromFloat(p.AvgPrice))
	current := qty.Mul(decimal.NewFromFloat(price))
	p.UnrealizedPnL, _ = current.Sub(entry).Float64()
}
