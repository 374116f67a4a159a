package provider

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"

	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// binancePageSize is the kline page limit of the Binance REST API.
const binancePageSize = 500

// BinanceClient fetches daily klines from the public Binance REST API. No
// credentials are needed for historical kline data.
type BinanceClient struct {
	client *binance.Client
}

// NewBinanceClient creates a Binance-backed provider.
func NewBinanceClient() (Provider, error) {
	return &BinanceClient{client: binance.NewClient("", "")}, nil
}

// GetBars implements Provider. Binance pages klines, so the range is walked
// page by page using the close time of the last kline as the next cursor.
func (c *BinanceClient) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	startMillis := start.UnixMilli()
	endMillis := end.UnixMilli()

	var bars []types.Bar

	currentStart := startMillis

	for {
		klines, err := c.client.NewKlinesService().
			Symbol(symbol).
			Interval("1d").
			StartTime(currentStart).
			EndTime(endMillis).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataFetchFailed, err, "failed to fetch binance klines for %s", symbol)
		}

		bars = append(bars, klinesToBars(symbol, klines)...)

		if len(klines) < binancePageSize {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	return bars, nil
}

func klinesToBars(symbol string, klines []*binance.Kline) []types.Bar {
	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		bars = append(bars, types.Bar{
			Symbol: symbol,
			Date:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return bars
}
