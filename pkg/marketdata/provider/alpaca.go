package provider

import (
	"context"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
)

// AlpacaClient fetches daily bars from the Alpaca market-data API.
type AlpacaClient struct {
	client *marketdata.Client
}

// NewAlpacaClient creates an Alpaca-backed provider.
func NewAlpacaClient(apiKey, apiSecret string) (Provider, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New(errors.ErrCodeMissingConfiguration, "alpaca provider requires API key and secret")
	}

	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &AlpacaClient{client: client}, nil
}

// GetBars implements Provider.
func (c *AlpacaClient) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alpacaBars, err := c.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataFetchFailed, err, "failed to fetch alpaca bars for %s", symbol)
	}

	bars := make([]types.Bar, 0, len(alpacaBars))
	for _, bar := range alpacaBars {
		bars = append(bars, types.Bar{
			Symbol: symbol,
			Date:   bar.Timestamp,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: float64(bar.Volume),
		})
	}

	return bars, nil
}
